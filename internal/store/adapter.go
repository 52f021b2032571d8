package store

import (
	"context"
	"fmt"

	"github.com/roach88/islproof/internal/adapter"
	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/queryir"
	"github.com/roach88/islproof/internal/tristate"
)

// EntityAdapter answers entity existence and lookup from the store.
// Validity and length fall back to adapter.Builtin.
//
// Criteria in the portable fragment are pushed down to SQL. Other
// criteria (null or list/object values) are matched in memory against
// every record of the entity with adapter.Matches, so both paths agree
// with adapter.Memory.
type EntityAdapter struct {
	adapter.Builtin
	store *Store
}

var _ adapter.Adapter = (*EntityAdapter)(nil)

// Entities returns an adapter over the store's entity records.
func (s *Store) Entities() *EntityAdapter {
	return &EntityAdapter{store: s}
}

func (a *EntityAdapter) Exists(ctx context.Context, entity string, criteria ir.Object) (tristate.TriState, error) {
	_, found, err := a.first(ctx, entity, criteria)
	if err != nil {
		return tristate.TriState{}, err
	}
	return tristate.Of(found), nil
}

func (a *EntityAdapter) Lookup(ctx context.Context, entity string, criteria ir.Object) (ir.Value, bool, error) {
	rec, found, err := a.first(ctx, entity, criteria)
	if err != nil || !found {
		return nil, false, err
	}
	return rec, true, nil
}

// first returns the earliest record of entity matching criteria.
func (a *EntityAdapter) first(ctx context.Context, entity string, criteria ir.Object) (ir.Object, bool, error) {
	q := queryir.FromCriteria(entity, criteria)
	q.Limit = 1

	if queryir.Validate(q).IsPortable {
		rows, err := a.store.SelectEntities(ctx, q)
		if err != nil {
			return nil, false, fmt.Errorf("entity %s: %w", entity, err)
		}
		if len(rows) == 0 {
			return nil, false, nil
		}
		return rows[0].Data, true, nil
	}

	all, err := a.store.LoadEntities(ctx, entity)
	if err != nil {
		return nil, false, fmt.Errorf("entity %s: %w", entity, err)
	}
	for _, rec := range all {
		if adapter.Matches(rec.Data, criteria) {
			return rec.Data, true, nil
		}
	}
	return nil, false, nil
}
