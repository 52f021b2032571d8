package store

import (
	"context"
	"fmt"

	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/queryir"
	"github.com/roach88/islproof/internal/querysql"
)

// Entity is one stored record of an entity type.
type Entity struct {
	Entity string
	ID     string
	Seq    int64
	Data   ir.Object
}

// PutEntity stores a record under (entity, id). Writing an existing key
// replaces its data but keeps its original position in the order.
func (s *Store) PutEntity(ctx context.Context, entity, id string, data ir.Object) error {
	if entity == "" || id == "" {
		return fmt.Errorf("put entity: entity and id are required")
	}
	dataJSON, err := marshalObject(data)
	if err != nil {
		return fmt.Errorf("put entity %s/%s: %w", entity, id, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities (entity, id, data)
		VALUES (?, ?, ?)
		ON CONFLICT(entity, id) DO UPDATE SET data = excluded.data
	`, entity, id, dataJSON)
	if err != nil {
		return fmt.Errorf("put entity %s/%s: %w", entity, id, err)
	}
	return nil
}

// LoadEntities returns every record of entity in insertion order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) LoadEntities(ctx context.Context, entity string) ([]Entity, error) {
	return s.SelectEntities(ctx, queryir.Select{Entity: entity})
}

// SelectEntities runs a compiled QueryIR select.
func (s *Store) SelectEntities(ctx context.Context, q queryir.Query) ([]Entity, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return nil, fmt.Errorf("select entities: %w", err)
	}
	entity := ""
	switch sel := q.(type) {
	case queryir.Select:
		entity = sel.Entity
	case *queryir.Select:
		entity = sel.Entity
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	entities := []Entity{}
	for rows.Next() {
		var (
			seq  int64
			id   string
			data string
		)
		if err := rows.Scan(&seq, &id, &data); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		obj, err := unmarshalObject(data)
		if err != nil {
			return nil, fmt.Errorf("entity %s/%s: %w", entity, id, err)
		}
		entities = append(entities, Entity{Entity: entity, ID: id, Seq: seq, Data: obj})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}

	return entities, nil
}

// CountEntities returns the number of stored records of entity.
func (s *Store) CountEntities(ctx context.Context, entity string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities WHERE entity = ?`, entity).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count entities: %w", err)
	}
	return n, nil
}
