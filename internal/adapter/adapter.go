package adapter

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/tristate"
)

// ErrNotSupported is returned by an adapter that does not implement a
// capability. The evaluator reports it as unknown(EXTERNAL_CALL).
var ErrNotSupported = errors.New("adapter: capability not supported")

// Adapter answers domain questions the evaluator cannot answer from
// bindings alone: entity existence and lookup, and value validity and
// length. Implementations may block on external systems; the evaluator
// bounds every call with its own deadline.
type Adapter interface {
	IsValid(ctx context.Context, v ir.Value) (tristate.TriState, error)
	Length(ctx context.Context, v ir.Value) (int64, error)
	Exists(ctx context.Context, entity string, criteria ir.Object) (tristate.TriState, error)
	Lookup(ctx context.Context, entity string, criteria ir.Object) (ir.Value, bool, error)
}

// Unsupported implements every capability by returning ErrNotSupported.
// Embed it to implement only part of Adapter.
type Unsupported struct{}

func (Unsupported) IsValid(context.Context, ir.Value) (tristate.TriState, error) {
	return tristate.TriState{}, ErrNotSupported
}

func (Unsupported) Length(context.Context, ir.Value) (int64, error) {
	return 0, ErrNotSupported
}

func (Unsupported) Exists(context.Context, string, ir.Object) (tristate.TriState, error) {
	return tristate.TriState{}, ErrNotSupported
}

func (Unsupported) Lookup(context.Context, string, ir.Object) (ir.Value, bool, error) {
	return nil, false, ErrNotSupported
}

// Builtin answers is_valid and length from the value itself and has no
// entity store. It is the default adapter.
//
// A value is valid when it is present and non-null; strings must also be
// non-blank and numbers finite.
type Builtin struct {
	Unsupported
}

func (Builtin) IsValid(_ context.Context, v ir.Value) (tristate.TriState, error) {
	switch val := v.(type) {
	case nil, ir.Null:
		return tristate.False, nil
	case ir.String:
		for _, r := range val {
			if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
				return tristate.True, nil
			}
		}
		return tristate.False, nil
	case ir.Float:
		f := float64(val)
		return tristate.Of(!math.IsNaN(f) && !math.IsInf(f, 0)), nil
	}
	return tristate.True, nil
}

func (Builtin) Length(_ context.Context, v ir.Value) (int64, error) {
	switch val := v.(type) {
	case ir.String:
		return int64(len([]rune(string(val)))), nil
	case ir.List:
		return int64(len(val)), nil
	case ir.Object:
		return int64(len(val)), nil
	}
	return 0, ErrNotSupported
}

// Memory serves entity queries from in-memory records. A record matches
// when every criteria key is present and equal. Validity and length fall
// back to Builtin.
type Memory struct {
	Builtin

	mu       sync.RWMutex
	entities map[string][]ir.Object
}

// NewMemory returns an empty in-memory adapter.
func NewMemory() *Memory {
	return &Memory{entities: make(map[string][]ir.Object)}
}

// Put adds a record of the given entity type.
func (m *Memory) Put(entity string, record ir.Object) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[entity] = append(m.entities[entity], ir.CloneObject(record))
}

// Records returns a copy of every record of entity, in insertion order.
func (m *Memory) Records(entity string) []ir.Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ir.Object, len(m.entities[entity]))
	for i, r := range m.entities[entity] {
		out[i] = ir.CloneObject(r)
	}
	return out
}

func (m *Memory) Exists(_ context.Context, entity string, criteria ir.Object) (tristate.TriState, error) {
	_, ok := m.find(entity, criteria)
	return tristate.Of(ok), nil
}

func (m *Memory) Lookup(_ context.Context, entity string, criteria ir.Object) (ir.Value, bool, error) {
	rec, ok := m.find(entity, criteria)
	if !ok {
		return nil, false, nil
	}
	return rec, true, nil
}

func (m *Memory) find(entity string, criteria ir.Object) (ir.Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.entities[entity] {
		if Matches(rec, criteria) {
			return ir.CloneObject(rec), true
		}
	}
	return nil, false
}

// Matches reports whether every criteria key is present in rec with an
// equal value. Empty criteria match any record.
func Matches(rec, criteria ir.Object) bool {
	for k, want := range criteria {
		got, ok := rec[k]
		if !ok || !ir.Equal(got, want) {
			return false
		}
	}
	return true
}
