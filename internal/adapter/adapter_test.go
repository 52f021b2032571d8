package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/tristate"
)

func TestUnsupported(t *testing.T) {
	var a Adapter = Unsupported{}
	ctx := context.Background()

	_, err := a.IsValid(ctx, ir.Int(1))
	assert.ErrorIs(t, err, ErrNotSupported)
	_, err = a.Length(ctx, ir.String("x"))
	assert.ErrorIs(t, err, ErrNotSupported)
	_, err = a.Exists(ctx, "User", nil)
	assert.ErrorIs(t, err, ErrNotSupported)
	_, _, err = a.Lookup(ctx, "User", nil)
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestBuiltinIsValid(t *testing.T) {
	tests := []struct {
		name     string
		value    ir.Value
		expected tristate.TriState
	}{
		{"absent", nil, tristate.False},
		{"null", ir.Null{}, tristate.False},
		{"blank string", ir.String("  \t"), tristate.False},
		{"string", ir.String("alice"), tristate.True},
		{"int", ir.Int(0), tristate.True},
		{"float", ir.Float(1.5), tristate.True},
		{"list", ir.List{}, tristate.True},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Builtin{}.IsValid(context.Background(), tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestBuiltinLength(t *testing.T) {
	ctx := context.Background()

	n, err := Builtin{}.Length(ctx, ir.String("héllo"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n, "length counts runes")

	n, err = Builtin{}.Length(ctx, ir.List{ir.Int(1), ir.Int(2)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = Builtin{}.Length(ctx, ir.Int(3))
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestMemoryExistsAndLookup(t *testing.T) {
	m := NewMemory()
	m.Put("Account", ir.Object{"id": ir.String("a1"), "balance": ir.Int(100)})
	m.Put("Account", ir.Object{"id": ir.String("a2"), "balance": ir.Int(5)})
	ctx := context.Background()

	ok, err := m.Exists(ctx, "Account", ir.Object{"id": ir.String("a2")})
	require.NoError(t, err)
	assert.Equal(t, tristate.True, ok)

	ok, err = m.Exists(ctx, "Account", ir.Object{"id": ir.String("zz")})
	require.NoError(t, err)
	assert.Equal(t, tristate.False, ok)

	rec, found, err := m.Lookup(ctx, "Account", ir.Object{"balance": ir.Int(100)})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ir.String("a1"), rec.(ir.Object)["id"])

	_, found, err = m.Lookup(ctx, "Ledger", nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryIsolatesRecords(t *testing.T) {
	m := NewMemory()
	rec := ir.Object{"id": ir.String("a1")}
	m.Put("Account", rec)
	rec["id"] = ir.String("mutated")

	assert.Equal(t, ir.String("a1"), m.Records("Account")[0]["id"])
}

type slowAdapter struct {
	Unsupported
	delay time.Duration
}

func (s slowAdapter) Exists(ctx context.Context, _ string, _ ir.Object) (tristate.TriState, error) {
	select {
	case <-time.After(s.delay):
		return tristate.True, nil
	case <-ctx.Done():
		return tristate.TriState{}, ctx.Err()
	}
}

func TestWithTimeout(t *testing.T) {
	ctx := context.Background()

	fast := WithTimeout(slowAdapter{delay: time.Millisecond}, time.Second)
	got, err := fast.Exists(ctx, "User", nil)
	require.NoError(t, err)
	assert.Equal(t, tristate.True, got)

	slow := WithTimeout(slowAdapter{delay: time.Second}, 10*time.Millisecond)
	_, err = slow.Exists(ctx, "User", nil)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	_, err = slow.Length(ctx, ir.String("x"))
	assert.ErrorIs(t, err, ErrNotSupported, "errors from the wrapped adapter pass through")
}

func TestWithTimeoutZeroIsIdentity(t *testing.T) {
	a := Builtin{}
	assert.Equal(t, Adapter(a), WithTimeout(a, 0))
}
