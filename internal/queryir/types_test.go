package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/islproof/internal/ir"
)

func TestFromCriteria(t *testing.T) {
	sel := FromCriteria("Account", ir.Object{
		"owner": ir.String("alice"),
		"id":    ir.String("acc-1"),
	})

	assert.Equal(t, "Account", sel.Entity)
	and, ok := sel.Filter.(And)
	require.True(t, ok)
	require.Len(t, and.Predicates, 2)
	assert.Equal(t, Equals{Path: []string{"id"}, Value: ir.String("acc-1")}, and.Predicates[0])
	assert.Equal(t, Equals{Path: []string{"owner"}, Value: ir.String("alice")}, and.Predicates[1])
}

func TestFromCriteria_Empty(t *testing.T) {
	sel := FromCriteria("Account", nil)
	assert.Nil(t, sel.Filter)
}

func TestFromCriteria_DottedKeyIsLiteral(t *testing.T) {
	sel := FromCriteria("Account", ir.Object{"a.b": ir.Int(1)})
	eq := sel.Filter.(And).Predicates[0].(Equals)
	assert.Equal(t, []string{"a.b"}, eq.Path)
}

func TestField(t *testing.T) {
	eq := Field("owner.email", ir.String("a@example.com"))
	assert.Equal(t, []string{"owner", "email"}, eq.Path)
	assert.Equal(t, "owner.email", eq.String())
}
