package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/queryir"
)

func TestCompile_SelectAll(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{Entity: "Account"})
	require.NoError(t, err)

	assert.Equal(t, "SELECT seq, id, data FROM entities WHERE entity = ? ORDER BY seq ASC, id ASC COLLATE BINARY", sql)
	assert.Equal(t, []any{"Account"}, params)
}

func TestCompile_Criteria(t *testing.T) {
	q := queryir.FromCriteria("Account", ir.Object{
		"id":      ir.String("acc-1"),
		"active":  ir.Bool(true),
		"balance": ir.Int(100),
	})

	sql, params, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT seq, id, data FROM entities WHERE entity = ? AND `+
			`(json_type(data, ?) = ? AND json_extract(data, ?) = ? AND json_extract(data, ?) = ?)`+
			` ORDER BY seq ASC, id ASC COLLATE BINARY`, sql)
	assert.Equal(t, []any{
		"Account",
		`$."active"`, "true",
		`$."balance"`, int64(100),
		`$."id"`, "acc-1",
	}, params)
}

func TestCompile_ValuesNeverInterpolated(t *testing.T) {
	q := queryir.Select{Entity: "Account", Filter: queryir.Field("owner", ir.String("x' OR 1=1 --"))}

	sql, params, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)

	assert.NotContains(t, sql, "OR 1=1")
	assert.NotContains(t, sql, "owner")
	assert.Equal(t, []any{"Account", `$."owner"`, "x' OR 1=1 --"}, params)
}

func TestCompile_Values(t *testing.T) {
	tests := []struct {
		name  string
		value ir.Value
		sql   string
		param any
	}{
		{"string", ir.String("a"), "json_extract(data, ?) = ?", "a"},
		{"int", ir.Int(-3), "json_extract(data, ?) = ?", int64(-3)},
		{"float", ir.Float(2.5), "json_extract(data, ?) = ?", 2.5},
		{"true", ir.Bool(true), "json_type(data, ?) = ?", "true"},
		{"false", ir.Bool(false), "json_type(data, ?) = ?", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := NewSQLCompiler().Compile(queryir.Select{Entity: "E", Filter: queryir.Field("f", tt.value)})
			require.NoError(t, err)
			assert.Contains(t, sql, tt.sql)
			assert.Equal(t, []any{"E", `$."f"`, tt.param}, params)
		})
	}
}

func TestCompile_Null(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{Entity: "E", Filter: queryir.Field("f", ir.Null{})})
	require.NoError(t, err)
	assert.Contains(t, sql, "json_type(data, ?) = 'null'")
	assert.Equal(t, []any{"E", `$."f"`}, params)
}

func TestCompile_NestedPath(t *testing.T) {
	_, params, err := NewSQLCompiler().Compile(queryir.Select{Entity: "E", Filter: queryir.Field("owner.email", ir.String("a"))})
	require.NoError(t, err)
	assert.Equal(t, `$."owner"."email"`, params[1])
}

func TestCompile_Limit(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(&queryir.Select{Entity: "E", Limit: 1})
	require.NoError(t, err)
	assert.Contains(t, sql, "COLLATE BINARY LIMIT ?")
	assert.Equal(t, []any{"E", 1}, params)
}

func TestCompile_EmptyAnd(t *testing.T) {
	sql, _, err := NewSQLCompiler().Compile(queryir.Select{Entity: "E", Filter: queryir.And{}})
	require.NoError(t, err)
	assert.Contains(t, sql, "AND 1 = 1")
}

func TestCompile_OrderByMandatory(t *testing.T) {
	queries := []queryir.Query{
		queryir.Select{Entity: "E"},
		queryir.Select{Entity: "E", Filter: queryir.Field("a", ir.Int(1))},
		queryir.Select{Entity: "E", Limit: 5},
	}
	for _, q := range queries {
		sql, _, err := NewSQLCompiler().Compile(q)
		require.NoError(t, err)
		assert.Contains(t, sql, "ORDER BY seq ASC, id ASC COLLATE BINARY")
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query queryir.Query
		want  string
	}{
		{"nil", nil, "nil query"},
		{"nil pointer", (*queryir.Select)(nil), "nil query"},
		{"empty entity", queryir.Select{}, "empty entity name"},
		{"negative limit", queryir.Select{Entity: "E", Limit: -2}, "negative limit"},
		{"list", queryir.Select{Entity: "E", Filter: queryir.Field("f", ir.List{})}, "list value cannot be compared"},
		{"object", queryir.Select{Entity: "E", Filter: queryir.Field("f", ir.Object{})}, "object value cannot be compared"},
		{"empty path", queryir.Select{Entity: "E", Filter: queryir.Equals{Value: ir.Int(1)}}, "empty field path"},
		{"quote", queryir.Select{Entity: "E", Filter: queryir.Field(`a"`, ir.Int(1))}, "cannot be addressed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewSQLCompiler().Compile(tt.query)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
