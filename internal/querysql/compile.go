// Package querysql compiles QueryIR to parameterized SQLite.
//
// Entity records are JSON documents in the entities table; predicates
// become json_extract/json_type comparisons. Every value and every JSON
// path is bound as a parameter, never interpolated, and every query ends
// in ORDER BY seq, id so results are reproducible.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/queryir"
)

// orderBy is appended to every compiled query.
const orderBy = " ORDER BY seq ASC, id ASC COLLATE BINARY"

// SQLCompiler compiles QueryIR to SQL for the entities table.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to SQL selecting (seq, id, data) rows.
// Returns (sql, params, error).
//
// Comparisons against lists and objects cannot be pushed down and are
// rejected; callers check queryir.Validate first and match such criteria
// in memory.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		if query == nil {
			return "", nil, fmt.Errorf("cannot compile nil query")
		}
		return c.compileSelect(*query)
	case nil:
		return "", nil, fmt.Errorf("cannot compile nil query")
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	if q.Entity == "" {
		return "", nil, fmt.Errorf("select: empty entity name")
	}
	if q.Limit < 0 {
		return "", nil, fmt.Errorf("select: negative limit %d", q.Limit)
	}

	var sb strings.Builder
	sb.WriteString("SELECT seq, id, data FROM entities WHERE entity = ?")
	params := []any{q.Entity}

	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		sb.WriteString(" AND ")
		sb.WriteString(filterSQL)
		params = append(params, filterParams...)
	}

	sb.WriteString(orderBy)

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}

	return sb.String(), params, nil
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles an equality on one JSON path.
//
// json_extract maps JSON true/false to 1/0, which would make true equal
// the number 1, so booleans and nulls are compared through json_type.
// Strings and numbers compare through json_extract; SQLite applies no
// affinity to either side, so a JSON string never equals a number.
func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	path, err := jsonPath(eq.Path)
	if err != nil {
		return "", nil, err
	}

	switch v := eq.Value.(type) {
	case nil, ir.Null:
		return "json_type(data, ?) = 'null'", []any{path}, nil
	case ir.Bool:
		typ := "false"
		if v {
			typ = "true"
		}
		return "json_type(data, ?) = ?", []any{path, typ}, nil
	case ir.String:
		return "json_extract(data, ?) = ?", []any{path, string(v)}, nil
	case ir.Int:
		return "json_extract(data, ?) = ?", []any{path, int64(v)}, nil
	case ir.Float:
		return "json_extract(data, ?) = ?", []any{path, float64(v)}, nil
	default:
		return "", nil, fmt.Errorf("field %q: %s value cannot be compared in SQL", eq.String(), ir.TypeName(eq.Value))
	}
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, ps, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}

	if len(parts) == 1 {
		return parts[0], params, nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}

// jsonPath renders keys as a SQLite JSON path with every key quoted:
// {"owner", "email"} becomes $."owner"."email".
func jsonPath(keys []string) (string, error) {
	if len(keys) == 0 {
		return "", fmt.Errorf("empty field path")
	}
	var sb strings.Builder
	sb.WriteString("$")
	for _, k := range keys {
		if k == "" || strings.ContainsAny(k, `"\`) {
			return "", fmt.Errorf("field key %q cannot be addressed", k)
		}
		sb.WriteString(`."`)
		sb.WriteString(k)
		sb.WriteString(`"`)
	}
	return sb.String(), nil
}
