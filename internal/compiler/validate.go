package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/islproof/internal/ast"
	"github.com/roach88/islproof/internal/contract"
)

// Validation error codes (E100-E199)
const (
	ErrUnsupportedType    = "E100" // unsupported value passed to Validate
	ErrBehaviorNameEmpty  = "E101" // behavior name is required
	ErrBehaviorNoClauses  = "E102" // at least one clause required
	ErrDuplicateClauseID  = "E103" // clause ids are unique per behavior
	ErrClauseNoExpr       = "E104" // clause has no expression
	ErrInvalidCategory    = "E105" // unknown clause kind or category
	ErrNestedOld          = "E106" // old() inside old()
	ErrPreconditionOfPost = "E107" // precondition reads old() or result
)

// ValidationError represents a contract validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks behaviors against the contract rules.
// Returns all errors found (does not fail-fast).
// Accepts a *contract.Behavior, contract.Behavior or contract.Set.
func Validate(v any) []ValidationError {
	switch b := v.(type) {
	case *contract.Behavior:
		return validateBehavior(b)
	case contract.Behavior:
		return validateBehavior(&b)
	case contract.Set:
		var errs []ValidationError
		for _, name := range b.Names() {
			errs = append(errs, validateBehavior(b[name])...)
		}
		return errs
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

func validateBehavior(b *contract.Behavior) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(b.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "behavior name is required and must be non-empty",
			Code:    ErrBehaviorNameEmpty,
		})
	}

	if len(b.Clauses) == 0 {
		errs = append(errs, ValidationError{
			Field:   b.Name,
			Message: "at least one clause is required",
			Code:    ErrBehaviorNoClauses,
		})
	}

	seen := make(map[string]bool, len(b.Clauses))
	for i, c := range b.Clauses {
		field := fmt.Sprintf("%s.clauses[%d]", b.Name, i)
		line := c.Span().Line

		if seen[c.ID] {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate clause id: %q", c.ID),
				Code:    ErrDuplicateClauseID,
				Line:    line,
			})
		}
		seen[c.ID] = true

		if !c.Kind.Valid() {
			errs = append(errs, ValidationError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("invalid kind %q: must be precondition, postcondition or invariant", c.Kind),
				Code:    ErrInvalidCategory,
				Line:    line,
			})
		}
		if c.Category != "" && !c.Category.Valid() {
			errs = append(errs, ValidationError{
				Field:   field + ".category",
				Message: fmt.Sprintf("invalid category %q: must be one of %s", c.Category, categoryList()),
				Code:    ErrInvalidCategory,
				Line:    line,
			})
		}

		if c.Expr == nil {
			errs = append(errs, ValidationError{
				Field:   field + ".expr",
				Message: fmt.Sprintf("clause %q has no expression", c.ID),
				Code:    ErrClauseNoExpr,
				Line:    line,
			})
			continue
		}

		errs = append(errs, validateExpr(c, field)...)
	}

	return errs
}

// validateExpr reports old() nested in old() and, for preconditions,
// any reference to old state or the result.
func validateExpr(c contract.Clause, field string) []ValidationError {
	var errs []ValidationError
	precondition := c.Kind == contract.Precondition

	var walk func(e ast.Expr, inOld bool)
	walk = func(e ast.Expr, inOld bool) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case *ast.Old:
			if inOld {
				errs = append(errs, ValidationError{
					Field:   field + ".expr",
					Message: "old() nested inside old() has no effect",
					Code:    ErrNestedOld,
					Line:    n.Pos().Line,
				})
			}
			if precondition {
				errs = append(errs, ValidationError{
					Field:   field + ".expr",
					Message: "precondition refers to old(); the pre-state is the current state",
					Code:    ErrPreconditionOfPost,
					Line:    n.Pos().Line,
				})
			}
			walk(n.Expr, true)
			return
		case *ast.ResultRef:
			if precondition {
				errs = append(errs, ValidationError{
					Field:   field + ".expr",
					Message: "precondition refers to result, which does not exist before execution",
					Code:    ErrPreconditionOfPost,
					Line:    n.Pos().Line,
				})
			}
		}
		for _, child := range ast.Children(e) {
			walk(child, inOld)
		}
	}
	walk(c.Expr, false)

	return errs
}

func categoryList() string {
	names := make([]string, len(contract.Categories))
	for i, c := range contract.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
