package compiler

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/islproof/internal/ast"
	"github.com/roach88/islproof/internal/contract"
)

// LoadMode controls how errors are handled during contract loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Load error codes. Validation codes (E1xx) are in validate.go.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No contract files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeCompile     = "E007" // Clause compile failed
)

// LoadResult contains the behaviors loaded from a directory.
type LoadResult struct {
	// Behaviors in declaration order.
	Behaviors []*contract.Behavior
	FileCount int
}

// Set indexes the behaviors by name.
func (r *LoadResult) Set() contract.Set {
	set := make(contract.Set, len(r.Behaviors))
	for _, b := range r.Behaviors {
		set[b.Name] = b
	}
	return set
}

// LoadError represents an error that occurred during contract loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDir loads and compiles the CUE contracts in dir.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("contracts directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing contracts directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{FileCount: len(cueFiles)}
	errs := compileBehaviors(value, mode, result)

	if len(result.Behaviors) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no contracts found"})
	}
	return result, errs
}

// LoadFile loads and compiles a single CUE contract file.
func LoadFile(path string, mode LoadMode) (*LoadResult, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading %s: %v", path, err)}}
	}

	value := cuecontext.New().CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{FileCount: 1}
	errs := compileBehaviors(value, mode, result)
	if len(result.Behaviors) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("no contracts found in %s", path)})
	}
	return result, errs
}

// Load dispatches on path: a directory is loaded with LoadDir, a .json
// file with LoadJSON and anything else with LoadFile.
func Load(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("contracts not found: %s", path)}}
	}
	switch {
	case info.IsDir():
		return LoadDir(path, mode)
	case filepath.Ext(path) == ".json":
		result, err := LoadJSON(path)
		if err != nil {
			return nil, []error{err}
		}
		return result, nil
	default:
		return LoadFile(path, mode)
	}
}

// CompileValue compiles every behavior under the "contract" field of v.
func CompileValue(v cue.Value, mode LoadMode) (*LoadResult, []error) {
	result := &LoadResult{}
	errs := compileBehaviors(v, mode, result)
	return result, errs
}

func compileBehaviors(value cue.Value, mode LoadMode, result *LoadResult) []error {
	var errs []error

	contractsVal := value.LookupPath(cue.ParsePath("contract"))
	if !contractsVal.Exists() {
		return nil
	}

	iter, err := contractsVal.Fields()
	if err != nil {
		return []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating contracts: %v", err)}}
	}
	for iter.Next() {
		b, err := CompileContract(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "contract."+iter.Label()))
			if mode == LoadModeFailFast {
				return errs
			}
			continue
		}
		result.Behaviors = append(result.Behaviors, b)
	}
	return errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if stderrors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeCompile,
			Message: fmt.Sprintf("%s: %s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// bundle is the JSON export format of a contract set.
type bundle struct {
	Behaviors []bundleBehavior `json:"behaviors"`
}

type bundleBehavior struct {
	Name    string         `json:"name"`
	Domain  string         `json:"domain,omitempty"`
	Clauses []bundleClause `json:"clauses"`
}

type bundleClause struct {
	ID          string            `json:"id"`
	Kind        contract.Kind     `json:"kind"`
	Category    contract.Category `json:"category,omitempty"`
	Description string            `json:"description,omitempty"`
	Expr        json.RawMessage   `json:"expr,omitempty"`
}

// LoadJSON reads a JSON contract bundle:
//
//	{"behaviors": [{"name": "...", "domain": "...", "clauses": [
//	  {"id": "...", "kind": "postcondition", "category": "...", "expr": {...}}
//	]}]}
func LoadJSON(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}
	return ParseJSON(data)
}

// ParseJSON parses a JSON contract bundle.
func ParseJSON(data []byte) (*LoadResult, error) {
	var bun bundle
	if err := json.Unmarshal(data, &bun); err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("decoding contract bundle: %v", err)}
	}

	result := &LoadResult{FileCount: 1}
	for _, bb := range bun.Behaviors {
		b := &contract.Behavior{Name: bb.Name, Domain: bb.Domain}
		for _, bc := range bb.Clauses {
			c := contract.Clause{
				ID:          bc.ID,
				Kind:        bc.Kind,
				Category:    bc.Category,
				Behavior:    bb.Name,
				Description: bc.Description,
			}
			if c.Category == "" {
				c.Category = contract.DefaultCategory(c.Kind)
			}
			if len(bc.Expr) > 0 {
				expr, err := ast.UnmarshalExpr(bc.Expr)
				if err != nil {
					return nil, &LoadError{
						Code:    ErrCodeCompile,
						Message: fmt.Sprintf("contract.%s clause %q: %v", bb.Name, bc.ID, err),
					}
				}
				c.Expr = expr
			}
			b.Clauses = append(b.Clauses, c)
		}
		result.Behaviors = append(result.Behaviors, b)
	}
	return result, nil
}

// MarshalJSON exports behaviors as a JSON contract bundle readable by
// ParseJSON.
func MarshalJSON(behaviors []*contract.Behavior) ([]byte, error) {
	bun := bundle{Behaviors: make([]bundleBehavior, 0, len(behaviors))}
	for _, b := range behaviors {
		bb := bundleBehavior{Name: b.Name, Domain: b.Domain, Clauses: []bundleClause{}}
		for _, c := range b.Clauses {
			bc := bundleClause{ID: c.ID, Kind: c.Kind, Category: c.Category, Description: c.Description}
			if c.Expr != nil {
				raw, err := ast.MarshalExpr(c.Expr)
				if err != nil {
					return nil, fmt.Errorf("contract.%s clause %q: %w", b.Name, c.ID, err)
				}
				bc.Expr = raw
			}
			bb.Clauses = append(bb.Clauses, bc)
		}
		bun.Behaviors = append(bun.Behaviors, bb)
	}
	return json.MarshalIndent(bun, "", "  ")
}
