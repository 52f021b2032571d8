package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/islproof/internal/ast"
	"github.com/roach88/islproof/internal/contract"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "transfer.cue", transferCUE)
	writeFile(t, dir, "refund.cue", `
contract: Refund: postconditions: [{
	id:   "refunded"
	expr: {kind: "binary", op: "==", left: {kind: "result", property: "status"}, right: {kind: "string", value: "REFUNDED"}}
}]
`)

	result, errs := LoadDir(dir, LoadModeCollectAll)
	require.Empty(t, errs)
	require.NotNil(t, result)

	assert.Equal(t, 2, result.FileCount)
	set := result.Set()
	assert.Equal(t, []string{"Refund", "Transfer"}, set.Names())
	assert.Len(t, set["Transfer"].Clauses, 3)
	assert.Len(t, set["Refund"].Clauses, 1)
}

func TestLoadDir_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		_, errs := LoadDir(filepath.Join(t.TempDir(), "missing"), LoadModeFailFast)
		require.Len(t, errs, 1)
		assertLoadCode(t, errs[0], ErrCodeNotFound)
	})

	t.Run("not a directory", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "transfer.cue", transferCUE)
		_, errs := LoadDir(filepath.Join(dir, "transfer.cue"), LoadModeFailFast)
		require.Len(t, errs, 1)
		assertLoadCode(t, errs[0], ErrCodeNotFound)
	})

	t.Run("no files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "README.md", "# contracts")
		_, errs := LoadDir(dir, LoadModeFailFast)
		require.Len(t, errs, 1)
		assertLoadCode(t, errs[0], ErrCodeNoFiles)
	})

	t.Run("no contracts", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "other.cue", `settings: debug: true`)
		_, errs := LoadDir(dir, LoadModeFailFast)
		require.Len(t, errs, 1)
		assertLoadCode(t, errs[0], ErrCodeGeneric)
	})

	t.Run("conflicting values", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.cue", `contract: Op: domain: "a"`)
		writeFile(t, dir, "b.cue", `contract: Op: domain: "b"`)
		_, errs := LoadDir(dir, LoadModeFailFast)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), "conflicting values")
	})
}

const twoBrokenCUE = `
contract: A: postconditions: [{expr: {kind: "bool", value: true}}]
contract: B: postconditions: [{id: "q", expr: {kind: "lasso"}}]
contract: C: postconditions: [{id: "ok", expr: {kind: "bool", value: true}}]
`

func TestLoadDir_FailFastVsCollectAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.cue", twoBrokenCUE)

	result, errs := LoadDir(dir, LoadModeFailFast)
	require.Len(t, errs, 1)
	assertLoadCode(t, errs[0], ErrCodeCompile)
	assert.Contains(t, errs[0].Error(), "contract.A")
	assert.Empty(t, result.Behaviors)

	result, errs = LoadDir(dir, LoadModeCollectAll)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "contract.A")
	assert.Contains(t, errs[1].Error(), "contract.B")
	require.Len(t, result.Behaviors, 1)
	assert.Equal(t, "C", result.Behaviors[0].Name)
}

func TestCompileValue(t *testing.T) {
	v := cuecontext.New().CompileString(transferCUE, cue.Filename("transfer.cue"))
	require.NoError(t, v.Err())

	result, errs := CompileValue(v, LoadModeFailFast)
	require.Empty(t, errs)
	require.Len(t, result.Behaviors, 1)
	assert.Equal(t, "Transfer", result.Behaviors[0].Name)
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cue", "")
	writeFile(t, dir, "nested/b.cue", "")
	writeFile(t, dir, "c.json", "{}")

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.cue"),
		filepath.Join(dir, "nested", "b.cue"),
	}, files)
}

func TestLoadError_Error(t *testing.T) {
	err := &LoadError{Code: ErrCodeNoFiles, Message: "no CUE files found in x"}
	assert.Equal(t, "E003: no CUE files found in x", err.Error())
}

func TestJSONBundle(t *testing.T) {
	v := cuecontext.New().CompileString(transferCUE, cue.Filename("transfer.cue"))
	require.NoError(t, v.Err())
	compiled, errs := CompileValue(v, LoadModeFailFast)
	require.Empty(t, errs)

	data, err := MarshalJSON(compiled.Behaviors)
	require.NoError(t, err)

	parsed, err := ParseJSON(data)
	require.NoError(t, err)
	require.Len(t, parsed.Behaviors, 1)

	want, got := compiled.Behaviors[0], parsed.Behaviors[0]
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Domain, got.Domain)
	require.Len(t, got.Clauses, len(want.Clauses))
	for i := range want.Clauses {
		assert.Equal(t, want.Clauses[i].ID, got.Clauses[i].ID)
		assert.Equal(t, want.Clauses[i].Kind, got.Clauses[i].Kind)
		assert.Equal(t, want.Clauses[i].Category, got.Clauses[i].Category)
		assert.Equal(t, want.Clauses[i].Description, got.Clauses[i].Description)
		assert.Equal(t, want.Clauses[i].Expr, got.Clauses[i].Expr)
	}
}

func TestParseJSON(t *testing.T) {
	t.Run("default category", func(t *testing.T) {
		data := `{"behaviors":[{"name":"Op","clauses":[
			{"id":"q","kind":"postcondition","expr":{"kind":"bool","value":true}}
		]}]}`
		result, err := ParseJSON([]byte(data))
		require.NoError(t, err)
		c := result.Behaviors[0].Clauses[0]
		assert.Equal(t, contract.Postconditions, c.Category)
		assert.Equal(t, "Op", c.Behavior)
		assert.Equal(t, ast.Bool(true), c.Expr)
	})

	t.Run("malformed bundle", func(t *testing.T) {
		_, err := ParseJSON([]byte(`{"behaviors":`))
		require.Error(t, err)
		assertLoadCode(t, err, ErrCodeLoadFailed)
	})

	t.Run("malformed expression", func(t *testing.T) {
		data := `{"behaviors":[{"name":"Op","clauses":[{"id":"q","kind":"invariant","expr":{"kind":"lasso"}}]}]}`
		_, err := ParseJSON([]byte(data))
		require.Error(t, err)
		assertLoadCode(t, err, ErrCodeCompile)
		assert.Contains(t, err.Error(), `contract.Op clause "q"`)
	})
}

func TestLoadJSON_Missing(t *testing.T) {
	_, err := LoadJSON(filepath.Join(t.TempDir(), "bundle.json"))
	require.Error(t, err)
	assertLoadCode(t, err, ErrCodeNotFound)
}

func assertLoadCode(t *testing.T, err error, code string) {
	t.Helper()
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, code, le.Code, "error: %v", err)
}

func TestLoad_Dispatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "contracts/transfer.cue", transferCUE)

	v := cuecontext.New().CompileString(transferCUE)
	compiled, errs := CompileValue(v, LoadModeFailFast)
	require.Empty(t, errs)
	bundle, err := MarshalJSON(compiled.Behaviors)
	require.NoError(t, err)
	writeFile(t, dir, "bundle.json", string(bundle))

	for _, path := range []string{
		filepath.Join(dir, "contracts"),
		filepath.Join(dir, "contracts", "transfer.cue"),
		filepath.Join(dir, "bundle.json"),
	} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			result, errs := Load(path, LoadModeFailFast)
			require.Empty(t, errs)
			require.Len(t, result.Behaviors, 1)
			assert.Equal(t, "Transfer", result.Behaviors[0].Name)
			assert.Len(t, result.Behaviors[0].Clauses, 3)
		})
	}

	_, errs = Load(filepath.Join(dir, "missing.cue"), LoadModeFailFast)
	require.Len(t, errs, 1)
	assertLoadCode(t, errs[0], ErrCodeNotFound)
}

func TestLoadFile_SpanUsesBaseName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "transfer.cue", transferCUE)

	result, errs := LoadFile(filepath.Join(dir, "transfer.cue"), LoadModeFailFast)
	require.Empty(t, errs)
	assert.Equal(t, "transfer.cue", result.Behaviors[0].Clauses[0].Span().File)
}

func TestLoadFile_NoContracts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "other.cue", `settings: debug: true`)

	_, errs := LoadFile(filepath.Join(dir, "other.cue"), LoadModeFailFast)
	require.Len(t, errs, 1)
	assertLoadCode(t, errs[0], ErrCodeGeneric)
}
