package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/islproof/internal/compiler"
	"github.com/roach88/islproof/internal/contract"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledBehavior summarizes one compiled behavior.
type CompiledBehavior struct {
	Name    string         `json:"name"`
	Domain  string         `json:"domain,omitempty"`
	Clauses map[string]int `json:"clauses"` // count per kind
}

// CompilationResult summarizes a compilation.
type CompilationResult struct {
	Behaviors []CompiledBehavior `json:"behaviors"`
	Output    string             `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <contracts>",
		Short: "Compile CUE contracts to a JSON bundle",
		Long: `Compile CUE contracts into a JSON bundle.

The bundle holds every behavior with its clauses and expression trees.
Scenarios and the validate command accept it in place of the CUE
sources, so contracts can be shipped without the CUE toolchain.

Examples:
  islproof compile ./contracts -o contracts.json
  islproof compile ./contracts/banking.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loadResult, loadErrors := compiler.Load(path, compiler.LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := splitLoadError(loadErrors[0])
		return commandError(formatter, code, message)
	}
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	if verrs := compiler.Validate(loadResult.Set()); len(verrs) > 0 {
		return outputValidationErrors(formatter, ValidationResult{
			Behaviors: len(loadResult.Behaviors),
			Errors:    verrs,
		})
	}

	for _, b := range loadResult.Behaviors {
		formatter.VerboseLog("Compiled behavior: %s", b.Name)
	}

	if opts.Output != "" {
		data, err := compiler.MarshalJSON(loadResult.Behaviors)
		if err != nil {
			return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("marshaling bundle: %v", err))
		}
		if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
			return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("writing output file: %v", err))
		}
	}

	result := CompilationResult{Output: opts.Output}
	for _, b := range loadResult.Behaviors {
		result.Behaviors = append(result.Behaviors, summarizeBehavior(b))
	}
	return outputCompileSuccess(formatter, result)
}

func summarizeBehavior(b *contract.Behavior) CompiledBehavior {
	counts := map[string]int{}
	for _, c := range b.Clauses {
		counts[string(c.Kind)]++
	}
	return CompiledBehavior{Name: b.Name, Domain: b.Domain, Clauses: counts}
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result CompilationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d behavior(s)\n\n", len(result.Behaviors))
	for _, b := range result.Behaviors {
		fmt.Fprintf(w, "  %s: %d precondition(s), %d postcondition(s), %d invariant(s)\n",
			b.Name, b.Clauses[string(contract.Precondition)],
			b.Clauses[string(contract.Postcondition)], b.Clauses[string(contract.Invariant)])
	}
	if result.Output != "" {
		fmt.Fprintf(w, "\nWrote bundle to %s\n", result.Output)
	}
	return nil
}

// outputCompileErrors outputs clause compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := splitLoadError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}

		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Compilation failed")
	fmt.Fprintln(w)

	for _, err := range errs {
		code, message := splitLoadError(err)
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(w, "%s:%d:%d\n", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		fmt.Fprintf(w, "  %s: %s\n\n", code, message)
	}

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// writeJSONFile writes v as indented JSON.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
