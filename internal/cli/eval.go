package cli

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/islproof/internal/ast"
	"github.com/roach88/islproof/internal/eval"
	"github.com/roach88/islproof/internal/evidence"
	"github.com/roach88/islproof/internal/harness"
	"github.com/roach88/islproof/internal/ir"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Expr      string // expression JSON, or @file
	Context   string // execution file (YAML or JSON)
	Contracts string // contracts path, with Behavior
	Behavior  string
	Explain   bool // include the result tree
}

// ExprResult is the outcome of evaluating a single expression.
type ExprResult struct {
	Truth  string       `json:"truth"`
	Value  any          `json:"value,omitempty"`
	Reason string       `json:"reason,omitempty"`
	Tree   *eval.Result `json:"tree,omitempty"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate an expression or a behavior against one execution",
		Long: `Evaluate a single expression, or every clause of a behavior, against
one execution.

The context file has the shape of a scenario execution: input, result,
old_state, variables, entities and old_entities. An expression is given
as its JSON tree, inline or as @file.

Exit codes:
  0 - The expression is true (every clause proven)
  1 - False or unknown
  2 - Command error

Examples:
  islproof eval --expr '{"kind":"binary","op":">","left":{"kind":"input","property":"amount"},"right":{"kind":"int","value":0}}' --context exec.yaml
  islproof eval --contracts ./contracts --behavior Transfer --context exec.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Expr, "expr", "", "expression JSON, or @file")
	cmd.Flags().StringVar(&opts.Context, "context", "", "execution file (YAML or JSON)")
	cmd.Flags().StringVar(&opts.Contracts, "contracts", "", "contracts to check, with --behavior")
	cmd.Flags().StringVar(&opts.Behavior, "behavior", "", "behavior to check, with --contracts")
	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "include the evaluation tree")

	return cmd
}

func runEval(opts *EvalOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	byExpr := opts.Expr != ""
	byBehavior := opts.Contracts != "" || opts.Behavior != ""
	switch {
	case byExpr && byBehavior:
		return commandError(formatter, ErrCodeGeneric, "--expr cannot be combined with --contracts/--behavior")
	case !byExpr && !byBehavior:
		return commandError(formatter, ErrCodeGeneric, "one of --expr or --contracts with --behavior is required")
	case byBehavior && (opts.Contracts == "" || opts.Behavior == ""):
		return commandError(formatter, ErrCodeGeneric, "--contracts and --behavior must be given together")
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	ex, err := readExecution(opts.Context)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, err.Error())
	}

	logger := opts.logger(cmd.ErrOrStderr())
	hopts := cfg.HarnessOptions(logger, nil)
	ctx := cmd.Context()

	ectx, release, err := harness.EvalContext(ctx, ex, hopts)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("building context: %v", err))
	}
	defer release()

	evaluator := eval.New(
		eval.WithConstantFolding(cfg.Eval.FoldConstants),
		eval.WithLogger(logger),
	)

	if byExpr {
		expr, err := readExpr(opts.Expr)
		if err != nil {
			return commandError(formatter, ErrCodeGeneric, err.Error())
		}
		r := evaluator.Evaluate(ctx, expr, ectx)
		return outputExprResult(formatter, r, opts.Explain)
	}

	behaviors, err := harness.LoadContracts([]string{opts.Contracts})
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, err.Error())
	}
	b, ok := behaviors[opts.Behavior]
	if !ok {
		return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("unknown behavior %q", opts.Behavior))
	}

	evs := evidence.NewCollector(evaluator, evidence.WithLogger(logger)).Collect(ctx, b.Clauses, ectx, "")
	return outputEvidence(formatter, evs)
}

// readExecution reads an execution file. An empty path is an execution
// with no bindings.
func readExecution(path string) (harness.Execution, error) {
	var ex harness.Execution
	if path == "" {
		return ex, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ex, fmt.Errorf("failed to read context file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ex); err != nil {
		return ex, fmt.Errorf("failed to parse context file: %w", err)
	}
	return ex, nil
}

// readExpr decodes an expression given inline or as @file.
func readExpr(arg string) (ast.Expr, error) {
	data := []byte(arg)
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read expression file: %w", err)
		}
	}
	expr, err := ast.UnmarshalExpr(data)
	if err != nil {
		return nil, fmt.Errorf("invalid expression: %w", err)
	}
	return expr, nil
}

func outputExprResult(formatter *OutputFormatter, r eval.Result, explain bool) error {
	out := ExprResult{Truth: r.Truth.String()}
	if r.Known() {
		out.Value = ir.ToGo(r.Value)
	}
	if r.Truth.IsUnknown() {
		root := r.RootCause()
		out.Reason = root.Reason
		if out.Reason == "" {
			out.Reason = root.Truth.Reason().Describe()
		}
	}
	if explain {
		out.Tree = &r
	}

	if formatter.Format == "json" {
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		fmt.Fprintln(w, out.Truth)
		if out.Value != nil {
			data, _ := ir.MarshalValue(r.Value)
			fmt.Fprintf(w, "value: %s\n", data)
		}
		if out.Reason != "" {
			fmt.Fprintf(w, "reason: %s\n", out.Reason)
		}
		if explain {
			printTree(formatter, r, 0)
		}
	}

	if !r.Truth.IsTrue() {
		return NewExitError(ExitFailure, fmt.Sprintf("expression is %s", r.Truth))
	}
	return nil
}

// printTree prints one line per node: the value of a known node, the
// unknown truth otherwise.
func printTree(formatter *OutputFormatter, r eval.Result, depth int) {
	label := r.Truth.String()
	if r.Known() {
		data, _ := ir.MarshalValue(r.Value)
		label = string(data)
	}
	line := strings.Repeat("  ", depth) + label
	if r.Span.Line > 0 {
		line += fmt.Sprintf(" @%d:%d", r.Span.Line, r.Span.Column)
	}
	if r.Reason != "" {
		line += " " + r.Reason
	}
	fmt.Fprintln(formatter.Writer, line)
	for _, c := range r.Children {
		printTree(formatter, c, depth+1)
	}
}

func outputEvidence(formatter *OutputFormatter, evs []evidence.ClauseEvidence) error {
	summary := evidence.Summarize(evs)

	if formatter.Format == "json" {
		if err := formatter.Success(evs); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, ev := range evs {
			fmt.Fprintf(w, "%-10s %s", ev.Status, ev.ClauseID)
			if ev.Reason != "" {
				fmt.Fprintf(w, "  (%s)", ev.Reason)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "\n%d proven, %d not proven, %d failed\n", summary.Proven, summary.NotProven, summary.Failed)
	}

	if summary.Proven < summary.Total {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d clauses not proven", summary.Total-summary.Proven, summary.Total))
	}
	return nil
}
