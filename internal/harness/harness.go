package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/roach88/islproof/internal/adapter"
	"github.com/roach88/islproof/internal/ast"
	"github.com/roach88/islproof/internal/compiler"
	"github.com/roach88/islproof/internal/contract"
	"github.com/roach88/islproof/internal/eval"
	"github.com/roach88/islproof/internal/evidence"
	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/metrics"
	"github.com/roach88/islproof/internal/store"
	"github.com/roach88/islproof/internal/trace"
	"github.com/roach88/islproof/internal/trust"
	"github.com/roach88/islproof/internal/verdict"
)

// Options configures a scenario run. The zero value runs sequentially
// with default limits and no persistence.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Recorder

	// Cache memoizes evaluations across executions. Nil disables caching.
	Cache eval.Cache
	// FoldConstants enables constant folding in the evaluator.
	FoldConstants bool

	MaxDepth       int
	AdapterTimeout time.Duration

	// Parallelism bounds concurrent clause evaluations per execution.
	// Values below 2 evaluate clauses one after another.
	Parallelism int

	// Trust overrides trust.DefaultPolicy.
	Trust *trust.Policy

	// IDs generates trace and event IDs. Nil uses a SequenceGenerator
	// prefixed with the scenario name.
	IDs trace.IDGenerator

	// Store persists the run and its evidence when non-nil.
	Store *store.Store
}

// Harness carries the shared state of one scenario run.
type Harness struct {
	opts      Options
	logger    *slog.Logger
	behaviors contract.Set
	evaluator *eval.Evaluator
	clock     *trace.Clock
	ids       trace.IDGenerator
	runID     string
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load and validate the contracts
// 2. Derive the run ID from the scenario and its clauses
// 3. Check each execution in a fresh in-memory entity store
// 4. Compute trust score and proof verdict
// 5. Compare expectations and assertions, then persist if configured
//
// Mismatches are reported in Result.Errors. The returned error is for
// scenarios that cannot run at all.
func Run(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	behaviors, err := LoadContracts(scenario.Contracts)
	if err != nil {
		return nil, err
	}

	runID, err := deriveRunID(scenario, behaviors)
	if err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}

	evalOpts := []eval.Option{
		eval.WithConstantFolding(opts.FoldConstants),
		eval.WithLogger(logger),
	}
	if opts.Cache != nil {
		evalOpts = append(evalOpts, eval.WithCache(opts.Cache))
	}

	ids := opts.IDs
	if ids == nil {
		ids = trace.NewSequenceGenerator(scenario.Name)
	}

	h := &Harness{
		opts:      opts,
		logger:    logger.With("scenario", scenario.Name, "run_id", runID),
		behaviors: behaviors,
		evaluator: eval.New(evalOpts...),
		clock:     trace.NewClock(),
		ids:       ids,
		runID:     runID,
	}

	result := NewResult()
	result.RunID = runID

	failedExecutions := 0
	for i, ex := range scenario.Executions {
		failed, err := h.executeOne(ctx, i, ex, result)
		if err != nil {
			return nil, fmt.Errorf("execution %s: %w", ex.id(i), err)
		}
		if failed {
			failedExecutions++
		}
	}

	result.Summary = evidence.Summarize(result.Evidence)

	policy := trust.DefaultPolicy()
	if opts.Trust != nil {
		policy = *opts.Trust
	}
	result.Trust = trust.NewCalculator(policy).Calculate(result.Evidence)

	result.Tests = testSummary(scenario, failedExecutions)
	result.Verdict = verdict.Compute(scenario.Gate, scenario.Build, result.Tests, scenario.NoTests)

	if scenario.ExpectVerdict != "" && scenario.ExpectVerdict != result.Verdict.Kind {
		result.AddError(fmt.Sprintf("verdict: expected %s, got %s", scenario.ExpectVerdict, result.Verdict))
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	if opts.Store != nil {
		if err := persist(ctx, opts.Store, scenario.Name, result); err != nil {
			return nil, err
		}
	}

	h.logger.Info("scenario verified",
		"verdict", result.Verdict.Kind,
		"trust", result.Trust.Overall,
		"recommendation", result.Trust.Recommendation,
		"pass", result.Pass,
	)
	return result, nil
}

// LoadContracts loads every contract path into one validated set.
func LoadContracts(paths []string) (contract.Set, error) {
	set := contract.Set{}
	for _, p := range paths {
		loaded, errs := compiler.Load(p, compiler.LoadModeCollectAll)
		if len(errs) > 0 {
			return nil, fmt.Errorf("load contracts %s: %w", p, errors.Join(errs...))
		}
		for _, b := range loaded.Behaviors {
			if _, dup := set[b.Name]; dup {
				return nil, fmt.Errorf("load contracts %s: behavior %s defined twice", p, b.Name)
			}
			set[b.Name] = b
		}
	}

	if verrs := compiler.Validate(set); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return nil, fmt.Errorf("invalid contracts: %w", errors.Join(errs...))
	}
	return set, nil
}

// executeOne checks one execution and reports whether any clause failed.
func (h *Harness) executeOne(ctx context.Context, index int, ex Execution, result *Result) (bool, error) {
	id := ex.id(index)
	b, ok := h.behaviors[ex.Behavior]
	if !ok {
		result.AddError(fmt.Sprintf("execution %s: unknown behavior %q", id, ex.Behavior))
		return true, nil
	}

	ectx, initial, closeStores, err := h.buildContext(ctx, id, ex)
	if err != nil {
		return false, err
	}
	defer closeStores()

	rec := trace.NewRecorder(b.Domain, b.Name, trace.WithClock(h.clock), trace.WithIDGenerator(h.ids))
	rec.CaptureInitialState(initial)
	rec.Call(b.Name, ectx.Input)
	if ectx.Result != nil {
		rec.Return(b.Name, ectx.Result)
	}

	collector := evidence.NewCollector(h.evaluator,
		evidence.WithLogger(h.logger),
		evidence.WithMetrics(h.opts.Metrics),
		evidence.WithTrace(rec),
		evidence.WithRunID(h.runID),
		evidence.WithParallelism(h.opts.Parallelism),
	)

	var evs []evidence.ClauseEvidence
	if h.opts.Parallelism > 1 {
		evs, err = collector.CollectParallel(ctx, b.Clauses, ectx, id)
		if err != nil {
			return false, err
		}
	} else {
		evs = collector.Collect(ctx, b.Clauses, ectx, id)
	}

	for _, msg := range checkExpectations(id, b, ex.Expect, evs) {
		rec.Error("EXPECTATION_MISMATCH", msg)
		result.AddError(msg)
	}

	failed := evidence.Summarize(evs).Failed > 0
	result.Evidence = append(result.Evidence, evs...)
	result.Traces = append(result.Traces, rec.Finalize(!failed))

	h.logger.Debug("execution checked",
		"execution", id,
		"behavior", b.Name,
		"clauses", len(evs),
		"failed", failed,
	)
	return failed, nil
}

// buildContext converts an execution's bindings into an evaluation
// context. It returns the pre-execution state for the trace and a
// function that closes the entity stores.
func (h *Harness) buildContext(ctx context.Context, id string, ex Execution) (*eval.Context, ir.Object, func(), error) {
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	fail := func(format string, args ...any) (*eval.Context, ir.Object, func(), error) {
		closeAll()
		return nil, nil, func() {}, fmt.Errorf(format, args...)
	}

	input, err := ir.ObjectFromGo(ex.Input)
	if err != nil {
		return fail("input: %w", err)
	}
	vars, err := ir.ObjectFromGo(ex.Variables)
	if err != nil {
		return fail("variables: %w", err)
	}

	opts := []eval.ContextOption{
		eval.WithInput(input),
		eval.WithVariables(vars),
		eval.WithMaxDepth(h.opts.MaxDepth),
		eval.WithAdapterTimeout(h.opts.AdapterTimeout),
		eval.WithKey(h.runID + "/" + id),
	}

	if ex.Result.Kind != 0 {
		var raw any
		if err := ex.Result.Decode(&raw); err != nil {
			return fail("result: %w", err)
		}
		res, err := ir.FromGo(raw)
		if err != nil {
			return fail("result: %w", err)
		}
		opts = append(opts, eval.WithResult(res))
	}

	if len(ex.Entities) > 0 {
		st, err := loadEntities(ctx, ex.Entities)
		if err != nil {
			return fail("entities: %w", err)
		}
		closers = append(closers, func() { st.Close() })
		opts = append(opts, eval.WithAdapter(st.Entities()))
	}

	var initial ir.Object
	if ex.OldState != nil || ex.OldEntities != nil {
		initial, err = ir.ObjectFromGo(ex.OldState)
		if err != nil {
			return fail("old_state: %w", err)
		}
		var oldAdapter adapter.Adapter
		if ex.OldEntities != nil {
			st, err := loadEntities(ctx, ex.OldEntities)
			if err != nil {
				return fail("old_entities: %w", err)
			}
			closers = append(closers, func() { st.Close() })
			oldAdapter = st.Entities()
		}
		opts = append(opts, eval.WithOldState(eval.CaptureSnapshot(initial, oldAdapter)))
	}

	return eval.NewContext(opts...), initial, closeAll, nil
}

// EvalContext builds the evaluation context of a single execution outside
// any scenario. The returned function releases its entity stores.
func EvalContext(ctx context.Context, ex Execution, opts Options) (*eval.Context, func(), error) {
	h := &Harness{opts: opts}
	ectx, _, closeAll, err := h.buildContext(ctx, ex.id(0), ex)
	return ectx, closeAll, err
}

// loadEntities opens an in-memory store holding records. Entities are
// inserted in name order and records in list order; a record's "id" field
// is its key, its position otherwise. Two records of an entity may not
// share a key.
func loadEntities(ctx context.Context, records map[string][]map[string]any) (*store.Store, error) {
	st, err := store.OpenMemory()
	if err != nil {
		return nil, err
	}
	for _, entity := range slices.Sorted(maps.Keys(records)) {
		for i, raw := range records[entity] {
			rec, err := ir.ObjectFromGo(raw)
			if err != nil {
				st.Close()
				return nil, fmt.Errorf("%s[%d]: %w", entity, i, err)
			}
			if err := st.PutEntity(ctx, entity, recordKey(rec, i), rec); err != nil {
				st.Close()
				return nil, fmt.Errorf("%s[%d]: %w", entity, i, err)
			}
		}
		n, err := st.CountEntities(ctx, entity)
		if err != nil {
			st.Close()
			return nil, err
		}
		if n != len(records[entity]) {
			st.Close()
			return nil, fmt.Errorf("%s: duplicate record id", entity)
		}
	}
	return st, nil
}

func recordKey(rec ir.Object, index int) string {
	switch id := rec["id"].(type) {
	case ir.String:
		if id != "" {
			return string(id)
		}
	case ir.Int:
		return fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("#%d", index)
}

// checkExpectations compares evidence against the expected outcomes, in
// clause id order.
func checkExpectations(execution string, b *contract.Behavior, expect map[string]Expectation, evs []evidence.ClauseEvidence) []string {
	byClause := make(map[string]evidence.ClauseEvidence, len(evs))
	for _, ev := range evs {
		byClause[ev.ClauseID] = ev
	}

	var msgs []string
	for _, clauseID := range slices.Sorted(maps.Keys(expect)) {
		want := expect[clauseID]
		ev, ok := byClause[clauseID]
		if !ok {
			msgs = append(msgs, fmt.Sprintf("execution %s: behavior %s has no clause %q", execution, b.Name, clauseID))
			continue
		}
		if ev.Status != want.Status {
			msgs = append(msgs, fmt.Sprintf("execution %s: clause %s: expected %s, got %s (%s)",
				execution, clauseID, want.Status, ev.Status, ev.Reason))
			continue
		}
		if want.Reason != "" && string(ev.UnknownReason) != want.Reason {
			msgs = append(msgs, fmt.Sprintf("execution %s: clause %s: expected reason %s, got %q",
				execution, clauseID, want.Reason, ev.UnknownReason))
		}
	}
	return msgs
}

// testSummary returns the declared test results, or derives them from the
// executions: an execution passes when none of its clauses failed. A
// no_tests declaration stands for an empty passing suite only while no
// execution failed.
func testSummary(s *Scenario, failedExecutions int) *verdict.TestResult {
	if s.Tests != nil {
		return s.Tests
	}
	if s.NoTests != nil && failedExecutions == 0 {
		return &verdict.TestResult{Status: verdict.Pass}
	}
	total := len(s.Executions)
	status := verdict.Pass
	if failedExecutions > 0 {
		status = verdict.Fail
	}
	return &verdict.TestResult{
		Status:      status,
		TotalTests:  total,
		PassedTests: total - failedExecutions,
		FailedTests: failedExecutions,
	}
}

// deriveRunID derives the run identity from the scenario content and the hash of
// every clause in the contract set.
func deriveRunID(s *Scenario, behaviors contract.Set) (string, error) {
	var hashes []string
	for _, name := range behaviors.Names() {
		for _, c := range behaviors[name].Clauses {
			h, err := ast.Hash(c.Expr)
			if err != nil {
				return "", fmt.Errorf("clause %s: %w", c.QualifiedID(), err)
			}
			hashes = append(hashes, c.QualifiedID()+"="+h)
		}
	}
	scenario := s.Name
	if s.digest != "" {
		scenario += "@" + s.digest
	}
	return ir.RunID(scenario, hashes)
}

// persist writes the run and its evidence to st.
func persist(ctx context.Context, st *store.Store, scenario string, result *Result) error {
	inserted, err := st.WriteRun(ctx, store.Run{
		ID:         result.RunID,
		Scenario:   scenario,
		Report:     result.Report(),
		TestsTotal: result.TestsTotal(),
	})
	if err != nil {
		return fmt.Errorf("persist run: %w", err)
	}
	if !inserted {
		return nil
	}
	if err := st.WriteEvidence(ctx, result.RunID, result.Evidence); err != nil {
		return fmt.Errorf("persist evidence: %w", err)
	}
	return nil
}
