package evidence

import (
	"context"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/islproof/internal/ast"
	"github.com/roach88/islproof/internal/contract"
	"github.com/roach88/islproof/internal/eval"
	"github.com/roach88/islproof/internal/ir"
	"github.com/roach88/islproof/internal/metrics"
	"github.com/roach88/islproof/internal/trace"
)

// DefaultParallelism bounds CollectParallel when no limit is configured.
const DefaultParallelism = 4

// Collector evaluates clauses and records their evidence.
type Collector struct {
	ev          *eval.Evaluator
	logger      *slog.Logger
	metrics     *metrics.Recorder
	trace       *trace.Recorder
	runID       string
	parallelism int
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger. Nil discards logs.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) { c.logger = l }
}

// WithMetrics records clause outcomes in m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(c *Collector) { c.metrics = m }
}

// WithTrace records a check event per clause in r.
func WithTrace(r *trace.Recorder) Option {
	return func(c *Collector) { c.trace = r }
}

// WithRunID scopes evidence IDs to a verification run.
func WithRunID(id string) Option {
	return func(c *Collector) { c.runID = id }
}

// WithParallelism bounds concurrent clause evaluations in CollectParallel.
func WithParallelism(n int) Option {
	return func(c *Collector) { c.parallelism = n }
}

// NewCollector creates a collector evaluating with ev. A nil ev uses a
// default evaluator.
func NewCollector(ev *eval.Evaluator, opts ...Option) *Collector {
	c := &Collector{ev: ev, parallelism: DefaultParallelism}
	for _, opt := range opts {
		opt(c)
	}
	if c.ev == nil {
		c.ev = eval.New()
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.parallelism < 1 {
		c.parallelism = 1
	}
	return c
}

// Collect evaluates clauses one after another against ec. execution
// identifies the test execution the context was built from.
func (c *Collector) Collect(ctx context.Context, clauses []contract.Clause, ec *eval.Context, execution string) []ClauseEvidence {
	out := make([]ClauseEvidence, len(clauses))
	for i, cl := range clauses {
		out[i] = c.check(ctx, cl, ec, execution)
	}
	c.report(out, clauses)
	return out
}

// CollectParallel evaluates clauses concurrently, at most parallelism at a
// time, and returns evidence in clause order. Trace events are emitted
// after every clause finished, in clause order. The only error is the
// context's, when it is cancelled before every clause ran.
func (c *Collector) CollectParallel(ctx context.Context, clauses []contract.Clause, ec *eval.Context, execution string) ([]ClauseEvidence, error) {
	out := make([]ClauseEvidence, len(clauses))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)
	for i, cl := range clauses {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			out[i] = c.check(gCtx, cl, ec, execution)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.report(out, clauses)
	return out, nil
}

func (c *Collector) check(ctx context.Context, cl contract.Clause, ec *eval.Context, execution string) ClauseEvidence {
	start := time.Now()
	r := c.ev.Evaluate(ctx, cl.Expr, ec)
	took := time.Since(start)

	ev := FromResult(cl, r)
	ev.Execution = execution
	ev.ID = ir.MustEvidenceID(c.runID, execution, cl.QualifiedID())

	c.metrics.RecordClause(string(cl.Kind), string(ev.Status), took)
	if ev.Status == NotProven {
		c.metrics.RecordUnknown(string(ev.UnknownReason))
	}
	c.logger.Debug("clause evaluated",
		"behavior", cl.Behavior,
		"clause_id", cl.ID,
		"execution", execution,
		"status", ev.Status,
		"reason", ev.Reason,
		"duration", took,
	)
	return ev
}

// report emits one trace check per evidence, in order.
func (c *Collector) report(evidences []ClauseEvidence, clauses []contract.Clause) {
	if c.trace == nil {
		return
	}
	for i, ev := range evidences {
		check := trace.Check{
			ClauseID: ev.ClauseID,
			Category: string(ev.Category),
			Status:   string(ev.Status),
			Reason:   ev.Reason,
		}
		if data, err := ast.MarshalExpr(clauses[i].Expr); err == nil {
			check.Expression = string(data)
		}
		if ev.Value != nil {
			check.Actual = ir.Bool(*ev.Value)
		}
		c.trace.Check(check)
	}
}
