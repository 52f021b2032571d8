package eval

import (
	"sync"
	"time"

	"github.com/roach88/islproof/internal/adapter"
	"github.com/roach88/islproof/internal/ir"
)

// DefaultMaxDepth bounds expression recursion when no depth is configured.
const DefaultMaxDepth = 100

// Snapshot is the pre-execution state referenced by old(). It is captured
// once, before the behavior under test runs, and never re-read.
type Snapshot struct {
	bindings ir.Object
	adapter  adapter.Adapter
}

// CaptureSnapshot deep-copies bindings so later mutation of the caller's
// state cannot leak into old() results. entities answers entity queries
// made inside old(); nil means the current context's adapter.
func CaptureSnapshot(bindings ir.Object, entities adapter.Adapter) *Snapshot {
	b := ir.CloneObject(bindings)
	if b == nil {
		b = ir.Object{}
	}
	return &Snapshot{bindings: b, adapter: entities}
}

// Bindings returns a copy of the captured values.
func (s *Snapshot) Bindings() ir.Object {
	return ir.CloneObject(s.bindings)
}

// Context is everything one evaluation pass may read. It is built once per
// test execution and is read-only afterwards; share it freely between
// goroutines.
type Context struct {
	// Input holds the behavior's input bindings.
	Input ir.Object
	// Result is the behavior's return value; nil means no result is available.
	Result ir.Value
	// OldState is the pre-execution snapshot; nil means none was captured.
	OldState *Snapshot
	// Variables are free names bound by the caller.
	Variables ir.Object
	// Adapter answers entity and validity queries. Nil means adapter.Builtin.
	Adapter adapter.Adapter
	// MaxDepth bounds recursion. Zero means DefaultMaxDepth.
	MaxDepth int
	// AdapterTimeout bounds each adapter call. Zero means unbounded, which
	// is only appropriate for in-process adapters.
	AdapterTimeout time.Duration
	// Key distinguishes contexts whose bindings are equal but whose adapters
	// differ, such as two executions against different entity stores.
	Key string

	adapterOnce sync.Once
	bounded     adapter.Adapter

	oldOnce sync.Once
	old     *Context

	hashOnce sync.Once
	hash     string
	hashErr  error
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithInput sets the input bindings.
func WithInput(input ir.Object) ContextOption {
	return func(c *Context) { c.Input = input }
}

// WithResult sets the behavior result.
func WithResult(result ir.Value) ContextOption {
	return func(c *Context) { c.Result = result }
}

// WithOldState sets the pre-execution snapshot.
func WithOldState(s *Snapshot) ContextOption {
	return func(c *Context) { c.OldState = s }
}

// WithVariables sets free variable bindings.
func WithVariables(vars ir.Object) ContextOption {
	return func(c *Context) { c.Variables = vars }
}

// WithAdapter sets the domain adapter.
func WithAdapter(a adapter.Adapter) ContextOption {
	return func(c *Context) { c.Adapter = a }
}

// WithMaxDepth sets the recursion bound.
func WithMaxDepth(n int) ContextOption {
	return func(c *Context) { c.MaxDepth = n }
}

// WithAdapterTimeout bounds each adapter call.
func WithAdapterTimeout(d time.Duration) ContextOption {
	return func(c *Context) { c.AdapterTimeout = d }
}

// WithKey sets the context discriminator used in cache keys.
func WithKey(key string) ContextOption {
	return func(c *Context) { c.Key = key }
}

// NewContext builds a Context.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Context) maxDepth() int {
	if c.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return c.MaxDepth
}

// adapter returns the configured adapter wrapped with the call deadline.
func (c *Context) adapter() adapter.Adapter {
	c.adapterOnce.Do(func() {
		a := c.Adapter
		if a == nil {
			a = adapter.Builtin{}
		}
		c.bounded = adapter.WithTimeout(a, c.AdapterTimeout)
	})
	return c.bounded
}

// oldContext returns the view used inside old(): snapshot bindings replace
// the variables, there is no result yet, and old() nested inside resolves
// to the same snapshot. It is derived once per Context.
func (c *Context) oldContext() *Context {
	c.oldOnce.Do(func() {
		entities := c.OldState.adapter
		if entities == nil {
			entities = c.Adapter
		}
		c.old = &Context{
			Input:          c.Input,
			OldState:       c.OldState,
			Variables:      c.OldState.bindings,
			Adapter:        entities,
			MaxDepth:       c.MaxDepth,
			AdapterTimeout: c.AdapterTimeout,
			Key:            c.Key + "/old",
		}
		// old() inside old() stays at the same timepoint.
		c.old.old = c.old
		c.old.oldOnce.Do(func() {})
	})
	return c.old
}

// Hash returns the identity of the context's observable state for cache
// keys. It is computed once.
func (c *Context) Hash() (string, error) {
	c.hashOnce.Do(func() {
		obj := ir.Object{
			"input":     orEmpty(c.Input),
			"variables": orEmpty(c.Variables),
			"max_depth": ir.Int(c.maxDepth()),
			"key":       ir.String(c.Key),
		}
		if c.Result != nil {
			obj["result"] = ir.Object{"value": c.Result}
		}
		if c.OldState != nil {
			obj["old"] = c.OldState.bindings
		}
		c.hash, c.hashErr = ir.ContextHash(obj)
	})
	return c.hash, c.hashErr
}

func orEmpty(obj ir.Object) ir.Object {
	if obj == nil {
		return ir.Object{}
	}
	return obj
}
