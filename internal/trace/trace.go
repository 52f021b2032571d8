// Package trace records what happened during a verification run.
//
// A Recorder collects ordered events (calls, returns, state changes, clause
// checks and errors) for one behavior. Recorded inputs and outputs are
// redacted before they are stored. Events are ordered by a logical clock,
// so a trace built from the same run is identical apart from generated IDs,
// and identical in full when a SequenceGenerator supplies the IDs.
package trace

import (
	"sync"

	"github.com/roach88/islproof/internal/ir"
)

// EventType classifies a trace event.
type EventType string

const (
	EventCall        EventType = "call"
	EventReturn      EventType = "return"
	EventStateChange EventType = "state_change"
	EventCheck       EventType = "check"
	EventError       EventType = "error"
)

// Event is one recorded occurrence.
type Event struct {
	ID       string    `json:"id"`
	Seq      int64     `json:"seq"`
	Type     EventType `json:"type"`
	Behavior string    `json:"behavior,omitempty"`
	Data     ir.Object `json:"data"`
}

// Trace is a finalized recording.
type Trace struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Domain       string    `json:"domain"`
	Behavior     string    `json:"behavior"`
	InitialState ir.Object `json:"initial_state"`
	Events       []Event   `json:"events"`
	Passed       bool      `json:"passed"`
	FailureIndex *int      `json:"failure_index,omitempty"`
}

// Check describes one clause check.
type Check struct {
	ClauseID   string
	Category   string
	Expression string
	Status     string
	Reason     string
	Actual     ir.Value
}

// Recorder accumulates events for one behavior. A nil *Recorder records
// nothing. Recorder is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	id       string
	domain   string
	behavior string
	clock    *Clock
	ids      IDGenerator
	initial  ir.Object
	events   []Event
	failure  int
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithIDGenerator sets the generator for trace and event IDs.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Recorder) { r.ids = g }
}

// WithClock sets the logical clock. Sharing a clock between recorders
// orders events across them.
func WithClock(c *Clock) Option {
	return func(r *Recorder) { r.clock = c }
}

// NewRecorder creates a recorder for behavior in domain.
func NewRecorder(domain, behavior string, opts ...Option) *Recorder {
	r := &Recorder{
		domain:   domain,
		behavior: behavior,
		clock:    NewClock(),
		ids:      UUIDv7Generator{},
		initial:  ir.Object{},
		failure:  -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.id = r.ids.Generate()
	return r
}

// CaptureInitialState records the redacted pre-execution state.
func (r *Recorder) CaptureInitialState(state ir.Object) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initial = RedactObject(state)
	if r.initial == nil {
		r.initial = ir.Object{}
	}
}

// Call records the behavior being invoked with args.
func (r *Recorder) Call(function string, args ir.Object) {
	r.emit(EventCall, ir.Object{
		"function": ir.String(function),
		"args":     orEmpty(RedactObject(args)),
	})
}

// Return records the behavior's result.
func (r *Recorder) Return(function string, result ir.Value) {
	data := ir.Object{"function": ir.String(function)}
	if result != nil {
		data["result"] = RedactValue(result)
	}
	r.emit(EventReturn, data)
}

// StateChange records a change of the value at path.
func (r *Recorder) StateChange(path []string, before, after ir.Value, source string) {
	p := make(ir.List, len(path))
	for i, s := range path {
		p[i] = ir.String(s)
	}
	data := ir.Object{"path": p, "source": ir.String(source)}
	if before != nil {
		data["old_value"] = RedactValue(before)
	}
	if after != nil {
		data["new_value"] = RedactValue(after)
	}
	r.emit(EventStateChange, data)
}

// Check records a clause check. A check whose status is "failed" marks the
// first failure of the trace.
func (r *Recorder) Check(c Check) {
	data := ir.Object{
		"clause_id": ir.String(c.ClauseID),
		"category":  ir.String(c.Category),
		"status":    ir.String(c.Status),
		"passed":    ir.Bool(c.Status == "proven"),
	}
	if c.Expression != "" {
		data["expression"] = ir.String(c.Expression)
	}
	if c.Reason != "" {
		data["reason"] = ir.String(c.Reason)
	}
	if c.Actual != nil {
		data["actual"] = RedactValue(c.Actual)
	}
	idx := r.emit(EventCheck, data)
	if r != nil && c.Status == "failed" {
		r.mu.Lock()
		if r.failure < 0 {
			r.failure = idx
		}
		r.mu.Unlock()
	}
}

// Error records a failure outside clause evaluation. An empty code becomes
// "UNKNOWN".
func (r *Recorder) Error(code, message string) {
	if code == "" {
		code = "UNKNOWN"
	}
	r.emit(EventError, ir.Object{
		"code":    ir.String(code),
		"message": RedactValue(ir.String(message)),
	})
}

func (r *Recorder) emit(typ EventType, data ir.Object) int {
	if r == nil {
		return -1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{
		ID:       r.ids.Generate(),
		Seq:      r.clock.Next(),
		Type:     typ,
		Behavior: r.behavior,
		Data:     data,
	})
	return len(r.events) - 1
}

// Events returns a copy of the events recorded so far.
func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Finalize returns the trace. The recorder may keep recording afterwards;
// later events are not part of the returned trace.
func (r *Recorder) Finalize(passed bool) *Trace {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t := &Trace{
		ID:           r.id,
		Name:         r.domain + " - " + r.behavior,
		Domain:       r.domain,
		Behavior:     r.behavior,
		InitialState: r.initial,
		Events:       append([]Event(nil), r.events...),
		Passed:       passed,
	}
	if r.failure >= 0 {
		idx := r.failure
		t.FailureIndex = &idx
	}
	return t
}

func orEmpty(obj ir.Object) ir.Object {
	if obj == nil {
		return ir.Object{}
	}
	return obj
}
