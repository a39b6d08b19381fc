package harness

import "github.com/roach88/eventprog/internal/ir"

// Trace entry types.
const (
	TypeTransaction = "transaction"
	TypeEvent       = "event"
)

// TraceEvent is one entry of a scenario trace: either a transaction
// outcome or an event decoded from its committed logs.
type TraceEvent struct {
	Type string `json:"type"`
	Step int    `json:"step"`
	Slot int64  `json:"slot"`

	// Transaction fields.
	State string   `json:"state,omitempty"`
	Error string   `json:"error,omitempty"`
	Logs  []string `json:"logs,omitempty"`

	// Event fields.
	Seq    int64       `json:"seq,omitempty"`
	Name   string      `json:"name,omitempty"`
	Fields ir.IRObject `json:"fields,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expect clause and assertion holds.
	Pass bool `json:"pass"`

	// Trace contains transactions and their events in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTransactionTrace adds a transaction outcome to the trace.
func (r *Result) AddTransactionTrace(step int, slot int64, state, code string, logs []string) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:  TypeTransaction,
		Step:  step,
		Slot:  slot,
		State: state,
		Error: code,
		Logs:  logs,
	})
}

// AddEventTrace adds a decoded event to the trace.
func (r *Result) AddEventTrace(step int, slot, seq int64, name string, fields ir.IRObject) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   TypeEvent,
		Step:   step,
		Slot:   slot,
		Seq:    seq,
		Name:   name,
		Fields: fields,
	})
}

// Events returns the event entries of the trace in order.
func (r *Result) Events() []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == TypeEvent {
			out = append(out, e)
		}
	}
	return out
}
