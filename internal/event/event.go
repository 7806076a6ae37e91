// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

package event

// LayoutHandle is an opaque reference to a procedure's static metadata,
// resolved by the runtime's own layout tables. This module never inspects
// its internals directly; it goes through ProcedureLayout.
type LayoutHandle uint64

// RegistersHandle is an opaque reference to the tracer's register/stack
// view at the moment an event fired. Argument reification from this
// handle is out of scope (see internal/atom); the Event only carries it
// through.
type RegistersHandle uint64

// ProcedureLayout is the static metadata the Filter and Atom Builder read
// off a procedure. Argument reification itself lives behind RegisterView
// (internal/atom); this is metadata, not values.
type ProcedureLayout struct {
	Handle LayoutHandle

	// HasExecTracing is false for procedures compiled without trace
	// instrumentation; the Filter raises ErrLayoutMissing if this is
	// false on an interface event (CALL/EXIT/REDO/FAIL/EXCP). Other
	// ports are not checked.
	HasExecTracing bool

	// TraceLevel distinguishes "none"/"shallow"/"deep"/"rep" tracing.
	// Session.Start requires at least TraceLevelDeep.
	TraceLevel TraceLevel

	// CompilerGenerated marks a unify/compare/index (UCI) procedure,
	// excluded from the EDT by the Filter's UCI step.
	CompilerGenerated bool

	// ArgCount is the number of head variables the Atom Builder should
	// attempt to reify, in declaration order.
	ArgCount int

	// UserVisible[i] is true when argument i is a source-level argument
	// (as opposed to a compiler-inserted one, e.g. paired I/O-state
	// arguments).
	UserVisible []bool

	// Suppressed lists event-class names the procedure's module was
	// compiled to suppress; the Filter rejects and latches a warning for
	// any suppressed class it observes.
	Suppressed []string

	// Name is used only for logging/diagnostics.
	Name string
}

// TraceLevel is the instrumentation depth a procedure was compiled with.
type TraceLevel uint8

const (
	TraceLevelNone TraceLevel = iota
	TraceLevelShallow
	TraceLevelDeep
	TraceLevelRep
)

func (l TraceLevel) Adequate() bool {
	return l == TraceLevelDeep || l == TraceLevelRep
}

// Event is one observation delivered by the tracer. It is transient: it
// lives only for the duration of one filter/construct decision.
type Event struct {
	Port Port

	// EventNumber is monotonically increasing and globally unique per
	// program run.
	EventNumber int64

	// CallSeqno identifies the procedure invocation this event belongs
	// to; all events from one invocation share a seqno.
	CallSeqno int64

	// CallDepth is the tracer's raw call depth, not the EDT depth. It
	// is not monotone across last-call-optimized children.
	CallDepth int64

	// GoalPath locates the syntactic construct within the procedure,
	// e.g. "d1;" or "c2;t;". Used to pair COND/THEN/ELSE,
	// NEG_ENTER/SUCCESS/FAILURE, and DISJ alternatives.
	GoalPath string

	Layout    ProcedureLayout
	Registers RegistersHandle

	// IOCounter is the value of the process-wide I/O-action counter at
	// this event.
	IOCounter uint64
}
