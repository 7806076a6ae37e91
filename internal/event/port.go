// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

// Package event defines the trace event model consumed from the runtime
// tracer: the Port enumeration and the Event envelope that carries one
// observation of the traced program's execution.
package event

// Port identifies the kind of trace event. The set is closed and small,
// so dispatch tables throughout this module are plain arrays indexed by
// Port rather than switches or maps.
type Port uint8

const (
	Call Port = iota
	Exit
	Redo
	Fail
	Excp
	Cond
	Then
	Else
	NegEnter
	NegSuccess
	NegFailure
	Disj
	Switch
	PragmaFirst
	PragmaLater

	// NumPorts is the number of valid Port values; dispatch tables are
	// sized [NumPorts]T.
	NumPorts
)

type portDescriptor struct {
	name string
	// interfaceEvent is true for CALL/EXIT/REDO/FAIL/EXCP, the events
	// that open or close an invocation and carry an Atom.
	interfaceEvent bool
	// finalPort is true for EXIT/FAIL/EXCP, the events that close out a
	// call_seqno for good (as opposed to REDO, which reopens it).
	finalPort bool
}

var portInfo = [NumPorts]portDescriptor{
	Call:        {name: "CALL", interfaceEvent: true},
	Exit:        {name: "EXIT", interfaceEvent: true, finalPort: true},
	Redo:        {name: "REDO", interfaceEvent: true},
	Fail:        {name: "FAIL", interfaceEvent: true, finalPort: true},
	Excp:        {name: "EXCP", interfaceEvent: true, finalPort: true},
	Cond:        {name: "COND"},
	Then:        {name: "THEN"},
	Else:        {name: "ELSE"},
	NegEnter:    {name: "NEG_ENTER"},
	NegSuccess:  {name: "NEG_SUCCESS"},
	NegFailure:  {name: "NEG_FAILURE"},
	Disj:        {name: "DISJ"},
	Switch:      {name: "SWITCH"},
	PragmaFirst: {name: "PRAGMA_FIRST"},
	PragmaLater: {name: "PRAGMA_LATER"},
}

// String renders the port name, e.g. "CALL".
func (p Port) String() string {
	if p >= NumPorts {
		return "UNKNOWN_PORT"
	}
	return portInfo[p].name
}

// IsInterfaceEvent reports whether p is one of CALL, EXIT, REDO, FAIL,
// EXCP: the events that open or close a procedure invocation and carry
// an Atom.
func (p Port) IsInterfaceEvent() bool {
	return p < NumPorts && portInfo[p].interfaceEvent
}

// IsFinalPort reports whether p is EXIT, FAIL, or EXCP: a port that closes
// out its call_seqno for good.
func (p Port) IsFinalPort() bool {
	return p < NumPorts && portInfo[p].finalPort
}

// Valid reports whether p is one of the known ports.
func (p Port) Valid() bool {
	return p < NumPorts
}
