// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

// Package atom materializes the argument tuple (an Atom) for an
// entry/exit/fail/excp event from the tracer's register view. Argument
// reification itself, turning a register/stack slot into a typed value,
// is an out-of-scope external concern; this package only
// defines the boundary (RegisterView) and the shape it produces (Atom).
package atom

import "github.com/wangp/decldbg/internal/event"

// TypeInfo is an opaque type descriptor carried alongside a reified value.
// This module treats it as inert data; it never interprets it.
type TypeInfo struct {
	Name string
}

// Univ is a dynamically typed (type, value) pair, the payload of a live
// argument slot.
type Univ struct {
	Type  TypeInfo
	Value any
}

// Slot is one argument position in an Atom. Univ is nil when the
// variable is not live at the event's port ("no-value"); that is a design
// contract, not an error.
type Slot struct {
	HLDSIndex   int
	UserVisible bool
	Univ        *Univ
}

// HasValue reports whether the slot carries a reified value.
func (s Slot) HasValue() bool { return s.Univ != nil }

// Atom is a procedure identity plus its ordered argument slots, attached
// to CALL, EXIT, FAIL, and EXCP nodes.
type Atom struct {
	ProcedureName string
	Layout        event.LayoutHandle
	Slots         []Slot
}

// RegisterView is the opaque handle to the tracer's register/stack slots
// at one event. Reifying a slot from it belongs to the runtime's
// reification machinery; this interface is the seam this module needs
// from it.
type RegisterView interface {
	// Live reports whether head-variable i is live at the current port.
	Live(i int) bool
	// Reify returns the (type, value) pair for head-variable i. Only
	// called when Live(i) is true. A reification failure is not an
	// error condition: callers fall back to no-value.
	Reify(i int) (TypeInfo, any, bool)
}

// Builder materializes Atoms from events.
type Builder struct{}

// NewBuilder constructs an atom Builder. It holds no state: all inputs
// come from the event and its RegisterView.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build constructs the Atom for ev, using regs to reify each live head
// variable declared by ev.Layout. It never fails: an unreifiable slot
// becomes no-value rather than an error.
func (b *Builder) Build(ev event.Event, regs RegisterView) Atom {
	layout := ev.Layout
	slots := make([]Slot, layout.ArgCount)

	for i := 0; i < layout.ArgCount; i++ {
		userVisible := i < len(layout.UserVisible) && layout.UserVisible[i]
		slot := Slot{HLDSIndex: i, UserVisible: userVisible}

		if regs != nil && regs.Live(i) {
			if typeInfo, value, ok := regs.Reify(i); ok {
				slot.Univ = &Univ{Type: typeInfo, Value: value}
			}
		}

		slots[i] = slot
	}

	return Atom{
		ProcedureName: layout.Name,
		Layout:        layout.Handle,
		Slots:         slots,
	}
}
