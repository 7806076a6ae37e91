// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

// Package construct implements the per-port Node Constructor: given an
// accepted event and its reified registers, it allocates the right kind
// of node in the store and links it into the contour. Dispatch is by an
// array indexed on event.Port rather than a switch, since Port is a
// small closed enumeration known at init time.
package construct

import (
	"fmt"

	"github.com/wangp/decldbg/internal/atom"
	"github.com/wangp/decldbg/internal/contour"
	"github.com/wangp/decldbg/internal/event"
	"github.com/wangp/decldbg/internal/goalpath"
	"github.com/wangp/decldbg/internal/store"
)

// ErrNotImplemented is raised for PRAGMA_FIRST/PRAGMA_LATER events:
// foreign-language events are not currently supported in the EDT.
var ErrNotImplemented = fmt.Errorf("construct: foreign-language pragma events are not supported")

// DepthProbe is supplied by the Filter/Classifier so CALL construction
// can read edt_depth/max_depth without the construct package importing
// the filter package (which would create a cycle, since the filter
// calls back into construct).
type DepthProbe interface {
	// AtDepthLimit reports whether the CALL about to be constructed sits
	// exactly at the session's depth limit.
	AtDepthLimit() bool
}

// StackWalker is optionally implemented by a RegisterView when the
// runtime can walk one frame up the stack. A CALL node records the
// caller's return goal path, which lets the front end locate the call
// site; when the walk is unavailable (e.g. inside the program's entry
// point) the path is empty.
type StackWalker interface {
	CallerReturnPath() (string, bool)
}

// Constructor holds the running "prev" pointer (the most recently
// constructed node) and dispatches each accepted event to its per-port
// construction rule.
type Constructor struct {
	store *store.Store
	atoms *atom.Builder
	depth DepthProbe
	prev  store.NodeRef
}

// stepFunc is one entry in the per-port dispatch table.
type stepFunc func(c *Constructor, ev event.Event, regs atom.RegisterView) (store.NodeRef, error)

// dispatch is indexed by event.Port; built once in init so Construct is a
// single array lookup rather than a type switch.
var dispatch [event.NumPorts]stepFunc

func init() {
	dispatch[event.Call] = (*Constructor).constructCall
	dispatch[event.Exit] = (*Constructor).constructExit
	dispatch[event.Redo] = (*Constructor).constructRedo
	dispatch[event.Fail] = (*Constructor).constructFail
	dispatch[event.Excp] = (*Constructor).constructExcp
	dispatch[event.Cond] = (*Constructor).constructCond
	dispatch[event.Then] = (*Constructor).constructThen
	dispatch[event.Else] = (*Constructor).constructElse
	dispatch[event.NegEnter] = (*Constructor).constructNegEnter
	dispatch[event.NegSuccess] = (*Constructor).constructNegSuccess
	dispatch[event.NegFailure] = (*Constructor).constructNegFailure
	dispatch[event.Switch] = (*Constructor).constructSwitch
	dispatch[event.Disj] = (*Constructor).constructDisj
	dispatch[event.PragmaFirst] = (*Constructor).constructNotImplemented
	dispatch[event.PragmaLater] = (*Constructor).constructNotImplemented
}

// New builds a Constructor over s, using probe to answer at-depth-limit
// queries for CALL construction. prev starts as store.NilRef: the first
// constructed node in a session has no predecessor.
func New(s *store.Store, probe DepthProbe) *Constructor {
	return &Constructor{
		store: s,
		atoms: atom.NewBuilder(),
		depth: probe,
		prev:  store.NilRef,
	}
}

// Prev returns the most recently constructed node, or store.NilRef if
// none has been constructed yet.
func (c *Constructor) Prev() store.NodeRef { return c.prev }

// SetPrev seeds the prev pointer. Used on restart so the first node of a
// newly collected fragment links onto the call preceding it in the
// existing tree.
func (c *Constructor) SetPrev(ref store.NodeRef) { c.prev = ref }

// Construct dispatches ev to its per-port rule and records the result as
// the new prev. regs is nil-safe only in tests; a live session always
// supplies a real register view for ports that build an Atom.
func (c *Constructor) Construct(ev event.Event, regs atom.RegisterView) (store.NodeRef, error) {
	if !ev.Port.Valid() {
		return store.NilRef, fmt.Errorf("construct: invalid port %d", ev.Port)
	}

	ref, err := dispatch[ev.Port](c, ev, regs)
	if err != nil {
		return store.NilRef, err
	}

	c.prev = ref
	return ref, nil
}

func (c *Constructor) constructCall(ev event.Event, regs atom.RegisterView) (store.NodeRef, error) {
	a := c.atoms.Build(ev, regs)

	returnPath := ""
	if walker, ok := regs.(StackWalker); ok {
		if p, ok := walker.CallerReturnPath(); ok {
			returnPath = p
		}
	}

	n := store.Node{
		Prev:          c.prev,
		EventNumber:   ev.EventNumber,
		Atom:          a,
		CallSeqno:     ev.CallSeqno,
		AtDepthLimit:  c.depth.AtDepthLimit(),
		GoalPathEntry: returnPath,
		IOCounter:     ev.IOCounter,
	}
	return c.store.NewCall(n), nil
}

func (c *Constructor) constructExit(ev event.Event, regs atom.RegisterView) (store.NodeRef, error) {
	a := c.atoms.Build(ev, regs)

	call, err := contour.FindMatchingCall(c.store, c.prev)
	if err != nil {
		return store.NilRef, fmt.Errorf("construct: EXIT: %w", err)
	}

	n := store.Node{
		Prev:        c.prev,
		EventNumber: ev.EventNumber,
		Atom:        a,
		IOCounter:   ev.IOCounter,
	}
	return c.store.NewExit(n, call), nil
}

func (c *Constructor) constructRedo(ev event.Event, regs atom.RegisterView) (store.NodeRef, error) {
	matchExit, err := contour.FindMatchingExit(c.store, c.prev, ev.CallSeqno)
	if err != nil {
		return store.NilRef, fmt.Errorf("construct: REDO: %w", err)
	}
	call := c.store.Get(matchExit).Call

	n := store.Node{
		Prev:        c.prev,
		EventNumber: ev.EventNumber,
	}
	return c.store.NewRedo(n, call), nil
}

func (c *Constructor) constructFail(ev event.Event, regs atom.RegisterView) (store.NodeRef, error) {
	call, err := c.findCallForFailLike()
	if err != nil {
		return store.NilRef, fmt.Errorf("construct: FAIL: %w", err)
	}

	n := store.Node{
		Prev:        c.prev,
		EventNumber: ev.EventNumber,
		Atom:        c.atoms.Build(ev, regs),
	}
	return c.store.NewFail(n, call), nil
}

func (c *Constructor) constructExcp(ev event.Event, regs atom.RegisterView) (store.NodeRef, error) {
	call, err := c.findCallForFailLike()
	if err != nil {
		return store.NilRef, fmt.Errorf("construct: EXCP: %w", err)
	}

	exc := atom.Univ{}
	if regs != nil && regs.Live(0) {
		if t, v, ok := regs.Reify(0); ok {
			exc = atom.Univ{Type: t, Value: v}
		}
	}

	n := store.Node{
		Prev:           c.prev,
		EventNumber:    ev.EventNumber,
		Atom:           c.atoms.Build(ev, regs),
		ExceptionValue: exc,
	}
	return c.store.NewExcp(n, call), nil
}

// findCallForFailLike implements the shared FAIL/EXCP matching-CALL
// rule: if prev is itself a CALL (the trivial failing call), use it
// directly; otherwise step to the previous contour then walk leftwards
// until a CALL is found.
func (c *Constructor) findCallForFailLike() (store.NodeRef, error) {
	if c.prev.Valid() && c.store.Get(c.prev).Kind == store.KindCall {
		return c.prev, nil
	}
	prevContour := contour.FindPrevContour(c.store, c.prev)
	return contour.FindMatchingCall(c.store, prevContour)
}

func (c *Constructor) constructCond(ev event.Event, _ atom.RegisterView) (store.NodeRef, error) {
	n := store.Node{Prev: c.prev, EventNumber: ev.EventNumber, GoalPath: ev.GoalPath}
	return c.store.NewCond(n), nil
}

func (c *Constructor) constructThen(ev event.Event, _ atom.RegisterView) (store.NodeRef, error) {
	cond, err := contour.FindMatchingCond(c.store, c.prev, ev.GoalPath, goalpath.SameConstruct)
	if err != nil {
		return store.NilRef, fmt.Errorf("construct: THEN: %w", err)
	}
	n := store.Node{Prev: c.prev, EventNumber: ev.EventNumber, GoalPath: ev.GoalPath}
	return c.store.NewThen(n, cond), nil
}

func (c *Constructor) constructElse(ev event.Event, _ atom.RegisterView) (store.NodeRef, error) {
	cond, err := contour.FindMatchingCond(c.store, c.prev, ev.GoalPath, goalpath.SameConstruct)
	if err != nil {
		return store.NilRef, fmt.Errorf("construct: ELSE: %w", err)
	}
	n := store.Node{Prev: c.prev, EventNumber: ev.EventNumber, GoalPath: ev.GoalPath}
	return c.store.NewElse(n, cond), nil
}

func (c *Constructor) constructNegEnter(ev event.Event, _ atom.RegisterView) (store.NodeRef, error) {
	n := store.Node{Prev: c.prev, EventNumber: ev.EventNumber, GoalPath: ev.GoalPath}
	return c.store.NewNegEnter(n), nil
}

func (c *Constructor) constructNegSuccess(ev event.Event, _ atom.RegisterView) (store.NodeRef, error) {
	neg, err := contour.FindMatchingNegEnter(c.store, c.prev, ev.GoalPath, goalpath.SameConstruct)
	if err != nil {
		return store.NilRef, fmt.Errorf("construct: NEG_SUCCESS: %w", err)
	}
	n := store.Node{Prev: c.prev, EventNumber: ev.EventNumber, GoalPath: ev.GoalPath}
	return c.store.NewNegSuccess(n, neg), nil
}

func (c *Constructor) constructNegFailure(ev event.Event, _ atom.RegisterView) (store.NodeRef, error) {
	neg, err := contour.FindMatchingNegEnter(c.store, c.prev, ev.GoalPath, goalpath.SameConstruct)
	if err != nil {
		return store.NilRef, fmt.Errorf("construct: NEG_FAILURE: %w", err)
	}
	n := store.Node{Prev: c.prev, EventNumber: ev.EventNumber, GoalPath: ev.GoalPath}
	return c.store.NewNegFailure(n, neg), nil
}

func (c *Constructor) constructSwitch(ev event.Event, _ atom.RegisterView) (store.NodeRef, error) {
	n := store.Node{Prev: c.prev, EventNumber: ev.EventNumber, GoalPath: ev.GoalPath}
	return c.store.NewSwitch(n), nil
}

func (c *Constructor) constructDisj(ev event.Event, _ atom.RegisterView) (store.NodeRef, error) {
	n := store.Node{Prev: c.prev, EventNumber: ev.EventNumber, GoalPath: ev.GoalPath}

	if goalpath.IsFirstDisjunct(ev.GoalPath) {
		return c.store.NewFirstDisj(n), nil
	}

	disj, err := contour.FindMatchingDisj(c.store, c.prev, goalpath.SameDisjunction, ev.GoalPath)
	if err != nil {
		return store.NilRef, fmt.Errorf("construct: LATER_DISJ: %w", err)
	}
	return c.store.NewLaterDisj(n, disj), nil
}

func (c *Constructor) constructNotImplemented(event.Event, atom.RegisterView) (store.NodeRef, error) {
	return store.NilRef, ErrNotImplemented
}
