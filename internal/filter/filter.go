// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

// Package filter implements the Filter/Classifier gatekeeper: the
// per-session window-membership state machine that decides,
// for every incoming trace event, whether it falls inside the region of
// the program currently being materialized into the EDT, and if so
// dispatches it to the Node Constructor.
package filter

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wangp/decldbg/internal/atom"
	"github.com/wangp/decldbg/internal/construct"
	"github.com/wangp/decldbg/internal/event"
	"github.com/wangp/decldbg/internal/store"
)

// ErrMissedFinalEvent is raised on overrun: an event past last_event
// arrived while collecting a subtree.
var ErrMissedFinalEvent = errors.New("filter: missed final event")

// ErrLayoutMissing is raised when a procedure's layout lacks
// execution-tracing metadata.
var ErrLayoutMissing = fmt.Errorf("filter: procedure layout lacks execution-tracing metadata")

// Reason classifies why Step rejected an event, for metrics and
// checkpoint logging. The zero value Accepted is never itself a
// rejection reason.
type Reason uint8

const (
	Accepted Reason = iota
	RejectedUCI
	RejectedWindow
	RejectedDepth
	RejectedSuppressed
)

func (r Reason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectedUCI:
		return "uci"
	case RejectedWindow:
		return "window"
	case RejectedDepth:
		return "depth"
	case RejectedSuppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// Outcome is Step's verdict on one event.
type Outcome struct {
	Reason Reason
	// Node is store.NilRef unless Reason == Accepted and the event
	// reached the Node Constructor.
	Node store.NodeRef
	// SessionComplete is true when this event completed the current
	// collection window: either
	// event_number == last_event in subtree mode, or edt_depth == 0 in
	// supertree mode.
	SessionComplete bool
	// CompilerFlagWarning is true on the suppression rejection that
	// latches the warning and on every accepted outcome after it; UCI,
	// window and depth rejections leave it false. The controller keeps
	// its own latch and flushes it as a user-visible warning at
	// completion.
	CompilerFlagWarning bool
}

// Classifier holds the running per-session window state (depth limit,
// last event, start seqno, EDT depth) and owns the Node Constructor it
// dispatches accepted events to.
type Classifier struct {
	MaxDepth          int64
	LastEvent         int64
	StartSeqno        int64
	StartIOCounter    uint64
	TopmostCallDepth  int64
	Inside            bool
	BuildingSupertree bool
	EDTDepth          int64

	depthCheckAdjustment int64
	compilerFlagWarning  bool

	constructor *construct.Constructor
	log         *zap.Logger
}

// New builds a Classifier over s: call this once per start/restart with
// the session's initial window parameters. log may be nil, in which
// case checkpoint logging is silently skipped.
func New(s *store.Store, maxDepth, lastEvent, startSeqno int64, startIOCounter uint64, topmostCallDepth int64, buildingSupertree bool, log *zap.Logger) *Classifier {
	if log == nil {
		log = zap.NewNop()
	}

	// Inside has opposite meanings in the two modes: collecting a
	// subtree it is true while we are within the subtree rooted at
	// start_seqno; collecting a supertree it is true while we are
	// outside the already-materialized subtree. A supertree session
	// therefore begins with Inside set, a subtree session clear.
	c := &Classifier{
		MaxDepth:          maxDepth,
		LastEvent:         lastEvent,
		StartSeqno:        startSeqno,
		StartIOCounter:    startIOCounter,
		TopmostCallDepth:  topmostCallDepth,
		Inside:            buildingSupertree,
		BuildingSupertree: buildingSupertree,
		EDTDepth:          0,
		log:               log,
	}
	c.constructor = construct.New(s, c)
	return c
}

// AtDepthLimit implements construct.DepthProbe: a CALL sits at the
// depth limit when the EDT depth surrounding it (EDTDepth has already
// counted the CALL itself by the time construction runs) equals
// max_depth. Such a call's children fall past the kept band, so the
// flag marks exactly the calls whose subtrees are implicit.
func (c *Classifier) AtDepthLimit() bool {
	return c.EDTDepth-1 == c.MaxDepth
}

// SeedPrev passes a restart's preceding-call node through to the Node
// Constructor so the new fragment links onto the existing tree.
func (c *Classifier) SeedPrev(ref store.NodeRef) { c.constructor.SetPrev(ref) }

// Step runs one incoming event through every stage of the classifier
// and, if accepted, through the Node Constructor.
func (c *Classifier) Step(ev event.Event, regs atom.RegisterView) (Outcome, error) {
	// 1. Overrun.
	if ev.EventNumber > c.LastEvent && !c.BuildingSupertree {
		c.log.Warn("missed final event", zap.Int64("event_number", ev.EventNumber), zap.Int64("last_event", c.LastEvent))
		return Outcome{}, ErrMissedFinalEvent
	}

	// 2. Sanity.
	if ev.Port.IsInterfaceEvent() && !ev.Layout.HasExecTracing {
		return Outcome{}, ErrLayoutMissing
	}

	// 3. UCI filter.
	if ev.Layout.CompilerGenerated {
		return Outcome{Reason: RejectedUCI, Node: store.NilRef}, nil
	}

	// 4. Window membership.
	if !c.classifyWindow(ev) {
		c.log.Debug("filtered by window",
			zap.Int64("event_number", ev.EventNumber),
			zap.Int64("call_seqno", ev.CallSeqno),
		)
		return Outcome{Reason: RejectedWindow, Node: store.NilRef}, nil
	}

	// 5. Depth accounting.
	c.accountDepth(ev)

	// 6. Depth filter. Events deeper than the limit are implicitly
	// represented in the structure being built; keeping events at
	// exactly max_depth+1 gives every CALL at the limit
	// correctly-paired interface children, which the contour needs.
	if c.EDTDepth+c.depthCheckAdjustment > c.MaxDepth+1 {
		return Outcome{Reason: RejectedDepth, Node: store.NilRef}, nil
	}

	// 7. Suppression filter. Procedures in such modules are effectively
	// assumed correct, so the user gets a warning at completion.
	if len(ev.Layout.Suppressed) > 0 {
		c.compilerFlagWarning = true
		return Outcome{Reason: RejectedSuppressed, Node: store.NilRef, CompilerFlagWarning: true}, nil
	}

	// 8. Dispatch to the Node Constructor.
	ref, err := c.constructor.Construct(ev, regs)
	if err != nil {
		return Outcome{}, fmt.Errorf("filter: construct: %w", err)
	}

	c.log.Debug("constructed node",
		zap.Stringer("port", loggablePort{ev.Port}),
		zap.Int64("event_number", ev.EventNumber),
		zap.Int64("edt_depth", c.EDTDepth),
	)

	return Outcome{
		Reason:              Accepted,
		Node:                ref,
		SessionComplete:     c.sessionComplete(ev),
		CompilerFlagWarning: c.compilerFlagWarning,
	}, nil
}

// classifyWindow implements the subtree/supertree window-membership
// state machine, reporting whether ev should be constructed.
func (c *Classifier) classifyWindow(ev event.Event) bool {
	isFinal := ev.Port.IsFinalPort()
	isCallOrRedo := ev.Port == event.Call || ev.Port == event.Redo

	if !c.BuildingSupertree {
		if c.Inside {
			if isFinal && ev.CallSeqno == c.StartSeqno {
				// Leaving the topmost call. The closing interface
				// event itself still belongs to the subtree.
				c.Inside = false
			}
			return true
		}
		if isCallOrRedo && ev.CallSeqno == c.StartSeqno {
			// (Re)entering the topmost call.
			c.Inside = true
			return true
		}
		// Outside the topmost call.
		return false
	}

	// Supertree mode.
	if !c.Inside {
		if isFinal && ev.CallSeqno == c.StartSeqno {
			// Exiting the already-materialized subtree. The closing
			// interface event is still constructed: it becomes the
			// implicit root's closing node and rebalances the depth
			// count the implicit root's CALL opened.
			c.Inside = true
			return true
		}
		// Within the existing explicit subtree.
		return false
	}
	if isCallOrRedo && ev.CallSeqno == c.StartSeqno {
		// Leaving the supertree, entering the existing explicit
		// subtree. This node still enters the tree as the implicit
		// root of the new fragment.
		c.Inside = false
	}
	return true
}

// accountDepth maintains the EDT-relative depth counter.
func (c *Classifier) accountDepth(ev event.Event) {
	switch {
	case ev.Port == event.Call || ev.Port == event.Redo:
		c.EDTDepth++
		c.depthCheckAdjustment = 0
	case ev.Port.IsFinalPort():
		c.EDTDepth--
		c.depthCheckAdjustment = 1
	}
}

// sessionComplete reports whether collection is done: subtree mode
// completes when the event number reaches the recorded last event;
// supertree mode completes when the EDT depth returns to 0. The two
// exit paths are deliberately kept separate.
func (c *Classifier) sessionComplete(ev event.Event) bool {
	if c.BuildingSupertree {
		return c.EDTDepth == 0
	}
	return ev.EventNumber == c.LastEvent
}

// loggablePort adapts event.Port to zapcore.ObjectMarshaler-free
// fmt.Stringer so checkpoint log lines name the port without pulling in
// a zap field type per call site.
type loggablePort struct{ p event.Port }

func (l loggablePort) String() string { return l.p.String() }
