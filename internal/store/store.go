// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

package store

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/wangp/decldbg/internal/event"
)

// Observer receives notifications the Store emits as it mutates, so
// callers (metrics, logging) don't need to poll. Both methods must be
// cheap and non-blocking; the Store calls them synchronously.
type Observer interface {
	NodeConstructed(kind Kind)
	VersionBumped(version uint64)
}

// noopObserver is used when no Observer is configured.
type noopObserver struct{}

func (noopObserver) NodeConstructed(Kind) {}
func (noopObserver) VersionBumped(uint64) {}

// Store owns all node storage for one debugging session. Nothing outside
// the Store destroys nodes; all cross-references are NodeRef values, not
// pointers. The zero value is not usable; use New.
type Store struct {
	nodes   []Node
	version uint64
	obs     Observer

	// layoutCache holds procedure layouts added through CacheLayout for
	// later LookupLayout calls; node construction does not consult it.
	// An LRU rather than a fixed array because procedure layouts are not
	// a small closed set.
	layoutCache *lru.Cache[event.LayoutHandle, event.ProcedureLayout]
}

const defaultLayoutCacheSize = 4096

// New creates an empty Store. obs may be nil.
func New(obs Observer) *Store {
	if obs == nil {
		obs = noopObserver{}
	}

	cache, err := lru.New[event.LayoutHandle, event.ProcedureLayout](defaultLayoutCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// defaultLayoutCacheSize never is.
		panic(fmt.Sprintf("store: building layout cache: %v", err))
	}

	return &Store{
		nodes:       make([]Node, 0, 1024),
		obs:         obs,
		layoutCache: cache,
	}
}

// Version returns the current store_version without bumping it.
func (s *Store) Version() uint64 { return s.version }

// BumpVersion increments store_version and returns the new value. Must be
// called before any call out of the store to an external consumer that
// memoizes node positions; the Contour Walker and the
// front-end boundary both do this.
func (s *Store) BumpVersion() uint64 {
	s.version++
	s.obs.VersionBumped(s.version)
	return s.version
}

// Len returns the number of nodes currently in the store.
func (s *Store) Len() int { return len(s.nodes) }

// Nodes returns every NodeRef currently allocated, in construction order.
// Used by the Dump Writer and by tests; not on any hot path.
func (s *Store) Nodes() []NodeRef {
	refs := make([]NodeRef, len(s.nodes))
	for i := range s.nodes {
		refs[i] = NodeRef(i)
	}
	return refs
}

// Get derefs ref. Panics on an invalid ref: an invalid NodeRef reaching
// here means a store invariant was already broken upstream.
func (s *Store) Get(ref NodeRef) *Node {
	if ref < 0 || int(ref) >= len(s.nodes) {
		panic(fmt.Sprintf("store: invalid NodeRef %d (len=%d)", ref, len(s.nodes)))
	}
	return &s.nodes[ref]
}

// alloc appends n and returns its new handle.
func (s *Store) alloc(n Node) NodeRef {
	ref := NodeRef(len(s.nodes))
	s.nodes = append(s.nodes, n)
	s.obs.NodeConstructed(n.Kind)
	return ref
}

// NewCall allocates a CALL node. Its LastInterface is set to itself, per
// the interface-chain invariant I3 (the chain terminates at the CALL).
func (s *Store) NewCall(n Node) NodeRef {
	n.Kind = KindCall
	n.Call = NilRef
	n.PrevInterface = NilRef
	ref := s.alloc(n)
	s.Get(ref).LastInterface = ref
	return ref
}

// NewExit allocates an EXIT node linked to call, splicing it onto call's
// interface chain.
func (s *Store) NewExit(n Node, call NodeRef) NodeRef {
	return s.newInterfaceNode(n, KindExit, call)
}

// NewRedo allocates a REDO node linked to call.
func (s *Store) NewRedo(n Node, call NodeRef) NodeRef {
	return s.newInterfaceNode(n, KindRedo, call)
}

// NewFail allocates a FAIL node linked to call.
func (s *Store) NewFail(n Node, call NodeRef) NodeRef {
	return s.newInterfaceNode(n, KindFail, call)
}

// NewExcp allocates an EXCP node linked to call.
func (s *Store) NewExcp(n Node, call NodeRef) NodeRef {
	return s.newInterfaceNode(n, KindExcp, call)
}

// newInterfaceNode implements the shared EXIT/REDO/FAIL/EXCP construction:
// set PrevInterface to the call's current LastInterface, allocate, then
// advance the call's LastInterface to the new node (invariant I3).
func (s *Store) newInterfaceNode(n Node, kind Kind, call NodeRef) NodeRef {
	n.Kind = kind
	n.Call = call
	callNode := s.Get(call)
	n.PrevInterface = callNode.LastInterface
	n.CallSeqno = callNode.CallSeqno
	ref := s.alloc(n)
	s.SetLastInterface(call, ref)
	return ref
}

// SetLastInterface advances call's interface chain head to ref.
func (s *Store) SetLastInterface(call, ref NodeRef) {
	s.Get(call).LastInterface = ref
}

// GetLastInterface returns the node currently at the head of call's
// interface chain.
func (s *Store) GetLastInterface(call NodeRef) NodeRef {
	return s.Get(call).LastInterface
}

// NewCond allocates a COND node with status Undecided.
func (s *Store) NewCond(n Node) NodeRef {
	n.Kind = KindCond
	n.Status = Undecided
	n.Cond, n.Neg, n.FirstDisj = NilRef, NilRef, NilRef
	return s.alloc(n)
}

// NewThen allocates a THEN node referencing cond, and marks cond Succeeded.
func (s *Store) NewThen(n Node, cond NodeRef) NodeRef {
	n.Kind = KindThen
	n.Cond = cond
	s.SetCondStatus(cond, Succeeded)
	return s.alloc(n)
}

// NewElse allocates an ELSE node referencing cond, and marks cond Failed.
func (s *Store) NewElse(n Node, cond NodeRef) NodeRef {
	n.Kind = KindElse
	n.Cond = cond
	s.SetCondStatus(cond, Failed)
	return s.alloc(n)
}

// SetCondStatus sets the status of a COND node.
func (s *Store) SetCondStatus(ref NodeRef, status Status) {
	s.Get(ref).Status = status
}

// NewNegEnter allocates a NEG_ENTER node with status Undecided.
func (s *Store) NewNegEnter(n Node) NodeRef {
	n.Kind = KindNegEnter
	n.Status = Undecided
	n.Cond, n.Neg, n.FirstDisj = NilRef, NilRef, NilRef
	return s.alloc(n)
}

// NewNegSuccess allocates a NEG_SUCCESS node referencing neg, and marks
// neg Succeeded.
func (s *Store) NewNegSuccess(n Node, neg NodeRef) NodeRef {
	n.Kind = KindNegSuccess
	n.Neg = neg
	s.SetNegStatus(neg, Succeeded)
	return s.alloc(n)
}

// NewNegFailure allocates a NEG_FAILURE node referencing neg, and marks
// neg Failed.
func (s *Store) NewNegFailure(n Node, neg NodeRef) NodeRef {
	n.Kind = KindNegFailure
	n.Neg = neg
	s.SetNegStatus(neg, Failed)
	return s.alloc(n)
}

// SetNegStatus sets the status of a NEG_ENTER node.
func (s *Store) SetNegStatus(ref NodeRef, status Status) {
	s.Get(ref).Status = status
}

// NewSwitch allocates a SWITCH node.
func (s *Store) NewSwitch(n Node) NodeRef {
	n.Kind = KindSwitch
	return s.alloc(n)
}

// NewFirstDisj allocates a FIRST_DISJ node.
func (s *Store) NewFirstDisj(n Node) NodeRef {
	n.Kind = KindFirstDisj
	n.FirstDisj = NilRef
	return s.alloc(n)
}

// NewLaterDisj allocates a LATER_DISJ node referencing first, the
// FIRST_DISJ of the same disjunction (invariant I5).
func (s *Store) NewLaterDisj(n Node, first NodeRef) NodeRef {
	n.Kind = KindLaterDisj
	n.FirstDisj = first
	return s.alloc(n)
}

// CacheLayout memoizes a resolved procedure layout.
func (s *Store) CacheLayout(layout event.ProcedureLayout) {
	s.layoutCache.Add(layout.Handle, layout)
}

// LookupLayout returns a memoized procedure layout, if present.
func (s *Store) LookupLayout(handle event.LayoutHandle) (event.ProcedureLayout, bool) {
	return s.layoutCache.Get(handle)
}
