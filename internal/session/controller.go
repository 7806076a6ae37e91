// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

// Package session implements the Session Controller: the
// component that owns the Node Store for the lifetime of a debugging
// session and drives start/diagnose/restart/go_to_selected_event plus
// the trust-list and configuration-knob setters.
package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/wangp/decldbg/internal/atom"
	"github.com/wangp/decldbg/internal/config"
	"github.com/wangp/decldbg/internal/dump"
	"github.com/wangp/decldbg/internal/event"
	"github.com/wangp/decldbg/internal/filter"
	"github.com/wangp/decldbg/internal/frontend"
	"github.com/wangp/decldbg/internal/metrics"
	"github.com/wangp/decldbg/internal/replay"
	"github.com/wangp/decldbg/internal/store"
)

// StartMode selects whether a session's completion is handed to the
// front end (interactive) or serialized to the dump sink.
type StartMode uint8

const (
	ModeInteractive StartMode = iota
	ModeDump
)

// StartRequest carries every argument start() needs,
// taken from the EXIT/FAIL/EXCP event the user asked to diagnose.
type StartRequest struct {
	Mode     StartMode
	DumpPath string
	// DumpFormat selects the dump sink's encoding; the zero value is
	// dump.FormatGob.
	DumpFormat dump.Format
	Event      event.Event
	Registers  atom.RegisterView
}

// Result is start()'s outcome.
type Result struct {
	SessionID string
}

// Controller owns one debugging session's Node Store, Filter/Classifier,
// and persistent state, and drives the interaction between the replay
// mechanism and the front end.
type Controller struct {
	cfg     *config.Config
	replay  replay.Mechanism
	front   frontend.Diagnoser
	ioCache *IOActionMapCache
	metrics *metrics.Collectors
	log     *logrus.Entry
	zlog    *zap.Logger

	trust      TrustList
	searchMode SearchMode
	persist    persistBackend

	persistent frontend.PersistentState
	browser    frontend.BrowserState

	// Per-session state; valid only while a collection window is open.
	sessionID        string
	s                *store.Store
	classifier       *filter.Classifier
	root             store.NodeRef
	dumpWriter       *dump.Writer
	dumpCloser       io.Closer
	initialStepSize  int64
	topmostCallDepth int64
	lastCallDepth    int64
	compilerWarning  bool
	active           bool
}

// New builds a Controller. replayMech and front are required; metrics
// and zlog may be nil (all-metrics/logging becomes a no-op).
func New(cfg *config.Config, replayMech replay.Mechanism, front frontend.Diagnoser, col *metrics.Collectors, log *logrus.Logger, zlog *zap.Logger) *Controller {
	if log == nil {
		log = logrus.New()
	}
	if zlog == nil {
		zlog = zap.NewNop()
	}

	return &Controller{
		cfg:        cfg,
		replay:     replayMech,
		front:      front,
		ioCache:    NewIOActionMapCache(),
		metrics:    col,
		log:        log.WithField("component", "session"),
		zlog:       zlog,
		searchMode: DefaultSearchMode(),
		root:       store.NilRef,
	}
}

// openDumpFunc abstracts opening the dump sink's output file so tests
// can supply an in-memory sink instead of touching the filesystem.
type openDumpFunc func(path string) (io.WriteCloser, error)

// OpenDump is overridable in tests; the default writes to the
// filesystem.
var OpenDump openDumpFunc = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// Start begins a debugging session at req.Event, which must be an
// EXIT/FAIL/EXCP event (a final port); starting anywhere else is an
// invalid start condition.
func (c *Controller) Start(ctx context.Context, req StartRequest) (Result, error) {
	if err := c.validateStartCondition(req.Event); err != nil {
		return Result{}, err
	}

	id := uuid.NewString()
	c.sessionID = id
	c.log = c.log.WithField("session_id", id)

	if c.persist != nil {
		if st, err := c.persist.LoadPersistentState(ctx, persistStateKey); err != nil {
			c.log.WithError(err).Warn("could not load persistent front-end state")
		} else if st != nil {
			c.persistent = st
		}
	}

	c.s = store.New(c.metrics)
	c.root = store.NilRef
	c.compilerWarning = false
	c.initialStepSize = int64(c.cfg.InitialStepSize)
	// The initial window is rooted at the triggering call itself; only a
	// supertree restart climbs above it.
	c.topmostCallDepth = req.Event.CallDepth
	c.lastCallDepth = req.Event.CallDepth

	c.classifier = filter.New(
		c.s,
		c.initialStepSize,
		req.Event.EventNumber,
		req.Event.CallSeqno,
		req.Event.IOCounter,
		c.topmostCallDepth,
		false,
		c.checkpointLogger(),
	)

	if req.Mode == ModeDump {
		if err := c.openDumpSink(req.DumpPath, req.DumpFormat); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrUnopenableDumpFile, err)
		}
	} else {
		c.dumpWriter = nil
	}

	levelsUp := req.Event.CallDepth - c.topmostCallDepth
	if _, err := replay.Retry(ctx, c.replay, replay.Request{
		EventNumber:    req.Event.EventNumber,
		TargetLevelsUp: levelsUp,
		AllIOTabled:    c.cfg.AssumeAllIOIsTabled,
	}); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrReplayFailed, err)
	}

	c.active = true
	if c.metrics != nil {
		c.metrics.SessionStarted()
	}
	c.log.Info("session started")

	return Result{SessionID: id}, nil
}

// validateStartCondition checks every precondition Start imposes on the
// event it is asked to begin from.
func (c *Controller) validateStartCondition(ev event.Event) error {
	if !ev.Port.IsFinalPort() {
		return fmt.Errorf("%w: %w", ErrInvalidStartCondition, ErrNotFinalPort)
	}
	if !ev.Layout.HasExecTracing {
		return fmt.Errorf("%w: %w", ErrInvalidStartCondition, filter.ErrLayoutMissing)
	}
	if ev.Layout.CompilerGenerated {
		return fmt.Errorf("%w: %w", ErrInvalidStartCondition, ErrUCIProcedure)
	}
	if !ev.Layout.TraceLevel.Adequate() {
		return fmt.Errorf("%w: %w", ErrInvalidStartCondition, ErrInadequateTraceLevel)
	}
	if len(ev.Layout.Suppressed) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidStartCondition, ErrSuppressedEvents)
	}
	return nil
}

func (c *Controller) checkpointLogger() *zap.Logger {
	if c.cfg != nil && c.cfg.CheckpointLogging {
		return c.zlog
	}
	return zap.NewNop()
}

func (c *Controller) openDumpSink(path string, format dump.Format) error {
	if OpenDump == nil {
		return fmt.Errorf("no dump sink configured")
	}
	if !filepath.IsAbs(path) && c.cfg != nil && c.cfg.DumpDir != "" {
		path = filepath.Join(c.cfg.DumpDir, path)
	}
	wc, err := OpenDump(path)
	if err != nil {
		return err
	}
	c.dumpCloser = wc
	c.dumpWriter = dump.NewWriter(wc, format)
	return nil
}

// Feed drives one trace event through the Filter/Classifier and, on
// session completion, invokes diagnose(). It is the method the tracer's
// event loop calls for every event once a session is active.
func (c *Controller) Feed(ctx context.Context, ev event.Event, regs atom.RegisterView) (filter.Outcome, error) {
	if !c.active {
		return filter.Outcome{}, ErrNoActiveSession
	}

	c.lastCallDepth = ev.CallDepth

	outcome, err := c.classifier.Step(ev, regs)
	if err != nil {
		c.active = false
		return filter.Outcome{}, fmt.Errorf("session: %w", err)
	}

	if c.metrics != nil {
		c.metrics.ObserveOutcome(outcome)
	}
	if outcome.CompilerFlagWarning {
		c.compilerWarning = true
	}
	// The node handed to the front end as root is the one built at the
	// final port of the start seqno: the root of a subtree, or the
	// implicit root representing the existing tree in a supertree.
	if outcome.Reason == filter.Accepted &&
		ev.CallSeqno == c.classifier.StartSeqno && ev.Port.IsFinalPort() {
		c.root = outcome.Node
	}

	if outcome.SessionComplete {
		if err := c.diagnose(ctx); err != nil {
			c.active = false
			return outcome, fmt.Errorf("session: diagnose: %w", err)
		}
	}

	return outcome, nil
}

// diagnose hands the completed tree to the front end (or the dump sink)
// and acts on the verdict.
func (c *Controller) diagnose(ctx context.Context) error {
	if c.compilerWarning {
		c.log.Warn("Warning: some modules were compiled with a trace level lower than decl. This may result in calls being omitted from the debugging tree.")
		c.compilerWarning = false
	}

	if c.dumpWriter != nil {
		snap := dump.BuildSnapshot(c.s, c.root)
		if err := c.dumpWriter.Write(snap); err != nil {
			return err
		}
		if c.dumpCloser != nil {
			_ = c.dumpCloser.Close()
		}
		c.active = false
		return nil
	}

	ioStart := c.classifier.StartIOCounter
	ioEnd := c.s.Get(c.root).IOCounter
	useOld := c.ioCache.Lookup(c.sessionID, ioStart, ioEnd)
	c.ioCache.Store(c.sessionID, frontend.IOActionMapCache{Start: ioStart, End: ioEnd})

	// The front end memoizes node positions across calls, so the version
	// must move before it observes the store again.
	resp, err := c.front.Diagnose(ctx, frontend.Request{
		StoreVersion:      c.s.BumpVersion(),
		Root:              c.root,
		UseOldIOMap:       useOld,
		IOStart:           ioStart,
		IOEnd:             ioEnd,
		PersistentStateIn: c.persistent,
	}, c.browser)
	if err != nil {
		return fmt.Errorf("front end: %w", err)
	}
	if err := resp.Validate(); err != nil {
		return err
	}

	c.persistent = resp.PersistentStateOut
	c.browser = resp.BrowserStateOut
	if c.persist != nil {
		if err := c.persist.SavePersistentState(ctx, persistStateKey, c.persistent); err != nil {
			c.log.WithError(err).Warn("could not save persistent front-end state")
		}
	}

	switch resp.Kind {
	case frontend.BugFound, frontend.SymptomFound, frontend.NoBugFound:
		c.active = false
		return nil
	case frontend.RequireSubtree:
		return c.Restart(ctx, resp.CallPreceding, resp.FinalEvent, resp.TopmostSeqno, false)
	case frontend.RequireSupertree:
		return c.Restart(ctx, store.NilRef, resp.FinalEvent, resp.TopmostSeqno, true)
	default:
		return frontend.ErrUnknownResponse
	}
}

// GotoSelectedEvent rewinds the traced program to just before
// eventNumber and arms a jump to it, then returns to interactive mode.
func (c *Controller) GotoSelectedEvent(ctx context.Context, eventNumber int64) error {
	if _, err := c.replay.GotoEvent(ctx, eventNumber); err != nil {
		return fmt.Errorf("%w: %v", ErrReplayFailed, err)
	}
	return nil
}

// Restart re-enters collection for a subtree or supertree continuation
// requested by the front end, splicing the new fragment onto
// callPreceding in the existing tree.
func (c *Controller) Restart(ctx context.Context, callPreceding store.NodeRef, finalEvent, topmostSeqno int64, supertree bool) error {
	if supertree {
		c.topmostCallDepth -= c.initialStepSize
		if c.topmostCallDepth < 1 {
			c.topmostCallDepth = 1
		}
	}

	maxDepth := c.initialStepSize + 1
	if ceiling := int64(c.cfg.MaxDepthCeiling); maxDepth > ceiling {
		maxDepth = ceiling
	}

	c.root = store.NilRef
	c.classifier = filter.New(
		c.s,
		maxDepth,
		finalEvent,
		topmostSeqno,
		0,
		c.topmostCallDepth,
		supertree,
		c.checkpointLogger(),
	)
	// Seed the constructor's prev so the new explicit fragment's parent
	// resolves into the tree already built.
	c.classifier.SeedPrev(callPreceding)
	c.compilerWarning = false

	levelsUp := c.lastCallDepth - c.topmostCallDepth
	if levelsUp < 0 {
		levelsUp = 0
	}
	if _, err := replay.Retry(ctx, c.replay, replay.Request{
		EventNumber:    finalEvent,
		TargetLevelsUp: levelsUp,
		AllIOTabled:    c.cfg.AssumeAllIOIsTabled,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrReplayFailed, err)
	}

	c.active = true
	return nil
}

// SessionID returns the UUID assigned by the most recent Start that
// passed validation. It is not cleared when the session ends; it is ""
// only before the first such Start.
func (c *Controller) SessionID() string { return c.sessionID }

// Active reports whether a collection window is currently open.
func (c *Controller) Active() bool { return c.active }

// Trust-list passthroughs: the trust policy itself is
// enforced by the front end; the Session Controller only stores and
// renders the list.

func (c *Controller) AddTrustedModule(name string) { c.trust.AddModule(name) }

func (c *Controller) AddTrustedPredOrFunc(description string) { c.trust.AddPredOrFunc(description) }

func (c *Controller) TrustStandardLibrary() { c.trust.TrustStandardLibrary() }

func (c *Controller) RemoveTrusted(index int) (bool, error) {
	if !c.trust.RemoveTrusted(index) {
		return false, ErrTrustIndexOutOfRange
	}
	return true, nil
}

func (c *Controller) ListTrusted(format ListFormat) string { return c.trust.ListTrusted(format) }

// Configuration knobs.

func (c *Controller) SetFallbackSearchMode(mode SearchMode) { c.searchMode = mode }

func (c *Controller) SearchMode() SearchMode { return c.searchMode }
