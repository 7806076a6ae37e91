// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

package session

import "errors"

// Errors surfaced by the Session Controller. Some are recoverable
// (return to interactive mode with a diagnostic); others are fatal and
// should terminate the process with a clear message rather than attempt
// to continue with a possibly-corrupted tree.

var (
	// ErrInvalidStartCondition covers every start() precondition failure
	// in one error: non-final port, UCI procedure, inadequate trace
	// level, or suppressed event classes.
	ErrInvalidStartCondition = errors.New("session: invalid start condition")

	// ErrNotFinalPort is a specific ErrInvalidStartCondition cause.
	ErrNotFinalPort = errors.New("session: start() requires an EXIT/FAIL/EXCP event")

	// ErrUCIProcedure is a specific ErrInvalidStartCondition cause.
	ErrUCIProcedure = errors.New("session: cannot start on a compiler-generated procedure")

	// ErrInadequateTraceLevel is a specific ErrInvalidStartCondition cause.
	ErrInadequateTraceLevel = errors.New("session: procedure trace level is not deep or rep")

	// ErrSuppressedEvents is a specific ErrInvalidStartCondition cause.
	ErrSuppressedEvents = errors.New("session: module has suppressed event classes")

	// ErrReplayFailed wraps a non-OK_DIRECT replay outcome during
	// start/restart/go_to_selected_event.
	ErrReplayFailed = errors.New("session: replay failed")

	// ErrUnopenableDumpFile covers a dump-mode start() whose output path
	// cannot be opened for writing.
	ErrUnopenableDumpFile = errors.New("session: cannot open dump file")

	// ErrNoActiveSession is returned by Feed when no collection window
	// is open. Restart and GotoSelectedEvent do not check for one.
	ErrNoActiveSession = errors.New("session: no active collection window")

	// ErrUnknownSearchMode reports an unrecognized search-mode name.
	// ParseSearchMode itself returns ok=false; callers such as
	// cmd/decldbg's set-search-mode turn that into this error.
	ErrUnknownSearchMode = errors.New("session: unknown search mode")

	// ErrTrustIndexOutOfRange is returned by remove_trusted for an index
	// outside the current trust list.
	ErrTrustIndexOutOfRange = errors.New("session: trust index out of range")
)
