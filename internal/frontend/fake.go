// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

package frontend

import "context"

// Fake is an in-memory Diagnoser for tests: it returns a scripted
// Response in FIFO order and records every Request it received.
type Fake struct {
	Requests []Request
	script   []Response
	err      error
}

// NewFake builds an empty Fake front end.
func NewFake() *Fake { return &Fake{} }

// ScriptResponse queues one Response to be returned by the next call to
// Diagnose.
func (f *Fake) ScriptResponse(r Response) { f.script = append(f.script, r) }

// ScriptError makes every subsequent call to Diagnose fail with err.
func (f *Fake) ScriptError(err error) { f.err = err }

func (f *Fake) Diagnose(_ context.Context, req Request, browserIn BrowserState) (Response, error) {
	f.Requests = append(f.Requests, req)

	if f.err != nil {
		return Response{}, f.err
	}
	if len(f.script) == 0 {
		return Response{Kind: NoBugFound}, nil
	}
	next := f.script[0]
	f.script = f.script[1:]
	if next.BrowserStateOut == nil {
		next.BrowserStateOut = browserIn
	}
	return next, nil
}

var _ Diagnoser = (*Fake)(nil)
