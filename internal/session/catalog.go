// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

package session

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

// SearchMode selects how the front end explores a presented EDT fragment
// when more than one location could be the bug.
type SearchMode uint8

const (
	TopDown SearchMode = iota
	DivideAndQuery
)

func (m SearchMode) String() string {
	if m == DivideAndQuery {
		return "divide_and_query"
	}
	return "top_down"
}

// ParseSearchMode parses a user-supplied search-mode name, returning
// ok=false for anything unrecognized rather than an error. Callers that
// want an error can wrap this with ErrUnknownSearchMode.
func ParseSearchMode(s string) (SearchMode, bool) {
	switch s {
	case "top_down":
		return TopDown, true
	case "divide_and_query":
		return DivideAndQuery, true
	default:
		return TopDown, false
	}
}

// DefaultSearchMode is the fallback search mode used when none has been
// configured.
func DefaultSearchMode() SearchMode { return TopDown }

// TrustKind distinguishes the three ways a region of the program can be
// marked trusted: a whole module, a single predicate or function, or the
// entire standard library.
type TrustKind uint8

const (
	TrustModule TrustKind = iota
	TrustPredOrFunc
	TrustStandardLibrary
)

func (k TrustKind) String() string {
	switch k {
	case TrustModule:
		return "module"
	case TrustPredOrFunc:
		return "pred_or_func"
	case TrustStandardLibrary:
		return "standard_library"
	default:
		return "unknown"
	}
}

// TrustEntry is one row of the persistent trust list the front end
// enforces; the Session Controller only stores and renders these. The
// trust policy itself lives in the front end.
type TrustEntry struct {
	Kind TrustKind
	// Name is the module name (TrustModule) or a description of the
	// layout (TrustPredOrFunc); empty for TrustStandardLibrary.
	Name string
}

// TrustList is the ordered, mutable set of trust entries for one
// session's persistent front-end state.
type TrustList struct {
	entries []TrustEntry
}

// AddModule implements add_trusted_module(name).
func (t *TrustList) AddModule(name string) {
	t.entries = append(t.entries, TrustEntry{Kind: TrustModule, Name: name})
}

// AddPredOrFunc implements add_trusted_pred_or_func(layout). layout is
// rendered as its descriptive name; the Node Constructor side never
// consults this list directly, only the front end does.
func (t *TrustList) AddPredOrFunc(description string) {
	t.entries = append(t.entries, TrustEntry{Kind: TrustPredOrFunc, Name: description})
}

// TrustStandardLibrary implements trust_standard_library().
func (t *TrustList) TrustStandardLibrary() {
	t.entries = append(t.entries, TrustEntry{Kind: TrustStandardLibrary})
}

// RemoveTrusted implements remove_trusted(index) → bool.
func (t *TrustList) RemoveTrusted(index int) bool {
	if index < 0 || index >= len(t.entries) {
		return false
	}
	t.entries = append(t.entries[:index], t.entries[index+1:]...)
	return true
}

// Entries returns a copy of the current trust list, in order.
func (t *TrustList) Entries() []TrustEntry {
	out := make([]TrustEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// ListFormat selects list_trusted's rendering.
type ListFormat uint8

const (
	FormatTable ListFormat = iota
	FormatPlain
)

// ListTrusted implements list_trusted(format) → string.
func (t *TrustList) ListTrusted(format ListFormat) string {
	if format == FormatPlain {
		var out string
		for i, e := range t.entries {
			out += strconv.Itoa(i) + ": " + describeTrustEntry(e) + "\n"
		}
		return out
	}

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"#", "kind", "name"})
	for i, e := range t.entries {
		tw.AppendRow(table.Row{i, e.Kind.String(), e.Name})
	}
	return tw.Render()
}

func describeTrustEntry(e TrustEntry) string {
	switch e.Kind {
	case TrustModule:
		return "module " + e.Name
	case TrustPredOrFunc:
		return "pred/func " + e.Name
	case TrustStandardLibrary:
		return "standard library"
	default:
		return "unknown trust entry"
	}
}

// knobDescriptions documents every tunable the Session Controller
// exposes, keyed by the knob's config field name: a static
// human-readable catalog surfaced alongside the raw values, not derived
// from them.
var knobDescriptions = map[string]string{
	"initial_step_size":       "Depth the collection window grows by on each restart; also the initial max_depth on start().",
	"max_depth_ceiling":       "Upper bound on max_depth regardless of how many times the window climbs via require_supertree.",
	"assume_all_io_is_tabled": "Replay hint: treat every I/O action as tabled (safe to re-execute) rather than consulting the runtime.",
	"checkpoint_logging":      "Emit a debug log line for every node the Node Constructor builds; extremely chatty, off by default.",
	"dump_dir":                "Directory raw-dump sessions write their output file into when given a relative filename.",
	"metrics_addr":            "Listen address for the optional Prometheus /metrics endpoint.",
	"redis_addr":              "Redis address for the front end's persistent state; empty disables persistence.",
}

// KnobCatalog is the typed response for DescribeKnobs(): a name +
// description row per known configuration knob.
type KnobCatalog struct {
	Knobs []KnobDescription
}

// KnobDescription is one entry of the catalog.
type KnobDescription struct {
	Name        string
	Description string
}

// DescribeKnobs returns the catalog of the knobs in knobDescriptions,
// in a stable order. redis_db is not listed.
func DescribeKnobs() KnobCatalog {
	order := []string{
		"initial_step_size", "max_depth_ceiling", "assume_all_io_is_tabled",
		"checkpoint_logging", "dump_dir", "metrics_addr", "redis_addr",
	}
	cat := KnobCatalog{Knobs: make([]KnobDescription, 0, len(order))}
	for _, name := range order {
		cat.Knobs = append(cat.Knobs, KnobDescription{Name: name, Description: knobDescriptions[name]})
	}
	return cat
}

// RenderKnobs renders a KnobCatalog as a table, for the CLI.
func RenderKnobs(cat KnobCatalog) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"knob", "description"})
	for _, k := range cat.Knobs {
		tw.AppendRow(table.Row{k.Name, k.Description})
	}
	return tw.Render()
}
