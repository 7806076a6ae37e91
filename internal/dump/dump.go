// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

// Package dump implements the dump-sink boundary: when a session is
// started in dump mode, the Node Store and its
// root are serialized to an external sink at completion instead of being
// handed to the front end. The wire format is opaque to the rest of the
// system by design; this package offers two concrete encodings: a
// round-trip gob format for re-loading into another back end process,
// and a human/external sigs.k8s.io/yaml format for tooling that wants to
// grep or diff a dump without writing a decoder.
package dump

import (
	"encoding/gob"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	"github.com/wangp/decldbg/internal/store"
)

func init() {
	// Argument values travel inside interface-typed Univ slots; gob
	// needs the concrete types registered up front. The runtime's
	// reification layer produces only these.
	gob.Register("")
	gob.Register(int64(0))
	gob.Register(uint64(0))
	gob.Register(false)
	gob.Register(float64(0))
	gob.Register([]byte(nil))
	gob.Register([]any(nil))
	gob.Register(map[string]any(nil))
}

// Snapshot is the serializable projection of a Store: every node, in
// arena order, plus the root NodeRef the session completed with.
type Snapshot struct {
	Root    store.NodeRef
	Version uint64
	Nodes   []store.Node
}

// BuildSnapshot copies every node out of s. It is the only place outside
// the store package that reads the full node slice; it exists so dump
// serialization never needs store-internal access.
func BuildSnapshot(s *store.Store, root store.NodeRef) Snapshot {
	refs := s.Nodes()
	nodes := make([]store.Node, len(refs))
	for i, ref := range refs {
		nodes[i] = *s.Get(ref)
	}
	return Snapshot{Root: root, Version: s.Version(), Nodes: nodes}
}

// Format selects the dump sink's wire encoding.
type Format uint8

const (
	FormatGob Format = iota
	FormatYAML
)

// Writer serializes a Snapshot to w in the requested Format.
type Writer struct {
	w      io.Writer
	format Format
}

// NewWriter builds a Writer over w.
func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

// Write serializes snap to the underlying sink.
func (wr *Writer) Write(snap Snapshot) error {
	switch wr.format {
	case FormatGob:
		if err := gob.NewEncoder(wr.w).Encode(snap); err != nil {
			return fmt.Errorf("dump: encoding gob snapshot: %w", err)
		}
		return nil
	case FormatYAML:
		b, err := yaml.Marshal(snap)
		if err != nil {
			return fmt.Errorf("dump: marshaling yaml snapshot: %w", err)
		}
		if _, err := wr.w.Write(b); err != nil {
			return fmt.Errorf("dump: writing yaml snapshot: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("dump: unknown format %d", wr.format)
	}
}

// Reader deserializes a Snapshot previously produced by Writer in
// FormatGob. YAML dumps are one-way, consumed by external tooling only;
// there is no requirement to read one back.
type Reader struct{ r io.Reader }

// NewReader builds a Reader over r.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// Read decodes a gob-encoded Snapshot.
func (rd *Reader) Read() (Snapshot, error) {
	var snap Snapshot
	if err := gob.NewDecoder(rd.r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("dump: decoding gob snapshot: %w", err)
	}
	return snap, nil
}
