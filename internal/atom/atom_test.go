// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

package atom

import (
	"testing"

	"github.com/wangp/decldbg/internal/event"
)

func TestBuilderBuildLiveAndNoValueSlots(t *testing.T) {
	regs := &FakeRegisterView{
		Values: []any{int64(42), nil, "hello"},
		Types:  []TypeInfo{{Name: "int"}, {Name: "int"}, {Name: "string"}},
	}

	ev := event.Event{
		Layout: event.ProcedureLayout{
			Name:        "foo/3",
			ArgCount:    3,
			UserVisible: []bool{true, true, false},
		},
	}

	b := NewBuilder()
	a := b.Build(ev, regs)

	if len(a.Slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(a.Slots))
	}
	if !a.Slots[0].HasValue() {
		t.Error("slot 0 should have a value")
	}
	if a.Slots[1].HasValue() {
		t.Error("slot 1 should be no-value (not live)")
	}
	if !a.Slots[2].HasValue() {
		t.Error("slot 2 should have a value")
	}
	if a.Slots[2].UserVisible {
		t.Error("slot 2 is compiler-generated, should not be UserVisible")
	}
}

func TestBuilderNeverFailsOnEmptyLayout(t *testing.T) {
	b := NewBuilder()
	a := b.Build(event.Event{}, &FakeRegisterView{})
	if len(a.Slots) != 0 {
		t.Fatalf("expected no slots for ArgCount 0, got %d", len(a.Slots))
	}
}
