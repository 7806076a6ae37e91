// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

package goalpath

import "testing"

func TestSameConstruct(t *testing.T) {
	cases := []struct {
		p, q string
		want bool
	}{
		{"c2;t;", "c2;t;", true},
		{"c2;t;", "c2;e;", true},
		{"c2;t;", "c2;", true},
		{"c2;", "c2;t;", true},
		{"c2;e;", "c2;", true},
		{"c2;t;c3;", "c2;t;", true},
		{"c2;t;c3;", "c2;", false},
		{"c2;d1;", "c2;d2;", true},
		{"c2;d1;", "c3;d2;", false},
		{"d1;", "", true},
		{"", "", true},
		{"c2;", "c3;", true},
	}
	for _, tc := range cases {
		if got := SameConstruct(tc.p, tc.q); got != tc.want {
			t.Errorf("SameConstruct(%q, %q) = %v, want %v", tc.p, tc.q, got, tc.want)
		}
		if got := SameConstruct(tc.q, tc.p); got != tc.want {
			t.Errorf("SameConstruct(%q, %q) = %v, want %v", tc.q, tc.p, got, tc.want)
		}
	}
}

func TestIsFirstDisjunct(t *testing.T) {
	if !IsFirstDisjunct("c2;d1;") {
		t.Error("c2;d1; should be the first disjunct")
	}
	if IsFirstDisjunct("c2;d2;") {
		t.Error("c2;d2; should not be the first disjunct")
	}
	if IsFirstDisjunct("") {
		t.Error("empty path should not be the first disjunct")
	}
}

func TestParentAndLastComponent(t *testing.T) {
	if got := Parent("c2;t;c3;"); got != "c2;t;" {
		t.Errorf("Parent = %q, want %q", got, "c2;t;")
	}
	if got := Parent("c2;"); got != "" {
		t.Errorf("Parent = %q, want empty", got)
	}
	if got := LastComponent("c2;t;c3;"); got != "c3;" {
		t.Errorf("LastComponent = %q, want %q", got, "c3;")
	}
}
