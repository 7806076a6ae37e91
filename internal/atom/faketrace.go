// Copyright 2026 The decldbg Authors
// Use of this source code is governed by the GNU Lesser General Public
// License v3, or (at your option) any later version.

package atom

// FakeRegisterView is a test double implementing RegisterView, standing
// in for the tracer's real register/stack view.
type FakeRegisterView struct {
	// Values[i] is the reified value for head-variable i, or nil if it
	// should report not-live.
	Values []any
	// Types[i] is the TypeInfo for head-variable i.
	Types []TypeInfo
}

var _ RegisterView = (*FakeRegisterView)(nil)

func (f *FakeRegisterView) Live(i int) bool {
	return i < len(f.Values) && f.Values[i] != nil
}

func (f *FakeRegisterView) Reify(i int) (TypeInfo, any, bool) {
	if i >= len(f.Values) || f.Values[i] == nil {
		return TypeInfo{}, nil, false
	}

	t := TypeInfo{Name: "unknown"}
	if i < len(f.Types) {
		t = f.Types[i]
	}

	return t, f.Values[i], true
}
