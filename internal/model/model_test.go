package model

import "testing"

func TestKindForPath(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"src/main.c", KindCCpp},
		{"include/api.h", KindCCpp},
		{"lib/engine.cpp", KindCCpp},
		{"lib/engine.hpp", KindCCpp},
		{"lib/engine.cc", KindCCpp},
		{"config/app.json", KindJSON},
		{"deploy/values.yaml", KindYAML},
		{"deploy/values.yml", KindYAML},
		{"boards/imx8.dts", KindDeviceTree},
		{"boards/imx8-overlay.dtsi", KindDeviceTree},
		{"README.md", KindText},
		{"Makefile", KindText},
		{"src/MAIN.C", KindCCpp},
	}
	for _, tt := range tests {
		if got := KindForPath(tt.path); got != tt.want {
			t.Errorf("KindForPath(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestUnifiedDiff(t *testing.T) {
	u := PatchUnit{
		FilePath: "f.c",
		Ops: []Op{
			{Op: OpAdd, Path: "/x", Value: 1},
			{Op: OpTextDiff, Diff: "@@ -1 +1 @@\n-a\n+b\n"},
		},
	}
	if got := u.UnifiedDiff(); got != "@@ -1 +1 @@\n-a\n+b\n" {
		t.Errorf("UnifiedDiff = %q", got)
	}

	structural := PatchUnit{Ops: []Op{{Op: OpReplace, Path: "/k", Value: 2}}}
	if got := structural.UnifiedDiff(); got != "" {
		t.Errorf("UnifiedDiff for structural unit = %q, want empty", got)
	}
}

func TestConflictError(t *testing.T) {
	err := &ConflictError{FilePath: "a.c", Reason: "context missing", Details: "hunk 2"}
	want := "conflict in a.c: context missing (hunk 2)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
