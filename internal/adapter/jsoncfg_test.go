package adapter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jensroland/rebasebot/internal/model"
)

func TestJSONExtractFeatureStructural(t *testing.T) {
	oldBase := t.TempDir()
	feature := t.TempDir()
	writeTree(t, oldBase, map[string]string{
		"config.json": `{"display": {"width": 1280, "height": 720}}`,
	})
	writeTree(t, feature, map[string]string{
		"config.json": `{"display": {"width": 1344, "height": 720}, "debug": true}`,
	})

	units, err := JSON{}.ExtractFeature(oldBase, feature)
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 1 {
		t.Fatalf("got %d units", len(units))
	}

	var gotWidth, gotDebug bool
	for _, op := range units[0].Ops {
		if op.Op == model.OpReplace && op.Path == "/display/width" {
			gotWidth = true
		}
		if op.Op == model.OpAdd && op.Path == "/debug" {
			gotDebug = true
		}
	}
	if !gotWidth || !gotDebug {
		t.Errorf("ops = %+v, want width replace and debug add", units[0].Ops)
	}
}

func TestJSONExtractFeatureReformattedOnly(t *testing.T) {
	oldBase := t.TempDir()
	feature := t.TempDir()
	writeTree(t, oldBase, map[string]string{"c.json": `{"a":1}`})
	writeTree(t, feature, map[string]string{"c.json": "{\n  \"a\": 1\n}\n"})

	units, err := JSON{}.ExtractFeature(oldBase, feature)
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 0 {
		t.Errorf("reformatting without semantic change produced units: %+v", units)
	}
}

func TestJSONExtractFeatureUnparseable(t *testing.T) {
	oldBase := t.TempDir()
	feature := t.TempDir()
	writeTree(t, oldBase, map[string]string{"c.json": `{"a": 1}`})
	writeTree(t, feature, map[string]string{"c.json": `{broken`})

	units, err := JSON{}.ExtractFeature(oldBase, feature)
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 1 || units[0].Ops[0].Op != model.OpTextFallback {
		t.Fatalf("unparseable JSON should degrade to text_fallback, got %+v", units)
	}
}

func TestJSONApplyStructural(t *testing.T) {
	target := t.TempDir()
	writeTree(t, target, map[string]string{
		"config.json": `{"display": {"width": 1280, "height": 720}}`,
	})
	unit := model.PatchUnit{
		FilePath: "config.json",
		Kind:     model.KindJSON,
		Ops: []model.Op{
			{Op: model.OpReplace, Path: "/display/width", Value: float64(1344)},
			{Op: model.OpAdd, Path: "/debug", Value: true},
		},
	}
	res := JSON{}.Apply(&unit, target)
	if res.Status != model.StatusApplied {
		t.Fatalf("status = %s (%s)", res.Status, res.Details)
	}

	data, _ := os.ReadFile(filepath.Join(target, "config.json"))
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	display := doc["display"].(map[string]any)
	if display["width"] != float64(1344) {
		t.Errorf("width = %v", display["width"])
	}
	if display["height"] != float64(720) {
		t.Errorf("height clobbered: %v", display["height"])
	}
	if doc["debug"] != true {
		t.Errorf("debug = %v", doc["debug"])
	}
}

func TestJSONApplyDeepPathIsPartial(t *testing.T) {
	target := t.TempDir()
	writeTree(t, target, map[string]string{"c.json": `{"a": {"b": {"c": 1}}}`})
	unit := model.PatchUnit{
		FilePath: "c.json",
		Kind:     model.KindJSON,
		Ops:      []model.Op{{Op: model.OpReplace, Path: "/a/b/c", Value: float64(2)}},
	}
	res := JSON{}.Apply(&unit, target)
	if res.Status != model.StatusPartial {
		t.Errorf("status = %s, want partial for depth > 2", res.Status)
	}
}

func TestJSONApplyInvalidTarget(t *testing.T) {
	target := t.TempDir()
	writeTree(t, target, map[string]string{"c.json": `{broken`})
	unit := model.PatchUnit{
		FilePath: "c.json",
		Kind:     model.KindJSON,
		Ops:      []model.Op{{Op: model.OpAdd, Path: "/x", Value: 1}},
	}
	if res := (JSON{}).Apply(&unit, target); res.Status != model.StatusConflict {
		t.Errorf("status = %s, want conflict for invalid target JSON", res.Status)
	}
}

func TestJSONExtractBaseKeyMove(t *testing.T) {
	oldBase := t.TempDir()
	newBase := t.TempDir()
	writeTree(t, oldBase, map[string]string{
		"cam.json": `{"camera": {"rvc": {"enabled": true}}}`,
	})
	writeTree(t, newBase, map[string]string{
		"cam.json": `{"camera": {"rvcs": {"enabled": true}}}`,
	})

	delta, err := JSON{}.ExtractBase(oldBase, newBase)
	if err != nil {
		t.Fatal(err)
	}
	want := "/cam.json#/camera/rvcs"
	if got := delta.KeyMoves["/cam.json#/camera/rvc"]; got != want {
		t.Errorf("KeyMoves = %v, want %q", delta.KeyMoves, want)
	}
}

func TestJSONRetargetRemapsPath(t *testing.T) {
	unit := model.PatchUnit{
		FilePath: "cam.json",
		Kind:     model.KindJSON,
		Ops:      []model.Op{{Op: model.OpReplace, Path: "/camera/rvc", Value: map[string]any{"enabled": false}}},
	}
	delta := model.KindDelta{
		KeyMoves: map[string]string{"/cam.json#/camera/rvc": "/cam.json#/camera/rvcs"},
	}
	if err := (JSON{}).Retarget(&unit, delta, ""); err != nil {
		t.Fatal(err)
	}
	if unit.Ops[0].Path != "/camera/rvcs" {
		t.Errorf("path = %q, want /camera/rvcs", unit.Ops[0].Path)
	}
	if unit.Notes == "" {
		t.Error("remap should be noted")
	}
}

func TestJSONValidate(t *testing.T) {
	target := t.TempDir()
	writeTree(t, target, map[string]string{
		"ok.json":  `{"a": 1}`,
		"bad.json": `{nope`,
	})
	issues := JSON{}.Validate(target)
	if len(issues) != 1 {
		t.Fatalf("issues = %+v", issues)
	}
	if issues[0].FilePath != "bad.json" || issues[0].Level != model.LevelWarning {
		t.Errorf("issue = %+v", issues[0])
	}
}

func TestStructuralDiffRootReplace(t *testing.T) {
	ops := structuralDiff([]any{1.0}, map[string]any{"a": 1.0}, "")
	if len(ops) != 1 || ops[0].Op != model.OpReplace || ops[0].Path != "/" {
		t.Errorf("ops = %+v, want a single root replace", ops)
	}
}
