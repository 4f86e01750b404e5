package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jensroland/rebasebot/internal/model"
	"github.com/jensroland/rebasebot/internal/retarget"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRunEndToEnd(t *testing.T) {
	oldBase, newBase, feature := t.TempDir(), t.TempDir(), t.TempDir()
	workRoot := t.TempDir()
	output := filepath.Join(t.TempDir(), "out")

	writeTree(t, oldBase, map[string]string{
		"src/main.c":  "int main(void) {\n  return 0;\n}\n",
		"config.json": `{"display": {"width": 1280}}`,
	})
	writeTree(t, feature, map[string]string{
		"src/main.c":  "int main(void) {\n  init_logging();\n  return 0;\n}\n",
		"config.json": `{"display": {"width": 1344}}`,
		"NOTES.txt":   "feature notes\n",
		"REQUIREMENTS_MAP.yml": `
- path: src/main.c
  req_ids: [REQ-1]
  requirement: "logging must be initialized at startup"
`,
	})
	writeTree(t, newBase, map[string]string{
		"src/main.c":  "int main(void) {\n  return 0;\n}\n",
		"config.json": `{"display": {"width": 1280}, "audio": {"volume": 5}}`,
	})

	rep, err := Run(context.Background(), Options{
		OldBase:   oldBase,
		NewBase:   newBase,
		Feature:   feature,
		Output:    output,
		WorkRoot:  workRoot,
		Mode:      retarget.PerUnit,
		DisableAI: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if rep.RunID == "" {
		t.Error("missing run id")
	}
	if total := rep.Summary.Auto + rep.Summary.Semantic + rep.Summary.Conflicts; total != len(rep.Files) {
		t.Errorf("summary total %d != %d files", total, len(rep.Files))
	}
	if !rep.Validation.Success {
		t.Errorf("validation failed: %+v", rep.Validation.Issues)
	}

	// The C edit applies cleanly onto the unchanged baseline file.
	got, err := os.ReadFile(filepath.Join(output, "src/main.c"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), "init_logging();") {
		t.Errorf("main.c = %q", got)
	}

	// The structural JSON op lands on the evolved baseline file.
	data, err := os.ReadFile(filepath.Join(output, "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc["display"].(map[string]any)["width"] != float64(1344) {
		t.Errorf("width = %v", doc["display"])
	}
	if _, ok := doc["audio"]; !ok {
		t.Error("baseline audio key lost during replay")
	}

	// Requirement IDs from the map reach the per-file outcome.
	for _, f := range rep.Files {
		if f.File == "src/main.c" {
			if len(f.ReqIDs) != 1 || f.ReqIDs[0] != "REQ-1" {
				t.Errorf("main.c req_ids = %v", f.ReqIDs)
			}
		}
	}

	// Artifacts land in the workspace.
	artifacts := filepath.Join(workRoot, ".rebasebot", "artifacts")
	for _, name := range []string{"feature_patch.json", "base_delta.json", "retarget_results.json", "report.json", "report.txt"} {
		if _, err := os.Stat(filepath.Join(artifacts, name)); err != nil {
			t.Errorf("missing artifact %s", name)
		}
	}
	logs, err := filepath.Glob(filepath.Join(artifacts, "changelog_*.json"))
	if err != nil || len(logs) != 1 {
		t.Errorf("changelog artifacts = %v (err %v)", logs, err)
	}
}

func TestRunConflictResolvedByHeuristic(t *testing.T) {
	oldBase, newBase, feature := t.TempDir(), t.TempDir(), t.TempDir()
	workRoot := t.TempDir()
	output := filepath.Join(t.TempDir(), "out")

	// The baseline renamed the API out from under the feature's edit,
	// destroying the hunk context.
	writeTree(t, oldBase, map[string]string{
		"src/api.c": "void run(void) {\n  OldAPI_Init(42);\n  done();\n}\n",
	})
	writeTree(t, feature, map[string]string{
		"src/api.c": "void run(void) {\n  OldAPI_Init(200);\n  done();\n}\n",
		"REQUIREMENTS_MAP.yml": `
- path: src/api.c
  req_ids: [REQ-7]
  requirement: "retry count must be 200"
`,
	})
	writeTree(t, newBase, map[string]string{
		"src/api.c": "void start(void) {\n  NewAPI_Init(42);\n  prepare();\n  done();\n}\n",
	})

	rep, err := Run(context.Background(), Options{
		OldBase:   oldBase,
		NewBase:   newBase,
		Feature:   feature,
		Output:    output,
		WorkRoot:  workRoot,
		Mode:      retarget.PerUnit,
		DisableAI: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	// The numeric-substitution heuristic carries the 200 into the
	// renamed API call and clears the reject.
	got, err := os.ReadFile(filepath.Join(output, "src/api.c"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), "NewAPI_Init(200)") {
		t.Errorf("api.c = %q", got)
	}
	if _, err := os.Stat(filepath.Join(output, "src/api.c.rej")); !os.IsNotExist(err) {
		t.Error("reject should be resolved")
	}
	if rep.Summary.Conflicts != 0 {
		t.Errorf("conflicts = %d after resolution", rep.Summary.Conflicts)
	}
	if !rep.Validation.Success {
		t.Errorf("validation failed: %+v", rep.Validation.Issues)
	}
}

func TestRunRequiresPaths(t *testing.T) {
	if _, err := Run(context.Background(), Options{}); err == nil {
		t.Error("expected error for missing paths")
	}
}

func TestReconcileRetalliesSummary(t *testing.T) {
	output := t.TempDir()
	os.WriteFile(filepath.Join(output, "a.c"), []byte("x\n"), 0o644)
	// No .rej present: the conflict was merged away.
	result := model.RetargetResult{
		Summary: model.Summary{Conflicts: 1},
		Files:   []model.Outcome{{File: "a.c", Status: model.StatusConflict}},
	}
	reconcile(&result, output)
	if result.Files[0].Status != model.StatusPartial {
		t.Errorf("status = %s", result.Files[0].Status)
	}
	if result.Summary.Semantic != 1 || result.Summary.Conflicts != 0 {
		t.Errorf("summary = %+v", result.Summary)
	}
}
