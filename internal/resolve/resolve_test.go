package resolve

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jensroland/rebasebot/internal/changelog"
	"github.com/jensroland/rebasebot/internal/trace"
)

func TestParseReject(t *testing.T) {
	body := `--- src/api.c
+++ src/api.c
@@ -1,3 +1,3 @@
 int run(void) {
-  OldAPI(42);
+  OldAPI(200);
 }
`
	hunks, err := ParseReject(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(hunks) != 1 {
		t.Fatalf("got %d hunks", len(hunks))
	}
	if len(hunks[0].Removed) != 1 || !strings.Contains(hunks[0].Removed[0], "OldAPI(42)") {
		t.Errorf("removed = %v", hunks[0].Removed)
	}
	if len(hunks[0].Added) != 1 || !strings.Contains(hunks[0].Added[0], "OldAPI(200)") {
		t.Errorf("added = %v", hunks[0].Added)
	}
}

func TestParseRejectEmpty(t *testing.T) {
	if _, err := ParseReject("no hunks here\n"); err == nil {
		t.Error("expected error for reject without hunks")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		h    []RejectHunk
		want string
	}{
		{
			name: "api change",
			h:    []RejectHunk{{Removed: []string{"OldAPI_Init(1);"}, Added: []string{"NewAPI_Init(1);"}}},
			want: ConflictAPIChange,
		},
		{
			name: "header change",
			h:    []RejectHunk{{Removed: []string{`#include "old.h"`}, Added: []string{`#include "new.h"`}}},
			want: ConflictHeaderChange,
		},
		{
			name: "main change",
			h:    []RejectHunk{{Removed: []string{"int main(void) {"}, Added: []string{"int main(int argc, char **argv) {"}}},
			want: ConflictMainChange,
		},
		{
			name: "plain content",
			h:    []RejectHunk{{Removed: []string{"int x = 1;"}, Added: []string{"int x = 2;"}}},
			want: ConflictContentChange,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Classify(tt.h)
			if got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHeuristicNumericSubstitution(t *testing.T) {
	current := "int run(void) {\n  OldAPI(42);\n  return 0;\n}\n"
	hunks := []RejectHunk{{
		Removed: []string{"  OldAPI(42);"},
		Added:   []string{"  OldAPI(200);"},
	}}
	out, changes, ok := Heuristic("retry count must be 200", current, hunks)
	if !ok {
		t.Fatalf("heuristic produced nothing, changes = %v", changes)
	}
	if !strings.Contains(out, "OldAPI(200)") {
		t.Errorf("out = %q", out)
	}
}

func TestHeuristicPassValueInsertsActivationLog(t *testing.T) {
	current := "#include <iostream>\n\nint main() {\n  OldAPI(42);\n  return 0;\n}\n"
	hunks := []RejectHunk{{
		Removed: []string{"  OldAPI(42);"},
		Added:   []string{"  OldAPI(200);"},
	}}
	out, changes, ok := Heuristic("The feature must pass 200 to the API", current, hunks)
	if !ok {
		t.Fatalf("heuristic produced nothing, changes = %v", changes)
	}
	if !strings.Contains(out, "OldAPI(200)") || strings.Contains(out, "OldAPI(42)") {
		t.Errorf("argument not substituted:\n%s", out)
	}
	idx := strings.Index(out, `std::cout << "Feature activated" << std::endl;`)
	if idx < 0 {
		t.Fatalf("no activation log line inserted:\n%s", out)
	}
	if incl := strings.LastIndex(out, "#include"); idx < incl {
		t.Errorf("activation log not after last include:\n%s", out)
	}
	// Re-running on the merged content must not duplicate the line.
	again, _, _ := Heuristic("The feature must pass 200 to the API", out, hunks)
	if n := strings.Count(again, "Feature activated"); n > 1 {
		t.Errorf("activation log duplicated %d times", n)
	}
}

func TestHeuristicRename(t *testing.T) {
	current := "void run(void) {\n  OldAPI_Init(1);\n}\n"
	hunks := []RejectHunk{{
		Removed: []string{"  OldAPI_Init(1);"},
		Added:   []string{"  NewAPI_Init(1);"},
	}}
	out, _, ok := Heuristic("", current, hunks)
	if !ok {
		t.Fatal("heuristic produced nothing")
	}
	if !strings.Contains(out, "NewAPI_Init(1)") || strings.Contains(out, "OldAPI_Init") {
		t.Errorf("out = %q", out)
	}
}

func TestHeuristicInsertAfterIncludes(t *testing.T) {
	current := "#include <stdio.h>\n#include \"app.h\"\n\nint run(void) { return 0; }\n"
	hunks := []RejectHunk{{
		Added: []string{"static int log_enabled = 1;"},
	}}
	out, _, ok := Heuristic("", current, hunks)
	if !ok {
		t.Fatal("heuristic produced nothing")
	}
	idx := strings.Index(out, "static int log_enabled = 1;")
	incl := strings.LastIndex(out, "#include")
	if idx < 0 || idx < incl {
		t.Errorf("inserted line not after last include:\n%s", out)
	}
}

func TestHeuristicNoChange(t *testing.T) {
	current := "already has NewAPI(7);\n"
	hunks := []RejectHunk{{
		Removed: []string{"unrelated();"},
		Added:   []string{"unrelated();"},
	}}
	if _, _, ok := Heuristic("", current, hunks); ok {
		t.Error("expected no heuristic change")
	}
}

func TestScore(t *testing.T) {
	if got := Score("anything", ""); got != 0 {
		t.Errorf("empty requirement score = %d", got)
	}
	got := Score("the retry count is 200 here", "retry count must be 200")
	if got < 2 {
		t.Errorf("score = %d, want at least 2 token hits", got)
	}
}

type stubResolver struct {
	out string
	err error
}

func (s stubResolver) Resolve(ctx context.Context, prompt string) (string, error) {
	return s.out, s.err
}

func TestResolveFileWithStubAI(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "api.c")
	rej := target + ".rej"
	os.WriteFile(target, []byte("int run(void) {\n  OldAPI(42);\n}\n"), 0o644)
	os.WriteFile(rej, []byte("@@ -1,3 +1,3 @@\n int run(void) {\n-  OldAPI(42);\n+  OldAPI(200);\n }\n"), 0o644)

	log := changelog.New("test-run")
	e := &Engine{
		Resolver: stubResolver{out: "int run(void) {\n  OldAPI(200);\n}\n"},
		Mappings: []trace.Mapping{{Path: "api.c", Requirement: "retry count must be 200"}},
		CacheDir: t.TempDir(),
		Log:      log,
	}

	ok, err := e.ResolveFile(context.Background(), root, rej)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected merge to succeed")
	}
	if _, err := os.Stat(rej); !os.IsNotExist(err) {
		t.Error("reject sidecar should be removed")
	}
	data, _ := os.ReadFile(target)
	if !strings.Contains(string(data), "OldAPI(200)") {
		t.Errorf("target = %q", data)
	}
	if len(log.ThreeWayMerges) != 1 {
		t.Fatalf("merges = %+v", log.ThreeWayMerges)
	}
	if log.ThreeWayMerges[0].Status != changelog.StatusSuccess {
		t.Errorf("status = %s", log.ThreeWayMerges[0].Status)
	}
}

func TestResolveFileHeuristicFallback(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "api.c")
	rej := target + ".rej"
	os.WriteFile(target, []byte("int run(void) {\n  OldAPI(42);\n}\n"), 0o644)
	os.WriteFile(rej, []byte("@@ -1,3 +1,3 @@\n int run(void) {\n-  OldAPI(42);\n+  OldAPI(200);\n }\n"), 0o644)

	log := changelog.New("test-run")
	e := &Engine{
		Resolver: nil, // deterministic path only
		Mappings: []trace.Mapping{{Path: "api.c", Requirement: "retry count must be 200"}},
		CacheDir: t.TempDir(),
		Log:      log,
	}

	ok, err := e.ResolveFile(context.Background(), root, rej)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected heuristic merge")
	}
	data, _ := os.ReadFile(target)
	if !strings.Contains(string(data), "OldAPI(200)") {
		t.Errorf("target = %q", data)
	}
	if log.ThreeWayMerges[0].Status != changelog.StatusAIFailed {
		t.Errorf("status = %s, want %s", log.ThreeWayMerges[0].Status, changelog.StatusAIFailed)
	}
}

func TestResolveFileNoRequirements(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "api.c")
	rej := target + ".rej"
	os.WriteFile(target, []byte("void run(void) {\n  OldAPI_Init(1);\n}\n"), 0o644)
	os.WriteFile(rej, []byte("@@ -1,3 +1,3 @@\n void run(void) {\n-  OldAPI_Init(1);\n+  NewAPI_Init(1);\n }\n"), 0o644)

	log := changelog.New("test-run")
	e := &Engine{CacheDir: t.TempDir(), Log: log}

	ok, err := e.ResolveFile(context.Background(), root, rej)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("rename heuristic should still work without requirements")
	}
	if log.ThreeWayMerges[0].Status != changelog.StatusNoRequirements {
		t.Errorf("status = %s", log.ThreeWayMerges[0].Status)
	}
}

func TestResolveTree(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "src")
	os.MkdirAll(sub, 0o755)
	target := filepath.Join(sub, "api.c")
	os.WriteFile(target, []byte("void run(void) {\n  OldAPI_Init(1);\n}\n"), 0o644)
	os.WriteFile(target+".rej", []byte("@@ -1,3 +1,3 @@\n void run(void) {\n-  OldAPI_Init(1);\n+  NewAPI_Init(1);\n }\n"), 0o644)

	e := &Engine{CacheDir: t.TempDir(), Log: changelog.New("r")}
	merged, err := e.ResolveTree(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if merged != 1 {
		t.Errorf("merged = %d, want 1", merged)
	}
}

func TestStripFences(t *testing.T) {
	in := "```c\nint x = 1;\n```"
	if got := stripFences(in); got != "int x = 1;" {
		t.Errorf("stripFences = %q", got)
	}
	if got := stripFences("plain"); got != "plain" {
		t.Errorf("stripFences(plain) = %q", got)
	}
}
