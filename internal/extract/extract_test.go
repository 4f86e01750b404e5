package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jensroland/rebasebot/internal/model"
	"github.com/jensroland/rebasebot/internal/trace"
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

func TestFeatureTagsAndSorts(t *testing.T) {
	oldBase, feature := t.TempDir(), t.TempDir()
	writeTree(t, oldBase, map[string]string{
		"z.c": "int z;\n",
		"a.c": "int a;\n",
	})
	writeTree(t, feature, map[string]string{
		"z.c": "int z = 1;\n",
		"a.c": "int a = 1;\n",
	})
	mappings := []trace.Mapping{
		{PathGlob: "*.c", ReqIDs: []string{"REQ-C"}},
		{Path: "a.c", ReqIDs: []string{"REQ-A"}},
	}

	units, err := Feature(oldBase, feature, mappings)
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 2 {
		t.Fatalf("units = %d", len(units))
	}
	if units[0].FilePath != "a.c" || units[1].FilePath != "z.c" {
		t.Errorf("not sorted: %s, %s", units[0].FilePath, units[1].FilePath)
	}
	if len(units[0].ReqIDs) != 2 {
		t.Errorf("a.c req_ids = %v, want union of both mappings", units[0].ReqIDs)
	}
	if len(units[1].ReqIDs) != 1 || units[1].ReqIDs[0] != "REQ-C" {
		t.Errorf("z.c req_ids = %v", units[1].ReqIDs)
	}
}

func TestBaseCollectsEveryKind(t *testing.T) {
	oldBase, newBase := t.TempDir(), t.TempDir()
	writeTree(t, oldBase, map[string]string{"a.c": "int a;\n"})
	writeTree(t, newBase, map[string]string{"a.c": "int a = 2;\n", "new.json": `{"x": 1}`})

	delta, err := Base(oldBase, newBase)
	if err != nil {
		t.Fatal(err)
	}
	if delta.Adapters[model.KindCCpp].Files["a.c"].Status != model.FileModified {
		t.Errorf("c_cpp delta = %+v", delta.Adapters[model.KindCCpp])
	}
	if delta.Adapters[model.KindJSON].Files["new.json"].Status != model.FileAdded {
		t.Errorf("json delta = %+v", delta.Adapters[model.KindJSON])
	}
	if len(delta.Adapters) != 5 {
		t.Errorf("adapters = %d, want one delta per kind", len(delta.Adapters))
	}
}
