package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewPaths(t *testing.T) {
	p := NewPaths("/work")
	if p.WorkDir != filepath.Join("/work", ".rebasebot") {
		t.Errorf("WorkDir = %q", p.WorkDir)
	}
	if p.ArtifactDir != filepath.Join("/work", ".rebasebot", "artifacts") {
		t.Errorf("ArtifactDir = %q", p.ArtifactDir)
	}
	if p.IndexDB != filepath.Join("/work", ".rebasebot", "cache", "index.db") {
		t.Errorf("IndexDB = %q", p.IndexDB)
	}
}

func TestFindRootEnvOverride(t *testing.T) {
	t.Setenv("REBASEBOT_DIR", "/custom/root")
	root, err := FindRoot()
	if err != nil {
		t.Fatal(err)
	}
	if root != "/custom/root" {
		t.Errorf("root = %q", root)
	}
}

func TestEnsureDirsAndIsInitialized(t *testing.T) {
	root := t.TempDir()
	if IsInitialized(root) {
		t.Error("fresh dir reported initialized")
	}
	if err := EnsureDirs(NewPaths(root)); err != nil {
		t.Fatal(err)
	}
	if !IsInitialized(root) {
		t.Error("workspace not detected after EnsureDirs")
	}
	for _, sub := range []string{".rebasebot", ".rebasebot/artifacts", ".rebasebot/cache"} {
		if info, err := os.Stat(filepath.Join(root, sub)); err != nil || !info.IsDir() {
			t.Errorf("missing dir %s", sub)
		}
	}
}
