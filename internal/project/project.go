package project

import (
	"os"
	"path/filepath"
)

// Paths holds all relevant directories for one rebase workspace.
type Paths struct {
	Root        string // workspace root
	WorkDir     string // .rebasebot/
	ArtifactDir string // .rebasebot/artifacts/
	CacheDir    string // .rebasebot/cache/
	IndexDB     string // .rebasebot/cache/index.db
}

// FindRoot returns the workspace root, preferring REBASEBOT_DIR if set.
func FindRoot() (string, error) {
	if dir := os.Getenv("REBASEBOT_DIR"); dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// NewPaths constructs all path constants from a workspace root.
func NewPaths(root string) Paths {
	work := filepath.Join(root, ".rebasebot")
	return Paths{
		Root:        root,
		WorkDir:     work,
		ArtifactDir: filepath.Join(work, "artifacts"),
		CacheDir:    filepath.Join(work, "cache"),
		IndexDB:     filepath.Join(work, "cache", "index.db"),
	}
}

// EnsureDirs creates the workspace directories.
func EnsureDirs(p Paths) error {
	for _, dir := range []string{p.WorkDir, p.ArtifactDir, p.CacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// IsInitialized returns true if the .rebasebot/ directory exists.
func IsInitialized(root string) bool {
	info, err := os.Stat(filepath.Join(root, ".rebasebot"))
	return err == nil && info.IsDir()
}
