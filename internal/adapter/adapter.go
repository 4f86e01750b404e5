// Package adapter implements the per-file-kind strategies of the
// rebase pipeline: extract, retarget, apply, and validate for generic
// text, C/C++, JSON, YAML, and device-tree sources. Dispatch is by
// file extension with Text as the fallback.
package adapter

import (
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/jensroland/rebasebot/internal/model"
)

var registry = map[model.Kind]model.Adapter{
	model.KindText:       Text{},
	model.KindCCpp:       CCpp{},
	model.KindJSON:       JSON{},
	model.KindYAML:       YAML{},
	model.KindDeviceTree: DeviceTree{},
}

// order is the fixed iteration order for whole-batch operations.
var order = []model.Kind{
	model.KindCCpp,
	model.KindJSON,
	model.KindYAML,
	model.KindDeviceTree,
	model.KindText,
}

// ForKind returns the adapter for a kind, Text when unknown.
func ForKind(k model.Kind) model.Adapter {
	if a, ok := registry[k]; ok {
		return a
	}
	return registry[model.KindText]
}

// ForPath returns the adapter responsible for a file path.
func ForPath(path string) model.Adapter {
	return ForKind(model.KindForPath(path))
}

// All returns every adapter in the fixed batch order.
func All() []model.Adapter {
	out := make([]model.Adapter, 0, len(order))
	for _, k := range order {
		out = append(out, registry[k])
	}
	return out
}

// listKindFiles walks root and returns the sorted relative slash paths
// of regular files belonging to kind. A missing root yields no files.
func listKindFiles(root string, kind model.Kind) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if model.KindForPath(rel) == kind {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// hasTool probes PATH for an external tool; adapters surface the
// result as a capability flag, never as an error.
func hasTool(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// fileLevelDelta classifies every file of a kind present in either
// baseline as added, deleted, or modified by content inequality.
func fileLevelDelta(oldBase, newBase string, kind model.Kind) (model.KindDelta, error) {
	delta := model.KindDelta{Files: map[string]model.FileChange{}}
	oldFiles, err := listKindFiles(oldBase, kind)
	if err != nil {
		return delta, err
	}
	newFiles, err := listKindFiles(newBase, kind)
	if err != nil {
		return delta, err
	}
	newSet := map[string]bool{}
	for _, rel := range newFiles {
		newSet[rel] = true
	}
	oldSet := map[string]bool{}
	for _, rel := range oldFiles {
		oldSet[rel] = true
		if !newSet[rel] {
			delta.Files[rel] = model.FileChange{Status: model.FileDeleted}
			continue
		}
		a, err := readFile(filepath.Join(oldBase, rel))
		if err != nil {
			return delta, err
		}
		b, err := readFile(filepath.Join(newBase, rel))
		if err != nil {
			return delta, err
		}
		if a != b {
			delta.Files[rel] = model.FileChange{Status: model.FileModified}
		}
	}
	for _, rel := range newFiles {
		if !oldSet[rel] {
			delta.Files[rel] = model.FileChange{Status: model.FileAdded}
		}
	}
	return delta, nil
}
