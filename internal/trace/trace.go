// Package trace loads the glob-to-requirement map and answers which
// requirements govern a file. The map drives both extraction tagging
// and AI-assisted conflict resolution.
package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Mapping is one record of the requirement map. Either Path (exact)
// or PathGlob is set; Requirement text is used verbatim downstream.
type Mapping struct {
	Path        string   `yaml:"path,omitempty" json:"path,omitempty"`
	PathGlob    string   `yaml:"path_glob,omitempty" json:"path_glob,omitempty"`
	ReqIDs      []string `yaml:"req_ids,omitempty" json:"req_ids,omitempty"`
	Requirement string   `yaml:"requirement,omitempty" json:"requirement,omitempty"`
}

// MapFileName is the conventional requirement map file name.
const MapFileName = "REQUIREMENTS_MAP.yml"

// Load reads a requirement map YAML file. An empty file yields an
// empty map, not an error.
func Load(path string) ([]Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read requirement map: %w", err)
	}
	var mappings []Mapping
	if err := yaml.Unmarshal(data, &mappings); err != nil {
		return nil, fmt.Errorf("parse requirement map %s: %w", path, err)
	}
	return mappings, nil
}

// matches reports whether a mapping governs relPath. Exact paths win
// on equality; globs match the full slash path or the bare file name.
func matches(m Mapping, relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	if m.Path != "" {
		if m.Path == relPath || filepath.Base(m.Path) == filepath.Base(relPath) ||
			strings.HasSuffix(relPath, m.Path) {
			return true
		}
	}
	if m.PathGlob != "" {
		if ok, _ := doublestar.Match(m.PathGlob, relPath); ok {
			return true
		}
		if ok, _ := doublestar.Match(m.PathGlob, filepath.Base(relPath)); ok {
			return true
		}
	}
	return false
}

// ReqIDsForFile returns the sorted union of req_ids from every mapping
// that matches relPath. Union, not first-match-wins.
func ReqIDsForFile(relPath string, mappings []Mapping) []string {
	seen := map[string]bool{}
	for _, m := range mappings {
		if matches(m, relPath) {
			for _, id := range m.ReqIDs {
				seen[id] = true
			}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RequirementsForFile returns the requirement texts of every matching
// mapping, in map order, deduplicated.
func RequirementsForFile(relPath string, mappings []Mapping) []string {
	var texts []string
	seen := map[string]bool{}
	for _, m := range mappings {
		if m.Requirement == "" || seen[m.Requirement] {
			continue
		}
		if matches(m, relPath) {
			texts = append(texts, m.Requirement)
			seen[m.Requirement] = true
		}
	}
	return texts
}

// StripArtifactSuffix removes a trailing .orig or .rej so reject and
// backup sidecars resolve to their target file's requirements.
func StripArtifactSuffix(path string) string {
	for _, suf := range []string{".orig", ".rej"} {
		if strings.HasSuffix(path, suf) {
			return strings.TrimSuffix(path, suf)
		}
	}
	return path
}

// RequirementForTarget finds the requirement text governing a target
// file, trying exact path, bare name, path suffix, and finally glob
// matches against the path, name, and individual path components.
func RequirementForTarget(target string, mappings []Mapping) (string, bool) {
	rel := filepath.ToSlash(StripArtifactSuffix(target))
	name := filepath.Base(rel)

	for _, m := range mappings {
		if m.Path == "" || m.Requirement == "" {
			continue
		}
		if m.Path == rel || filepath.Base(m.Path) == name || strings.HasSuffix(rel, m.Path) {
			return m.Requirement, true
		}
	}
	for _, m := range mappings {
		if m.PathGlob == "" || m.Requirement == "" {
			continue
		}
		if ok, _ := doublestar.Match(m.PathGlob, rel); ok {
			return m.Requirement, true
		}
		if ok, _ := doublestar.Match(m.PathGlob, name); ok {
			return m.Requirement, true
		}
		for _, part := range strings.Split(rel, "/") {
			if ok, _ := doublestar.Match(m.PathGlob, part); ok {
				return m.Requirement, true
			}
		}
	}
	return "", false
}

// FindMapFile searches the fixed precedence order for a requirement
// map: feature root, feature data folder, base roots, base data
// folders, then work-directory fallbacks.
func FindMapFile(featureRoot, oldBaseRoot, newBaseRoot, workDir string) (string, bool) {
	candidates := []string{
		filepath.Join(featureRoot, MapFileName),
		filepath.Join(featureRoot, "data", MapFileName),
		filepath.Join(oldBaseRoot, MapFileName),
		filepath.Join(newBaseRoot, MapFileName),
		filepath.Join(oldBaseRoot, "data", MapFileName),
		filepath.Join(newBaseRoot, "data", MapFileName),
		filepath.Join(workDir, MapFileName),
		filepath.Join(filepath.Dir(workDir), MapFileName),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, true
		}
	}
	return "", false
}
