package adapter

import (
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jensroland/rebasebot/internal/model"
)

// YAML handles .yml/.yaml configuration files with the same
// depth-limited structural strategy as the JSON adapter.
type YAML struct{}

func (YAML) Kind() model.Kind { return model.KindYAML }

func (YAML) DetectEnv() map[string]bool {
	return map[string]bool{
		"yq": hasTool("yq"),
	}
}

func decodeYAML(content string) (any, bool) {
	var v any
	if err := yaml.Unmarshal([]byte(content), &v); err != nil {
		return nil, false
	}
	return v, true
}

func (YAML) ExtractFeature(oldBase, feature string) ([]model.PatchUnit, error) {
	files, err := listKindFiles(feature, model.KindYAML)
	if err != nil {
		return nil, err
	}
	var units []model.PatchUnit
	for _, rel := range files {
		after, err := readFile(filepath.Join(feature, rel))
		if err != nil {
			return nil, fmt.Errorf("read feature file %s: %w", rel, err)
		}
		oldPath := filepath.Join(oldBase, rel)
		if !fileExists(oldPath) {
			units = append(units, model.PatchUnit{
				FilePath: rel,
				Kind:     model.KindYAML,
				Ops:      []model.Op{{Op: model.OpAddFile, Content: after}},
				ReqIDs:   []string{},
			})
			continue
		}
		before, err := readFile(oldPath)
		if err != nil {
			return nil, fmt.Errorf("read old base file %s: %w", rel, err)
		}
		if before == after {
			continue
		}
		a, aok := decodeYAML(before)
		b, bok := decodeYAML(after)
		var ops []model.Op
		if !aok || !bok {
			ops = []model.Op{{Op: model.OpTextFallback, Content: after}}
		} else {
			ops = structuralDiff(a, b, "")
		}
		if len(ops) == 0 {
			continue
		}
		units = append(units, model.PatchUnit{
			FilePath: rel,
			Kind:     model.KindYAML,
			Ops:      ops,
			ReqIDs:   []string{},
		})
	}
	return units, nil
}

func (YAML) ExtractBase(oldBase, newBase string) (model.KindDelta, error) {
	return fileLevelDelta(oldBase, newBase, model.KindYAML)
}

func (YAML) Retarget(unit *model.PatchUnit, delta model.KindDelta, newBaseRoot string) error {
	return nil
}

func (YAML) Apply(unit *model.PatchUnit, targetRoot string) model.ApplyResult {
	rel := unit.FilePath
	target := filepath.Join(targetRoot, rel)
	doc := map[string]any{}
	if fileExists(target) {
		content, err := readFile(target)
		if err != nil {
			return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("read target: %v", err)}
		}
		v, ok := decodeYAML(content)
		if !ok {
			return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: "invalid YAML at target"}
		}
		if m, ok := v.(map[string]any); ok {
			doc = m
		}
	}
	for _, op := range unit.Ops {
		switch op.Op {
		case model.OpAddFile, model.OpTextFallback:
			if err := writeFile(target, op.Content); err != nil {
				return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("write failed: %v", err)}
			}
			return model.ApplyResult{FilePath: rel, Status: model.StatusApplied, Details: "file added"}
		case model.OpAdd, model.OpRemove, model.OpReplace:
			if op.Op == model.OpReplace && len(splitPath(op.Path)) == 0 {
				if m, ok := op.Value.(map[string]any); ok {
					doc = m
					continue
				}
				return model.ApplyResult{FilePath: rel, Status: model.StatusPartial, Details: "root replace with non-mapping value"}
			}
			if err := applyStructuralOp(doc, op); err != nil {
				return model.ApplyResult{FilePath: rel, Status: model.StatusPartial, Details: err.Error()}
			}
		default:
			return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("unsupported op %s", op.Op)}
		}
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("encode: %v", err)}
	}
	if err := writeFile(target, string(out)); err != nil {
		return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("write failed: %v", err)}
	}
	return model.ApplyResult{FilePath: rel, Status: model.StatusApplied, Details: "yaml ops applied"}
}

// Validate parses every YAML file in the target tree; failures are
// warnings.
func (YAML) Validate(targetRoot string) []model.ValidationIssue {
	files, err := listKindFiles(targetRoot, model.KindYAML)
	if err != nil {
		return []model.ValidationIssue{{Level: model.LevelWarning, Message: fmt.Sprintf("yaml validate walk failed: %v", err)}}
	}
	var issues []model.ValidationIssue
	for _, rel := range files {
		content, err := readFile(filepath.Join(targetRoot, rel))
		if err != nil {
			issues = append(issues, model.ValidationIssue{FilePath: rel, Level: model.LevelWarning, Message: fmt.Sprintf("unreadable: %v", err)})
			continue
		}
		if _, ok := decodeYAML(content); !ok {
			issues = append(issues, model.ValidationIssue{FilePath: rel, Level: model.LevelWarning, Message: "invalid YAML"})
		}
	}
	return issues
}
