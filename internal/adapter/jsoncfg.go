package adapter

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jensroland/rebasebot/internal/model"
)

// JSON handles .json configuration files with structural path-based
// diffs. Apply is depth-limited: paths beyond two levels yield a
// partial result instead of guessing.
type JSON struct{}

func (JSON) Kind() model.Kind { return model.KindJSON }

func (JSON) DetectEnv() map[string]bool {
	return map[string]bool{
		"jq": hasTool("jq"),
	}
}

func decodeJSON(content string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return nil, false
	}
	return v, true
}

func (JSON) ExtractFeature(oldBase, feature string) ([]model.PatchUnit, error) {
	files, err := listKindFiles(feature, model.KindJSON)
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
				Kind:     model.KindJSON,
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
		a, aok := decodeJSON(before)
		b, bok := decodeJSON(after)
		var ops []model.Op
		if !aok || !bok {
			// Undecodable content degrades to raw-text handling.
			ops = []model.Op{{Op: model.OpTextFallback, Content: after}}
		} else {
			ops = structuralDiff(a, b, "")
		}
		if len(ops) == 0 {
			continue // semantically identical despite byte difference
		}
		units = append(units, model.PatchUnit{
			FilePath: rel,
			Kind:     model.KindJSON,
			Ops:      ops,
			ReqIDs:   []string{},
		})
	}
	return units, nil
}

// ExtractBase records file-level changes and detects one narrowly
// pattern-matched structural relocation: a camera/rvc key that moved
// to camera/rvcs. General move detection is out of scope.
func (JSON) ExtractBase(oldBase, newBase string) (model.KindDelta, error) {
	delta, err := fileLevelDelta(oldBase, newBase, model.KindJSON)
	if err != nil {
		return delta, err
	}
	delta.KeyMoves = map[string]string{}
	for rel, change := range delta.Files {
		if change.Status != model.FileModified {
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
		av, aok := decodeJSON(a)
		bv, bok := decodeJSON(b)
		if !aok || !bok {
			continue
		}
		am, aok := av.(map[string]any)
		bm, bok := bv.(map[string]any)
		if !aok || !bok {
			continue
		}
		camA, aok := am["camera"].(map[string]any)
		camB, bok := bm["camera"].(map[string]any)
		if !aok || !bok {
			continue
		}
		_, hadRvc := camA["rvc"]
		_, hasRvcs := camB["rvcs"]
		if hadRvc && hasRvcs {
			delta.KeyMoves["/"+rel+"#/camera/rvc"] = "/" + rel + "#/camera/rvcs"
		}
	}
	return delta, nil
}

// Retarget remaps structural op paths that the base delta knows to
// have moved.
func (JSON) Retarget(unit *model.PatchUnit, delta model.KindDelta, newBaseRoot string) error {
	if len(delta.KeyMoves) == 0 {
		return nil
	}
	for i, op := range unit.Ops {
		switch op.Op {
		case model.OpAdd, model.OpRemove, model.OpReplace:
		default:
			continue
		}
		key := "/" + unit.FilePath + "#" + op.Path
		if moved, ok := delta.KeyMoves[key]; ok {
			if idx := strings.Index(moved, "#"); idx >= 0 {
				unit.Ops[i].Path = moved[idx+1:]
				if unit.Notes == "" {
					unit.Notes = "structural path remapped: " + op.Path + " -> " + unit.Ops[i].Path
				}
			}
		}
	}
	return nil
}

func (JSON) Apply(unit *model.PatchUnit, targetRoot string) model.ApplyResult {
	rel := unit.FilePath
	target := filepath.Join(targetRoot, rel)
	doc := map[string]any{}
	if fileExists(target) {
		content, err := readFile(target)
		if err != nil {
			return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("read target: %v", err)}
		}
		v, ok := decodeJSON(content)
		if !ok {
			return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: "invalid JSON at target"}
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
				return model.ApplyResult{FilePath: rel, Status: model.StatusPartial, Details: "root replace with non-object value"}
			}
			if err := applyStructuralOp(doc, op); err != nil {
				return model.ApplyResult{FilePath: rel, Status: model.StatusPartial, Details: err.Error()}
			}
		default:
			return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("unsupported op %s", op.Op)}
		}
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("encode: %v", err)}
	}
	if err := writeFile(target, string(out)+"\n"); err != nil {
		return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("write failed: %v", err)}
	}
	return model.ApplyResult{FilePath: rel, Status: model.StatusApplied, Details: "json ops applied"}
}

// Validate parses every JSON file in the target tree; parse failures
// surface as warnings, never as errors.
func (JSON) Validate(targetRoot string) []model.ValidationIssue {
	files, err := listKindFiles(targetRoot, model.KindJSON)
	if err != nil {
		return []model.ValidationIssue{{Level: model.LevelWarning, Message: fmt.Sprintf("json validate walk failed: %v", err)}}
	}
	var issues []model.ValidationIssue
	for _, rel := range files {
		content, err := readFile(filepath.Join(targetRoot, rel))
		if err != nil {
			issues = append(issues, model.ValidationIssue{FilePath: rel, Level: model.LevelWarning, Message: fmt.Sprintf("unreadable: %v", err)})
			continue
		}
		if _, ok := decodeJSON(content); !ok {
			issues = append(issues, model.ValidationIssue{FilePath: rel, Level: model.LevelWarning, Message: "invalid JSON"})
		}
	}
	return issues
}
