package adapter

import (
	"fmt"
	"path/filepath"

	"github.com/jensroland/rebasebot/internal/diffutil"
	"github.com/jensroland/rebasebot/internal/model"
)

// Text is the generic fallback adapter. It diffs whole files as lines
// and applies unified hunks in-process, writing conventional .orig
// backups and .rej sidecars when hunks no longer fit the target.
type Text struct{}

func (Text) Kind() model.Kind { return model.KindText }

func (Text) DetectEnv() map[string]bool {
	return map[string]bool{
		"git":   hasTool("git"),
		"diff":  hasTool("diff"),
		"patch": hasTool("patch"),
	}
}

func (Text) ExtractFeature(oldBase, feature string) ([]model.PatchUnit, error) {
	return extractTextUnits(oldBase, feature, model.KindText)
}

// extractTextUnits is the shared line-diff extraction used by the Text
// and C/C++ adapters. Byte-identical files produce no unit.
func extractTextUnits(oldBase, feature string, kind model.Kind) ([]model.PatchUnit, error) {
	files, err := listKindFiles(feature, kind)
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
				Kind:     kind,
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
		units = append(units, model.PatchUnit{
			FilePath: rel,
			Kind:     kind,
			Ops:      []model.Op{{Op: model.OpTextDiff, Diff: diffutil.Unified(rel, before, after)}},
			ReqIDs:   []string{},
		})
	}
	return units, nil
}

func (Text) ExtractBase(oldBase, newBase string) (model.KindDelta, error) {
	return fileLevelDelta(oldBase, newBase, model.KindText)
}

// Retarget is a no-op for generic text; there is nothing semantic to
// relocate.
func (Text) Retarget(unit *model.PatchUnit, delta model.KindDelta, newBaseRoot string) error {
	return nil
}

func (Text) Apply(unit *model.PatchUnit, targetRoot string) model.ApplyResult {
	return applyTextUnit(unit, targetRoot)
}

// applyTextUnit applies a text-representation unit to the target tree.
// All hunks applied -> applied; some -> partial; none -> conflict.
// Failed hunks are written to a <file>.rej sidecar and the pre-patch
// content is kept in a <file>.orig backup.
func applyTextUnit(unit *model.PatchUnit, targetRoot string) model.ApplyResult {
	rel := unit.FilePath
	target := filepath.Join(targetRoot, rel)
	if len(unit.Ops) == 0 {
		return model.ApplyResult{FilePath: rel, Status: model.StatusApplied, Details: "no-op"}
	}
	for _, op := range unit.Ops {
		switch op.Op {
		case model.OpAddFile, model.OpTextFallback:
			if err := writeFile(target, op.Content); err != nil {
				return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("write failed: %v", err)}
			}
			details := "file added"
			if op.Op == model.OpTextFallback {
				details = "content replaced"
			}
			return model.ApplyResult{FilePath: rel, Status: model.StatusApplied, Details: details}
		case model.OpTextDiff:
			return applyTextDiff(rel, target, op.Diff)
		default:
			return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("unknown op %s", op.Op)}
		}
	}
	return model.ApplyResult{FilePath: rel, Status: model.StatusApplied, Details: "no-op"}
}

func applyTextDiff(rel, target, diff string) model.ApplyResult {
	hunks, err := diffutil.ParseUnified(diff)
	if err != nil {
		return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("bad patch: %v", err)}
	}
	if len(hunks) == 0 {
		return model.ApplyResult{FilePath: rel, Status: model.StatusApplied, Details: "no-op"}
	}
	current := ""
	if fileExists(target) {
		current, err = readFile(target)
		if err != nil {
			return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("read target: %v", err)}
		}
	}
	merged, failed := diffutil.Apply(current, hunks)
	if len(failed) == len(hunks) {
		if err := writeFile(target+".rej", diffutil.FormatReject(rel, failed)); err != nil {
			return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("write reject: %v", err)}
		}
		return model.ApplyResult{FilePath: rel, Status: model.StatusConflict,
			Details: fmt.Sprintf("no hunks applied, %d rejected", len(failed))}
	}
	if len(failed) > 0 {
		if err := writeFile(target+".orig", current); err != nil {
			return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("write backup: %v", err)}
		}
		if err := writeFile(target, merged); err != nil {
			return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("write failed: %v", err)}
		}
		if err := writeFile(target+".rej", diffutil.FormatReject(rel, failed)); err != nil {
			return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("write reject: %v", err)}
		}
		return model.ApplyResult{FilePath: rel, Status: model.StatusPartial,
			Details: fmt.Sprintf("%d of %d hunks applied", len(hunks)-len(failed), len(hunks))}
	}
	if err := writeFile(target, merged); err != nil {
		return model.ApplyResult{FilePath: rel, Status: model.StatusConflict, Details: fmt.Sprintf("write failed: %v", err)}
	}
	return model.ApplyResult{FilePath: rel, Status: model.StatusApplied,
		Details: fmt.Sprintf("%d hunks applied", len(hunks))}
}

// Validate has nothing kind-specific to check for generic text.
func (Text) Validate(targetRoot string) []model.ValidationIssue {
	return nil
}
