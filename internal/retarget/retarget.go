// Package retarget replays feature patch units onto the new baseline.
// Each file moves pending -> {applied | partial | conflict} with no
// internal retries, and the two supported modes produce the same
// output contract.
package retarget

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jensroland/rebasebot/internal/adapter"
	"github.com/jensroland/rebasebot/internal/changelog"
	"github.com/jensroland/rebasebot/internal/model"
)

// Mode selects the replay strategy.
type Mode int

const (
	// PerUnit replays each unit through its kind's adapter, copying
	// only the touched files from the new baseline.
	PerUnit Mode = iota
	// WholeTree copies the entire new baseline and applies every
	// unit's opaque unified-diff representation with reject sidecars.
	WholeTree
)

// Run replays units onto newBaseRoot into outputRoot and returns the
// per-file outcomes and summary. The changelog records every file
// processed, every patch applied, and every sidecar left behind.
func Run(units []model.PatchUnit, delta model.BaseDelta, newBaseRoot, outputRoot string, mode Mode, log *changelog.Changelog) (model.RetargetResult, error) {
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return model.RetargetResult{}, fmt.Errorf("create output root: %w", err)
	}
	if mode == WholeTree {
		if err := copyTree(newBaseRoot, outputRoot); err != nil {
			return model.RetargetResult{}, fmt.Errorf("copy new baseline: %w", err)
		}
	}

	sorted := make([]model.PatchUnit, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FilePath < sorted[j].FilePath })

	result := model.RetargetResult{Files: make([]model.Outcome, 0, len(sorted))}
	for i := range sorted {
		unit := &sorted[i]
		log.AddProcessed(unit.FilePath)
		outcome := runUnit(unit, delta, newBaseRoot, outputRoot, mode, log)
		result.Files = append(result.Files, outcome)
		switch outcome.Status {
		case model.StatusApplied:
			result.Summary.Auto++
		case model.StatusPartial:
			result.Summary.Semantic++
		default:
			result.Summary.Conflicts++
		}
	}
	return result, nil
}

func runUnit(unit *model.PatchUnit, delta model.BaseDelta, newBaseRoot, outputRoot string, mode Mode, log *changelog.Changelog) model.Outcome {
	a := adapter.ForKind(unit.Kind)
	patchName := "retarget_" + strings.ReplaceAll(unit.FilePath, "/", "_")

	if err := a.Retarget(unit, delta.Adapters[unit.Kind], newBaseRoot); err != nil {
		return model.Outcome{
			File:    unit.FilePath,
			Status:  model.StatusConflict,
			Details: err.Error(),
			ReqIDs:  unit.ReqIDs,
		}
	}

	var res model.ApplyResult
	if mode == WholeTree {
		res = applyOpaque(unit, outputRoot)
	} else {
		// Materialize the file from the new baseline before patching.
		if err := copyFromBase(newBaseRoot, outputRoot, unit.FilePath); err != nil {
			return model.Outcome{
				File:    unit.FilePath,
				Status:  model.StatusConflict,
				Details: fmt.Sprintf("materialize from new baseline: %v", err),
				ReqIDs:  unit.ReqIDs,
			}
		}
		res = a.Apply(unit, outputRoot)
	}

	if res.Status != model.StatusConflict {
		log.AddApplied(unit.FilePath, "feature_patch", "retarget")
	}
	target := filepath.Join(outputRoot, unit.FilePath)
	if info, err := os.Stat(target + ".orig"); err == nil && !info.IsDir() {
		log.AddBackup(target+".orig", target, patchName)
	}
	if info, err := os.Stat(target + ".rej"); err == nil && !info.IsDir() {
		log.AddReject(target+".rej", target, patchName)
	}

	details := res.Details
	if unit.Notes != "" {
		details = details + "; " + unit.Notes
	}
	return model.Outcome{
		File:    unit.FilePath,
		Status:  res.Status,
		Details: details,
		ReqIDs:  unit.ReqIDs,
	}
}

// applyOpaque applies a unit through its unified-diff representation
// regardless of kind; units without a text form fall back to their
// structured ops through the text strategy.
func applyOpaque(unit *model.PatchUnit, outputRoot string) model.ApplyResult {
	if unit.UnifiedDiff() == "" && !hasTextOps(unit) {
		return adapter.ForKind(unit.Kind).Apply(unit, outputRoot)
	}
	return adapter.ForKind(model.KindText).Apply(unit, outputRoot)
}

func hasTextOps(unit *model.PatchUnit) bool {
	for _, op := range unit.Ops {
		switch op.Op {
		case model.OpAddFile, model.OpTextDiff, model.OpTextFallback:
			return true
		}
	}
	return false
}

func copyFromBase(baseRoot, outputRoot, rel string) error {
	src := filepath.Join(baseRoot, rel)
	data, err := os.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // feature-only file; apply creates it
		}
		return err
	}
	dst := filepath.Join(outputRoot, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(out, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		return os.WriteFile(out, data, 0o644)
	})
}
