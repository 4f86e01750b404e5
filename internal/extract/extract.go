// Package extract produces the two independent change sets the
// pipeline reconciles: the feature's patch units relative to the old
// baseline, and the per-kind delta describing how the baseline itself
// evolved.
package extract

import (
	"fmt"
	"sort"

	"github.com/jensroland/rebasebot/internal/adapter"
	"github.com/jensroland/rebasebot/internal/model"
	"github.com/jensroland/rebasebot/internal/trace"
)

// Feature diffs the feature tree against the old baseline and returns
// one patch unit per changed file, tagged with the union of matching
// requirement IDs. Byte-identical files produce no unit; feature-only
// files produce a single add_file unit.
func Feature(oldBase, feature string, mappings []trace.Mapping) ([]model.PatchUnit, error) {
	var units []model.PatchUnit
	for _, a := range adapter.All() {
		us, err := a.ExtractFeature(oldBase, feature)
		if err != nil {
			return nil, fmt.Errorf("%s extraction: %w", a.Kind(), err)
		}
		units = append(units, us...)
	}
	for i := range units {
		units[i].ReqIDs = trace.ReqIDsForFile(units[i].FilePath, mappings)
		units[i].Requirements = trace.RequirementsForFile(units[i].FilePath, mappings)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].FilePath < units[j].FilePath })
	return units, nil
}

// Base classifies every file present in either baseline per adapter
// kind and collects kind-specific hints (inferred C/C++ renames,
// detected JSON key moves).
func Base(oldBase, newBase string) (model.BaseDelta, error) {
	delta := model.BaseDelta{Adapters: map[model.Kind]model.KindDelta{}}
	for _, a := range adapter.All() {
		kd, err := a.ExtractBase(oldBase, newBase)
		if err != nil {
			return delta, fmt.Errorf("%s base delta: %w", a.Kind(), err)
		}
		delta.Adapters[a.Kind()] = kd
	}
	return delta, nil
}
