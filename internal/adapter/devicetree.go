package adapter

import (
	"fmt"
	"path/filepath"

	"github.com/jensroland/rebasebot/internal/model"
)

// DeviceTree handles .dts/.dtsi files at file level only: add, delete,
// and modify status with whole-file content, no content-level ops.
type DeviceTree struct{}

func (DeviceTree) Kind() model.Kind { return model.KindDeviceTree }

func (DeviceTree) DetectEnv() map[string]bool {
	return map[string]bool{
		"dtc": hasTool("dtc"),
	}
}

func (DeviceTree) ExtractFeature(oldBase, feature string) ([]model.PatchUnit, error) {
	files, err := listKindFiles(feature, model.KindDeviceTree)
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
				Kind:     model.KindDeviceTree,
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
		// Modified device trees carry the feature content wholesale.
		units = append(units, model.PatchUnit{
			FilePath: rel,
			Kind:     model.KindDeviceTree,
			Ops:      []model.Op{{Op: model.OpTextFallback, Content: after}},
			ReqIDs:   []string{},
		})
	}
	return units, nil
}

func (DeviceTree) ExtractBase(oldBase, newBase string) (model.KindDelta, error) {
	return fileLevelDelta(oldBase, newBase, model.KindDeviceTree)
}

func (DeviceTree) Retarget(unit *model.PatchUnit, delta model.KindDelta, newBaseRoot string) error {
	return nil
}

func (DeviceTree) Apply(unit *model.PatchUnit, targetRoot string) model.ApplyResult {
	return applyTextUnit(unit, targetRoot)
}

func (DeviceTree) Validate(targetRoot string) []model.ValidationIssue {
	return nil
}
