package adapter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jensroland/rebasebot/internal/model"
)

// CCpp handles C and C++ sources. On top of the generic text strategy
// it captures identifier sets as anchors and infers function renames
// between baselines.
type CCpp struct{}

func (CCpp) Kind() model.Kind { return model.KindCCpp }

func (CCpp) DetectEnv() map[string]bool {
	return map[string]bool{
		"clang-tidy": hasTool("clang-tidy"),
		"gumtree":    hasTool("gumtree"),
		"spatch":     hasTool("spatch"),
	}
}

// symbolRe matches call-site and definition identifiers. Deliberately
// coarse: it over-captures keywords like if/for, which cancel out in
// the symmetric-difference comparison.
var symbolRe = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

func extractSymbols(text string) map[string]bool {
	syms := map[string]bool{}
	for _, m := range symbolRe.FindAllStringSubmatch(text, -1) {
		syms[m[1]] = true
	}
	return syms
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (CCpp) ExtractFeature(oldBase, feature string) ([]model.PatchUnit, error) {
	units, err := extractTextUnits(oldBase, feature, model.KindCCpp)
	if err != nil {
		return nil, err
	}
	// Attach identifier anchors for units that modify an existing file.
	for i := range units {
		if units[i].UnifiedDiff() == "" {
			continue
		}
		rel := units[i].FilePath
		before, err := readFile(filepath.Join(oldBase, rel))
		if err != nil {
			return nil, fmt.Errorf("read old base file %s: %w", rel, err)
		}
		after, err := readFile(filepath.Join(feature, rel))
		if err != nil {
			return nil, fmt.Errorf("read feature file %s: %w", rel, err)
		}
		units[i].Anchors = &model.Anchors{
			SymbolsOld: sortedKeys(extractSymbols(before)),
			SymbolsNew: sortedKeys(extractSymbols(after)),
		}
	}
	return units, nil
}

// ExtractBase adds rename inference on top of the file-level delta:
// when a file's identifier set lost symbols on one side and gained
// symbols on the other, removed and added names are paired by sorted
// lexical order. This is an explicit tie-break policy, not a real
// correlation, and may pair unrelated symbols.
func (c CCpp) ExtractBase(oldBase, newBase string) (model.KindDelta, error) {
	delta, err := fileLevelDelta(oldBase, newBase, model.KindCCpp)
	if err != nil {
		return delta, err
	}
	delta.FuncRenames = map[string]map[string]string{}
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
		symsA := extractSymbols(a)
		symsB := extractSymbols(b)
		var removed, added []string
		for s := range symsA {
			if !symsB[s] {
				removed = append(removed, s)
			}
		}
		for s := range symsB {
			if !symsA[s] {
				added = append(added, s)
			}
		}
		if len(removed) == 0 || len(added) == 0 {
			continue
		}
		sort.Strings(removed)
		sort.Strings(added)
		pairs := map[string]string{}
		for i := 0; i < len(removed) && i < len(added); i++ {
			pairs[removed[i]] = added[i]
		}
		delta.FuncRenames[rel] = pairs
	}
	return delta, nil
}

// Retarget annotates the unit when the base delta inferred a rename in
// its file. The rename is informational; actual adaptation of feature
// lines to the new names is the conflict resolver's job.
func (CCpp) Retarget(unit *model.PatchUnit, delta model.KindDelta, newBaseRoot string) error {
	renames := delta.FuncRenames[unit.FilePath]
	if len(renames) == 0 {
		return nil
	}
	var parts []string
	for _, old := range sortedKeysOf(renames) {
		parts = append(parts, old+" -> "+renames[old])
	}
	unit.Notes = "retarget assisted by inferred renames: " + strings.Join(parts, ", ")
	return nil
}

func sortedKeysOf(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (CCpp) Apply(unit *model.PatchUnit, targetRoot string) model.ApplyResult {
	return applyTextUnit(unit, targetRoot)
}

func (CCpp) Validate(targetRoot string) []model.ValidationIssue {
	return nil
}
