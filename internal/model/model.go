// Package model holds the shared data types of the rebase pipeline:
// patch units, base deltas, apply results, validation issues, and the
// capability interface every file-kind adapter implements.
package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind identifies which adapter strategy handles a file.
type Kind string

const (
	KindText       Kind = "text"
	KindCCpp       Kind = "c_cpp"
	KindJSON       Kind = "json"
	KindYAML       Kind = "yaml"
	KindDeviceTree Kind = "dtsi"
)

// KindForPath derives the adapter kind from a file extension.
// Text is the fallback for everything unrecognized.
func KindForPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".c", ".h", ".cpp", ".hpp", ".cc":
		return KindCCpp
	case ".json":
		return KindJSON
	case ".yml", ".yaml":
		return KindYAML
	case ".dts", ".dtsi":
		return KindDeviceTree
	default:
		return KindText
	}
}

// Op names used in PatchUnit.Ops.
const (
	OpAddFile      = "add_file"      // whole-file content for feature-only files
	OpTextDiff     = "text_diff"     // unified diff payload
	OpAdd          = "add"           // structural key add (JSON/YAML)
	OpRemove       = "remove"        // structural key remove
	OpReplace      = "replace"       // structural value replace
	OpTextFallback = "text_fallback" // raw content when structured parse failed
)

// Op is a single semantic operation within a PatchUnit.
// Which fields are set depends on Op: add_file and text_fallback carry
// Content, text_diff carries Diff, the structural ops carry Path and Value.
type Op struct {
	Op      string `json:"op"`
	Path    string `json:"path,omitempty"`
	Value   any    `json:"value,omitempty"`
	Content string `json:"content,omitempty"`
	Diff    string `json:"diff,omitempty"`
}

// Anchors are optional symbol sets captured at extraction time to aid
// relocation during retarget.
type Anchors struct {
	SymbolsOld []string `json:"symbols_old,omitempty"`
	SymbolsNew []string `json:"symbols_new,omitempty"`
}

// PatchUnit is the unit of change for a single file. The ordered Ops
// list is the canonical representation; the opaque unified-diff view
// used by whole-tree mode is derived from it via UnifiedDiff.
type PatchUnit struct {
	FilePath     string   `json:"file_path"`
	Kind         Kind     `json:"kind"`
	Ops          []Op     `json:"ops"`
	Anchors      *Anchors `json:"anchors,omitempty"`
	ReqIDs       []string `json:"req_ids"`
	Requirements []string `json:"requirements,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

// UnifiedDiff returns the opaque unified-diff representation of the
// unit, or "" if the unit has no text_diff op. This is the thin
// adapter over the canonical ops form.
func (u *PatchUnit) UnifiedDiff() string {
	for _, op := range u.Ops {
		if op.Op == OpTextDiff {
			return op.Diff
		}
	}
	return ""
}

// Status is the terminal outcome of applying one PatchUnit.
type Status string

const (
	StatusApplied  Status = "applied"
	StatusPartial  Status = "partial"
	StatusConflict Status = "conflict"
)

// ApplyResult is produced once per PatchUnit per run.
type ApplyResult struct {
	FilePath string `json:"file_path"`
	Status   Status `json:"status"`
	Details  string `json:"details"`
}

// ConflictError signals that retargeting a unit cannot proceed.
type ConflictError struct {
	FilePath string
	Reason   string
	Details  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict in %s: %s (%s)", e.FilePath, e.Reason, e.Details)
}

// Level classifies a validation issue.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// ValidationIssue is one finding from the post-replay sanity checks.
type ValidationIssue struct {
	FilePath string `json:"file_path"`
	Level    Level  `json:"level"`
	Message  string `json:"message"`
}

// FileStatus classifies how a file changed between the two baselines.
type FileStatus string

const (
	FileAdded    FileStatus = "added"
	FileDeleted  FileStatus = "deleted"
	FileModified FileStatus = "modified"
)

// FileChange is the per-file record inside a KindDelta.
type FileChange struct {
	Status FileStatus `json:"status"`
}

// KindDelta describes how the baseline evolved for one adapter kind.
// FuncRenames and KeyMoves are kind-specific hints: the C/C++ adapter
// fills FuncRenames (file -> old symbol -> new symbol), the JSON
// adapter fills KeyMoves ("/file#/old/path" -> "/file#/new/path").
type KindDelta struct {
	Files       map[string]FileChange        `json:"files,omitempty"`
	FuncRenames map[string]map[string]string `json:"func_renames,omitempty"`
	KeyMoves    map[string]string            `json:"key_moves,omitempty"`
}

// BaseDelta maps adapter kinds to their deltas. Read-only input to
// the retarget engine.
type BaseDelta struct {
	Adapters map[Kind]KindDelta `json:"adapters"`
}

// Outcome is the per-file entry of the retarget output contract.
type Outcome struct {
	File    string   `json:"file"`
	Status  Status   `json:"status"`
	Details string   `json:"details"`
	ReqIDs  []string `json:"req_ids"`
}

// Summary tallies retarget outcomes. Auto+Semantic+Conflicts always
// equals the number of patch units processed.
type Summary struct {
	Auto      int `json:"auto"`
	Semantic  int `json:"semantic"`
	Conflicts int `json:"conflicts"`
}

// RetargetResult is the output contract shared by both retarget modes.
type RetargetResult struct {
	Summary Summary   `json:"summary"`
	Files   []Outcome `json:"files"`
}

// Adapter is the capability set every file-kind strategy implements.
// Retarget may annotate Notes and adjust Ops in place; it returns a
// *ConflictError when the unit cannot be retargeted. Validate must
// never panic out; callers isolate failures as warnings.
type Adapter interface {
	Kind() Kind
	DetectEnv() map[string]bool
	ExtractFeature(oldBase, feature string) ([]PatchUnit, error)
	ExtractBase(oldBase, newBase string) (KindDelta, error)
	Retarget(unit *PatchUnit, delta KindDelta, newBaseRoot string) error
	Apply(unit *PatchUnit, targetRoot string) ApplyResult
	Validate(targetRoot string) []ValidationIssue
}
