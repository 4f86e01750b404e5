// Package changelog is the append-only audit trail of one pipeline
// run. The value is owned by exactly one run and threaded explicitly
// through the stages that mutate it, then serialized once at run end.
package changelog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Merge status tags recorded by the conflict resolver.
const (
	StatusSuccess        = "success"
	StatusNoRequirements = "fallback_no_requirements"
	StatusAIFailed       = "fallback_ai_failed"
	StatusException      = "fallback_exception"
)

// Applied records one successful patch application.
type Applied struct {
	File      string `json:"file"`
	PatchType string `json:"patch_type"`
	Step      string `json:"step"`
	Timestamp string `json:"timestamp"`
}

// Artifact records a backup or reject sidecar left by an apply.
type Artifact struct {
	File         string `json:"file"`
	OriginalFile string `json:"original_file"`
	PatchName    string `json:"patch_name"`
	Timestamp    string `json:"timestamp"`
}

// Merge records one conflict-resolution attempt.
type Merge struct {
	TargetFile   string `json:"target_file"`
	RejFile      string `json:"rej_file"`
	PatchName    string `json:"patch_name"`
	Timestamp    string `json:"timestamp"`
	Status       string `json:"status"`
	ConflictType string `json:"conflict_type,omitempty"`
	Explanation  string `json:"explanation,omitempty"`
	Score        int    `json:"score,omitempty"`
}

// Changelog collects every decision and artifact of a run.
type Changelog struct {
	RunID            string     `json:"run_id"`
	Timestamp        string     `json:"timestamp"`
	FilesProcessed   []string   `json:"files_processed"`
	PatchesGenerated []string   `json:"patches_generated"`
	PatchesApplied   []Applied  `json:"patches_applied"`
	BackupFiles      []Artifact `json:"backup_files"`
	RejectFiles      []Artifact `json:"reject_files"`
	ThreeWayMerges   []Merge    `json:"three_way_merges"`
}

// New starts an empty changelog for a run.
func New(runID string) *Changelog {
	return &Changelog{
		RunID:            runID,
		Timestamp:        now(),
		FilesProcessed:   []string{},
		PatchesGenerated: []string{},
		PatchesApplied:   []Applied{},
		BackupFiles:      []Artifact{},
		RejectFiles:      []Artifact{},
		ThreeWayMerges:   []Merge{},
	}
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

func (c *Changelog) AddProcessed(file string) {
	c.FilesProcessed = append(c.FilesProcessed, file)
}

func (c *Changelog) AddGenerated(patchName string) {
	c.PatchesGenerated = append(c.PatchesGenerated, patchName)
}

func (c *Changelog) AddApplied(file, patchType, step string) {
	c.PatchesApplied = append(c.PatchesApplied, Applied{
		File: file, PatchType: patchType, Step: step, Timestamp: now(),
	})
}

func (c *Changelog) AddBackup(file, originalFile, patchName string) {
	c.BackupFiles = append(c.BackupFiles, Artifact{
		File: file, OriginalFile: originalFile, PatchName: patchName, Timestamp: now(),
	})
}

func (c *Changelog) AddReject(file, originalFile, patchName string) {
	c.RejectFiles = append(c.RejectFiles, Artifact{
		File: file, OriginalFile: originalFile, PatchName: patchName, Timestamp: now(),
	})
}

// AddMerge appends one resolution attempt, stamping the time.
func (c *Changelog) AddMerge(m Merge) {
	if m.Timestamp == "" {
		m.Timestamp = now()
	}
	c.ThreeWayMerges = append(c.ThreeWayMerges, m)
}

// Save serializes the changelog to path as indented JSON.
func (c *Changelog) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode changelog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
