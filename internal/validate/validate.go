// Package validate runs the post-replay sanity checks over the output
// tree. Validation never mutates files and never fails the run by
// itself: only error-level issues make the result unsuccessful.
package validate

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jensroland/rebasebot/internal/adapter"
	"github.com/jensroland/rebasebot/internal/model"
)

// Empty-file warnings are capped so a generated tree full of
// placeholder files does not drown the report.
const maxEmptyFileWarnings = 10

// Result is the validation outcome attached to the report.
type Result struct {
	Success bool                    `json:"success"`
	Issues  []model.ValidationIssue `json:"issues"`
}

// Run checks the output tree and collects issues from the generic
// checks plus every adapter's Validate hook. An adapter panic is
// contained and downgraded to a warning.
func Run(outputRoot string) Result {
	var issues []model.ValidationIssue

	info, err := os.Stat(outputRoot)
	if err != nil || !info.IsDir() {
		issues = append(issues, model.ValidationIssue{
			FilePath: outputRoot,
			Level:    model.LevelError,
			Message:  "output root does not exist",
		})
		return Result{Success: false, Issues: issues}
	}

	issues = append(issues, treeIssues(outputRoot)...)
	for _, a := range adapter.All() {
		issues = append(issues, adapterIssues(a, outputRoot)...)
	}

	success := true
	for _, iss := range issues {
		if iss.Level == model.LevelError {
			success = false
			break
		}
	}
	return Result{Success: success, Issues: issues}
}

// treeIssues flags leftover reject sidecars and empty files.
func treeIssues(root string) []model.ValidationIssue {
	var rejects, empties []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		if strings.HasSuffix(rel, ".rej") {
			rejects = append(rejects, rel)
			return nil
		}
		if info, ierr := d.Info(); ierr == nil && info.Size() == 0 {
			empties = append(empties, rel)
		}
		return nil
	})
	sort.Strings(rejects)
	sort.Strings(empties)

	var issues []model.ValidationIssue
	for _, rel := range rejects {
		issues = append(issues, model.ValidationIssue{
			FilePath: rel,
			Level:    model.LevelWarning,
			Message:  "unresolved reject sidecar",
		})
	}
	for i, rel := range empties {
		if i == maxEmptyFileWarnings {
			issues = append(issues, model.ValidationIssue{
				Level:   model.LevelWarning,
				Message: fmt.Sprintf("%d more empty files not listed", len(empties)-maxEmptyFileWarnings),
			})
			break
		}
		issues = append(issues, model.ValidationIssue{
			FilePath: rel,
			Level:    model.LevelWarning,
			Message:  "file is empty",
		})
	}
	return issues
}

// adapterIssues runs one adapter's Validate hook with panic isolation.
func adapterIssues(a model.Adapter, root string) (issues []model.ValidationIssue) {
	defer func() {
		if r := recover(); r != nil {
			issues = []model.ValidationIssue{{
				Level:   model.LevelWarning,
				Message: fmt.Sprintf("%s validation panicked: %v", a.Kind(), r),
			}}
		}
	}()
	return a.Validate(root)
}
