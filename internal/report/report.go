// Package report assembles and emits the final run report. The JSON
// form is validated against the embedded schema before anything is
// written; a schema violation aborts the emit with no partial output.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jensroland/rebasebot/internal/format"
	"github.com/jensroland/rebasebot/internal/model"
	"github.com/jensroland/rebasebot/internal/validate"
)

// Report is the machine-readable summary of one pipeline run. Tools
// is nested per adapter kind, then per tool name.
type Report struct {
	RunID      string                     `json:"run_id"`
	Summary    model.Summary              `json:"summary"`
	Files      []model.Outcome            `json:"files"`
	Validation validate.Result            `json:"validation"`
	Tools      map[string]map[string]bool `json:"tools"`
}

// New assembles a report from the run's pieces.
func New(runID string, result model.RetargetResult, val validate.Result, toolset map[string]map[string]bool) *Report {
	files := result.Files
	if files == nil {
		files = []model.Outcome{}
	}
	issues := val.Issues
	if issues == nil {
		issues = []model.ValidationIssue{}
	}
	return &Report{
		RunID:      runID,
		Summary:    result.Summary,
		Files:      files,
		Validation: validate.Result{Success: val.Success, Issues: issues},
		Tools:      toolset,
	}
}

// Write validates the report against schema and, only if valid, writes
// report.json and report.txt under dir.
func (r *Report) Write(dir string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if schema != nil {
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("re-read report: %w", err)
		}
		if err := schema.Validate(doc); err != nil {
			return fmt.Errorf("report schema violation: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "report.json"), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.txt"), []byte(r.Text()), 0o644); err != nil {
		return fmt.Errorf("write report.txt: %w", err)
	}
	return nil
}

// Text renders the human-readable report.
func (r *Report) Text() string {
	var buf bytes.Buffer
	buf.WriteString(format.FormatBorderedText(
		fmt.Sprintf("Run %s\nauto: %d   semantic: %d   conflicts: %d",
			r.RunID, r.Summary.Auto, r.Summary.Semantic, r.Summary.Conflicts),
		"rebase report"))
	buf.WriteString("\n\n")

	for _, f := range r.Files {
		buf.WriteString(format.FormatOutcome(f))
		buf.WriteString("\n")
	}

	if len(r.Validation.Issues) > 0 {
		buf.WriteString("\nValidation")
		if r.Validation.Success {
			buf.WriteString(" (passed)\n")
		} else {
			buf.WriteString(" (FAILED)\n")
		}
		for _, iss := range r.Validation.Issues {
			buf.WriteString(format.FormatIssue(iss))
			buf.WriteString("\n")
		}
	}

	if len(r.Tools) > 0 {
		buf.WriteString("\nTools\n")
		kinds := make([]string, 0, len(r.Tools))
		for k := range r.Tools {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			if len(r.Tools[k]) == 0 {
				continue
			}
			buf.WriteString(fmt.Sprintf("  %-8s %s\n", k, format.FormatToolMatrix(r.Tools[k])))
		}
	}
	return buf.String()
}

// LoadSchema compiles a report schema from path. Falling back to the
// embedded schema when path is empty keeps the CLI self-contained.
func LoadSchema(path string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if path == "" {
		if err := c.AddResource("report.schema.json", bytes.NewReader([]byte(embeddedSchema))); err != nil {
			return nil, fmt.Errorf("load embedded schema: %w", err)
		}
		return c.Compile("report.schema.json")
	}
	return c.Compile(path)
}
