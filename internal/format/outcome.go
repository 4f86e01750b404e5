package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jensroland/rebasebot/internal/model"
)

// FormatOutcome renders one per-file outcome line for terminal output.
func FormatOutcome(o model.Outcome) string {
	var color, mark string
	switch o.Status {
	case model.StatusApplied:
		color, mark = Green, "✓"
	case model.StatusPartial:
		color, mark = Yellow, "~"
	default:
		color, mark = Red, "✗"
	}

	line := fmt.Sprintf("%s%s %-8s%s %s%s%s", color, mark, o.Status, Reset, Bold, o.File, Reset)
	if len(o.ReqIDs) > 0 {
		line += " " + Cyan + "[" + strings.Join(o.ReqIDs, ", ") + "]" + Reset
	}
	if o.Details != "" {
		details := o.Details
		if len(details) > 120 {
			details = details[:117] + "..."
		}
		line += "\n  " + Dim + details + Reset
	}
	return line
}

// FormatIssue renders one validation issue.
func FormatIssue(iss model.ValidationIssue) string {
	var color string
	switch iss.Level {
	case model.LevelError:
		color = Red
	case model.LevelWarning:
		color = Yellow
	default:
		color = Dim
	}
	line := fmt.Sprintf("  %s%-7s%s %s", color, iss.Level, Reset, iss.Message)
	if iss.FilePath != "" {
		line += " " + Dim + "(" + iss.FilePath + ")" + Reset
	}
	return line
}

// FormatToolMatrix renders tool availability as "name" or "name(missing)"
// entries in sorted order.
func FormatToolMatrix(toolset map[string]bool) string {
	names := make([]string, 0, len(toolset))
	for n := range toolset {
		names = append(names, n)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, n := range names {
		if toolset[n] {
			parts = append(parts, Green+n+Reset)
		} else {
			parts = append(parts, Dim+n+"(missing)"+Reset)
		}
	}
	return strings.Join(parts, " ")
}
