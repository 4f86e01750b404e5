// Package resolve synthesizes replacement content for files whose
// patches left reject artifacts, first through an external
// text-generation call and then through a deterministic heuristic
// fallback guided by the file's requirement text.
package resolve

import (
	"fmt"
	"strings"

	"github.com/jensroland/rebasebot/internal/diffutil"
)

// RejectHunk is one failed hunk from a .rej sidecar, reduced to its
// removed and added lines.
type RejectHunk struct {
	Removed []string
	Added   []string
}

// ParseReject parses a reject sidecar body into hunks. A reject with
// no recognizable hunks is an error; the resolver cannot work without
// the intended change.
func ParseReject(content string) ([]RejectHunk, error) {
	hunks, err := diffutil.ParseUnified(content)
	if err != nil {
		return nil, err
	}
	if len(hunks) == 0 {
		return nil, fmt.Errorf("no hunks in reject")
	}
	out := make([]RejectHunk, 0, len(hunks))
	for _, h := range hunks {
		var rh RejectHunk
		for _, l := range h.Lines {
			switch l.Type {
			case diffutil.Removed:
				rh.Removed = append(rh.Removed, l.Content)
			case diffutil.Added:
				rh.Added = append(rh.Added, l.Content)
			}
		}
		out = append(out, rh)
	}
	return out, nil
}

// Conflict classifications.
const (
	ConflictAPIChange     = "api_change"
	ConflictHeaderChange  = "header_change"
	ConflictMainChange    = "main_function_change"
	ConflictContentChange = "content_change"
)

// Classify buckets a reject by keyword heuristics: API identifiers on
// both sides with different names, include/header targets, main-entry
// constructs, else plain content change.
func Classify(hunks []RejectHunk) (string, string) {
	var removed, added []string
	for _, h := range hunks {
		removed = append(removed, h.Removed...)
		added = append(added, h.Added...)
	}
	all := append(append([]string{}, removed...), added...)

	if len(apiTokens(removed)) > 0 && len(apiTokens(added)) > 0 &&
		!sameSet(apiTokens(removed), apiTokens(added)) {
		return ConflictAPIChange, "API function call or signature change"
	}
	for _, line := range all {
		if strings.Contains(strings.ToLower(line), "include") {
			return ConflictHeaderChange, "header/include file change"
		}
	}
	for _, line := range all {
		if strings.Contains(strings.ToLower(line), "main") {
			return ConflictMainChange, "main function modification"
		}
	}
	return ConflictContentChange, "content modification conflict"
}

// apiTokens returns call identifiers containing "API" from lines.
func apiTokens(lines []string) map[string]bool {
	out := map[string]bool{}
	for _, line := range lines {
		for _, m := range callRe.FindAllStringSubmatch(line, -1) {
			if strings.Contains(m[1], "API") {
				out[m[1]] = true
			}
		}
	}
	return out
}

func sameSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// IntendedChange renders the hunks as a compact fragment for prompts
// and heuristics.
func IntendedChange(hunks []RejectHunk) string {
	var sb strings.Builder
	for _, h := range hunks {
		for _, l := range h.Removed {
			sb.WriteString("-" + l + "\n")
		}
		for _, l := range h.Added {
			sb.WriteString("+" + l + "\n")
		}
	}
	return sb.String()
}
