// Package diffutil computes line-level diffs, renders and parses
// unified-diff text, and applies hunks to file content with reject
// generation for hunks that no longer fit.
package diffutil

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineType marks the role of a line within a hunk.
type LineType int

const (
	Context LineType = iota
	Added
	Removed
)

// Line is one line of a hunk, without its trailing newline.
type Line struct {
	Type    LineType
	Content string
}

// Hunk is a contiguous group of changes with surrounding context.
// Start positions are 1-based line numbers in the old and new file.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

const contextLines = 3

var dmp = func() *diffmatchpatch.DiffMatchPatch {
	d := diffmatchpatch.New()
	d.DiffTimeout = 0
	return d
}()

// Compute diffs oldContent against newContent and returns hunks with
// three lines of context. Identical inputs yield no hunks.
func Compute(oldContent, newContent string) []Hunk {
	if oldContent == newContent {
		return nil
	}
	a, b, lineArray := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)
	return groupHunks(diffsToOps(diffs))
}

// op is one line with its position in the old and new file (0-based,
// -1 when absent on that side).
type op struct {
	typ     LineType
	oldLine int
	newLine int
	content string
}

func diffsToOps(diffs []diffmatchpatch.Diff) []op {
	var ops []op
	oldLine, newLine := 0, 0
	for _, d := range diffs {
		for _, line := range splitDiffLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				ops = append(ops, op{Context, oldLine, newLine, line})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				ops = append(ops, op{Removed, oldLine, -1, line})
				oldLine++
			case diffmatchpatch.DiffInsert:
				ops = append(ops, op{Added, -1, newLine, line})
				newLine++
			}
		}
	}
	return ops
}

// splitDiffLines splits a diff fragment into lines, dropping the empty
// tail produced by a trailing newline.
func splitDiffLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func groupHunks(ops []op) []Hunk {
	var hunks []Hunk
	i := 0
	for i < len(ops) {
		if ops[i].typ == Context {
			i++
			continue
		}
		// Found a change; open a hunk with leading context.
		start := i - contextLines
		if start < 0 {
			start = 0
		}
		h := Hunk{}
		h.OldStart = firstOldLine(ops, start) + 1
		h.NewStart = firstNewLine(ops, start) + 1
		for j := start; j < i; j++ {
			h.Lines = append(h.Lines, Line{Context, ops[j].content})
		}

		// Consume changes and interior context until a gap of more
		// than 2*contextLines separates two change groups.
		j := i
		lastChange := i
		for j < len(ops) {
			if ops[j].typ != Context {
				lastChange = j
			} else if j-lastChange > 2*contextLines {
				break
			}
			j++
		}
		end := lastChange + contextLines + 1
		if end > len(ops) {
			end = len(ops)
		}
		for k := i; k < end; k++ {
			h.Lines = append(h.Lines, Line{ops[k].typ, ops[k].content})
		}
		computeCounts(&h)
		hunks = append(hunks, h)
		i = end
	}
	return hunks
}

// firstOldLine returns the old-file position of the first op at or
// after idx that exists in the old file.
func firstOldLine(ops []op, idx int) int {
	for _, o := range ops[idx:] {
		if o.oldLine >= 0 {
			return o.oldLine
		}
	}
	return 0
}

func firstNewLine(ops []op, idx int) int {
	for _, o := range ops[idx:] {
		if o.newLine >= 0 {
			return o.newLine
		}
	}
	return 0
}

func computeCounts(h *Hunk) {
	h.OldCount, h.NewCount = 0, 0
	for _, l := range h.Lines {
		if l.Type != Added {
			h.OldCount++
		}
		if l.Type != Removed {
			h.NewCount++
		}
	}
}

// Unified renders a unified diff between oldContent and newContent
// with conventional a/ and b/ file headers. Returns "" for identical
// inputs.
func Unified(path, oldContent, newContent string) string {
	hunks := Compute(oldContent, newContent)
	if len(hunks) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n", path)
	fmt.Fprintf(&sb, "+++ b/%s\n", path)
	for _, h := range hunks {
		sb.WriteString(FormatHunk(h))
	}
	return sb.String()
}

// FormatHunk renders one hunk including its @@ header.
func FormatHunk(h Hunk) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
	for _, l := range h.Lines {
		switch l.Type {
		case Context:
			sb.WriteString(" ")
		case Added:
			sb.WriteString("+")
		case Removed:
			sb.WriteString("-")
		}
		sb.WriteString(l.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// ParseUnified parses unified-diff text into hunks. File header lines
// (---, +++, diff, index) are skipped; anything else outside a hunk
// body is ignored so reject sidecars parse with the same code.
func ParseUnified(diff string) ([]Hunk, error) {
	var hunks []Hunk
	var cur *Hunk
	for _, raw := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(raw, "@@"):
			h, err := parseHunkHeader(raw)
			if err != nil {
				return nil, err
			}
			hunks = append(hunks, h)
			cur = &hunks[len(hunks)-1]
		case cur == nil:
			continue // header or noise before the first hunk
		case strings.HasPrefix(raw, "+"):
			cur.Lines = append(cur.Lines, Line{Added, raw[1:]})
		case strings.HasPrefix(raw, "-"):
			cur.Lines = append(cur.Lines, Line{Removed, raw[1:]})
		case strings.HasPrefix(raw, " "):
			cur.Lines = append(cur.Lines, Line{Context, raw[1:]})
		case raw == "":
			// Blank context line or trailing newline; keep only if the
			// hunk still expects lines.
			if lineCountShort(cur) {
				cur.Lines = append(cur.Lines, Line{Context, ""})
			}
		case strings.HasPrefix(raw, `\`):
			continue // "\ No newline at end of file"
		default:
			cur = nil // next file section
		}
	}
	for i := range hunks {
		computeCounts(&hunks[i])
	}
	return hunks, nil
}

func lineCountShort(h *Hunk) bool {
	old, new := 0, 0
	for _, l := range h.Lines {
		if l.Type != Added {
			old++
		}
		if l.Type != Removed {
			new++
		}
	}
	return old < h.OldCount || new < h.NewCount
}

func parseHunkHeader(line string) (Hunk, error) {
	var h Hunk
	h.OldCount, h.NewCount = 1, 1
	body := strings.TrimPrefix(line, "@@")
	if idx := strings.Index(body, "@@"); idx >= 0 {
		body = body[:idx]
	}
	fields := strings.Fields(body)
	if len(fields) < 2 {
		return h, fmt.Errorf("malformed hunk header: %q", line)
	}
	if _, err := fmt.Sscanf(fields[0], "-%d,%d", &h.OldStart, &h.OldCount); err != nil {
		if _, err := fmt.Sscanf(fields[0], "-%d", &h.OldStart); err != nil {
			return h, fmt.Errorf("malformed hunk header: %q", line)
		}
	}
	if _, err := fmt.Sscanf(fields[1], "+%d,%d", &h.NewStart, &h.NewCount); err != nil {
		if _, err := fmt.Sscanf(fields[1], "+%d", &h.NewStart); err != nil {
			return h, fmt.Errorf("malformed hunk header: %q", line)
		}
	}
	return h, nil
}
