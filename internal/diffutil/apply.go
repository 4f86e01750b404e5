package diffutil

import (
	"fmt"
	"strings"
)

// Apply merges hunks into content. Each hunk's old lines (context and
// removals) are located by exact match, searching outward from the
// expected position so earlier insertions or deletions in the target
// do not break later hunks. Hunks whose old lines cannot be found
// anywhere are returned as failed; the successfully merged content is
// returned either way.
func Apply(content string, hunks []Hunk) (string, []Hunk) {
	lines, trailing := splitContent(content)
	var failed []Hunk
	offset := 0
	for _, h := range hunks {
		oldLines := hunkOld(h)
		newLines := hunkNew(h)
		want := h.OldStart - 1 + offset
		pos, ok := findLines(lines, oldLines, want)
		if !ok {
			failed = append(failed, h)
			continue
		}
		merged := make([]string, 0, len(lines)-len(oldLines)+len(newLines))
		merged = append(merged, lines[:pos]...)
		merged = append(merged, newLines...)
		merged = append(merged, lines[pos+len(oldLines):]...)
		lines = merged
		offset += pos - (h.OldStart - 1) + len(newLines) - len(oldLines)
	}
	return joinContent(lines, trailing), failed
}

// hunkOld returns the lines the hunk expects to find in the target.
func hunkOld(h Hunk) []string {
	var out []string
	for _, l := range h.Lines {
		if l.Type != Added {
			out = append(out, l.Content)
		}
	}
	return out
}

// hunkNew returns the lines the hunk produces.
func hunkNew(h Hunk) []string {
	var out []string
	for _, l := range h.Lines {
		if l.Type != Removed {
			out = append(out, l.Content)
		}
	}
	return out
}

// findLines locates needle in haystack, trying want first and then
// alternating positions outward from it.
func findLines(haystack, needle []string, want int) (int, bool) {
	if len(needle) == 0 {
		// Pure insertion: clamp the expected position into range.
		if want < 0 {
			want = 0
		}
		if want > len(haystack) {
			want = len(haystack)
		}
		return want, true
	}
	last := len(haystack) - len(needle)
	if last < 0 {
		return 0, false
	}
	if want < 0 {
		want = 0
	}
	if want > last {
		want = last
	}
	for delta := 0; delta <= last; delta++ {
		for _, pos := range []int{want - delta, want + delta} {
			if pos < 0 || pos > last {
				continue
			}
			if matchAt(haystack, needle, pos) {
				return pos, true
			}
		}
		if want-delta < 0 && want+delta > last {
			break
		}
	}
	return 0, false
}

func matchAt(haystack, needle []string, pos int) bool {
	for i, n := range needle {
		if haystack[pos+i] != n {
			return false
		}
	}
	return true
}

// FormatReject renders failed hunks as a conventional reject sidecar
// body: a header line naming the target plus the raw hunks.
func FormatReject(path string, hunks []Hunk) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n", path)
	fmt.Fprintf(&sb, "+++ %s\n", path)
	for _, h := range hunks {
		sb.WriteString(FormatHunk(h))
	}
	return sb.String()
}

func splitContent(content string) (lines []string, trailingNewline bool) {
	if content == "" {
		return nil, false
	}
	trailingNewline = strings.HasSuffix(content, "\n")
	if trailingNewline {
		content = content[:len(content)-1]
	}
	return strings.Split(content, "\n"), trailingNewline
}

func joinContent(lines []string, trailingNewline bool) string {
	if len(lines) == 0 {
		return ""
	}
	out := strings.Join(lines, "\n")
	if trailingNewline {
		out += "\n"
	}
	return out
}
