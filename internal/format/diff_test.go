package format

import (
	"strings"
	"testing"
)

func TestFormatSideBySideDiff(t *testing.T) {
	t.Run("changed source shows both sides", func(t *testing.T) {
		orig := "void run(void) {\n  OldAPI_Init(42);\n}\n"
		merged := "void run(void) {\n  NewAPI_Init(200);\n}\n"
		result := FormatSideBySideDiff(orig, merged)

		if !strings.Contains(result, "Before") || !strings.Contains(result, "After") {
			t.Error("should contain Before/After headers")
		}
		if !strings.Contains(result, "OldAPI_Init(42)") {
			t.Error("left column should show the original call")
		}
		if !strings.Contains(result, "NewAPI_Init(200)") {
			t.Error("right column should show the merged call")
		}
		if !strings.Contains(result, "┌") || !strings.Contains(result, "┘") {
			t.Error("missing box corners")
		}
	})

	t.Run("identical content still renders the frame", func(t *testing.T) {
		result := FormatSideBySideDiff("int x = 1;\n", "int x = 1;\n")

		if !strings.Contains(result, "Before") || !strings.Contains(result, "After") {
			t.Error("should contain Before/After headers")
		}
		if !strings.Contains(result, "│") {
			t.Error("should contain vertical border characters")
		}
	})

	t.Run("long diffs are capped", func(t *testing.T) {
		var oldLines, newLines []string
		for i := 0; i < 50; i++ {
			oldLines = append(oldLines, "OldAPI(42);")
			newLines = append(newLines, "NewAPI(200);")
		}
		result := FormatSideBySideDiff(strings.Join(oldLines, "\n"), strings.Join(newLines, "\n"))

		if !strings.Contains(result, "more lines not shown") {
			t.Error("should note truncation for a long diff")
		}
	})
}
