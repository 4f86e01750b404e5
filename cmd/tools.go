package cmd

import (
	"fmt"
	"sort"

	"github.com/jensroland/rebasebot/internal/format"
	"github.com/jensroland/rebasebot/internal/tools"
)

// RunTools prints the external tool availability matrix per file kind.
func RunTools(args []string) {
	matrix := tools.Matrix()

	kinds := make([]string, 0, len(matrix))
	for k := range matrix {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	for _, k := range kinds {
		probes := matrix[k]
		if len(probes) == 0 {
			fmt.Printf("%s%-8s%s %s(no external tools)%s\n", format.Bold, k, format.Reset, format.Dim, format.Reset)
			continue
		}
		fmt.Printf("%s%-8s%s %s\n", format.Bold, k, format.Reset, format.FormatToolMatrix(probes))
	}
}
