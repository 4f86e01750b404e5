package cmd

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jensroland/rebasebot/internal/format"
	"github.com/jensroland/rebasebot/internal/index"
	"github.com/jensroland/rebasebot/internal/project"
)

// RunLog handles the audit query subcommand: merge and apply history
// for a file across past runs, read from the changelog index.
func RunLog(args []string) {
	fs := flag.NewFlagSet("rebasebot log", flag.ExitOnError)

	rebuild := fs.Bool("rebuild", false, "Force index rebuild")
	jsonOutput := fs.Bool("json", false, "Output results as JSON")
	applied := fs.Bool("applied", false, "Show patch applications instead of merges")
	debugLog := fs.Bool("debug", false, "Show the pipeline debug log")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `rebasebot log: query past run history.

Usage:
    rebasebot log [<file>]           # merge attempts for a file (or all)
    rebasebot log -applied [<file>]  # patch applications
    rebasebot log -json              # machine-readable output
    rebasebot log -rebuild           # force index rebuild
    rebasebot log -debug             # tail the pipeline debug log
`)
	}
	fs.Parse(args)

	root, err := project.FindRoot()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	paths := project.NewPaths(root)

	if *debugLog {
		tailDebugLog(paths)
		return
	}

	if !project.IsInitialized(root) {
		fmt.Fprintln(os.Stderr, "No rebasebot workspace here.")
		fmt.Fprintln(os.Stderr, "Run 'rebasebot' in this directory first.")
		os.Exit(1)
	}

	db, err := index.Open(paths, *rebuild)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index at %s: %v\n", paths.IndexDB, err)
		os.Exit(1)
	}
	defer db.Close()

	file := fs.Arg(0)
	if *applied {
		rows, err := index.AppliedForFile(db, file)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		printApplied(rows, *jsonOutput)
		return
	}

	rows, err := index.MergesForFile(db, file)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	printMerges(rows, *jsonOutput)
}

func printMerges(rows []index.MergeRow, asJSON bool) {
	if asJSON {
		out := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			out = append(out, map[string]any{
				"run_id":        r.RunID,
				"target_file":   r.TargetFile,
				"ts":            r.Ts,
				"status":        r.Status,
				"conflict_type": r.ConflictType,
				"explanation":   r.Explanation,
				"score":         r.Score,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(out)
		return
	}
	if len(rows) == 0 {
		fmt.Println("No merge history.")
		return
	}
	for _, r := range rows {
		color := format.Green
		if strings.HasPrefix(r.Status, "fallback") {
			color = format.Yellow
		}
		fmt.Printf("%s%s%s %s%s%s %s\n", format.Cyan, shortDate(r.Ts), format.Reset,
			color, r.Status, format.Reset, format.Bold+r.TargetFile+format.Reset)
		if r.ConflictType != "" {
			fmt.Printf("  %sconflict: %s%s\n", format.Dim, r.ConflictType, format.Reset)
		}
		if r.Explanation != "" {
			fmt.Printf("  %s%s%s\n", format.Dim, r.Explanation, format.Reset)
		}
	}
}

func printApplied(rows []index.AppliedRow, asJSON bool) {
	if asJSON {
		out := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			out = append(out, map[string]any{
				"run_id":     r.RunID,
				"file":       r.File,
				"patch_type": r.PatchType,
				"step":       r.Step,
				"ts":         r.Ts,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(out)
		return
	}
	if len(rows) == 0 {
		fmt.Println("No apply history.")
		return
	}
	for _, r := range rows {
		fmt.Printf("%s%s%s %s %s(%s/%s)%s\n", format.Cyan, shortDate(r.Ts), format.Reset,
			format.Bold+r.File+format.Reset, format.Dim, r.PatchType, r.Step, format.Reset)
	}
}

func shortDate(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	if ts == "" {
		return "?"
	}
	return ts
}

func tailDebugLog(paths project.Paths) {
	logFile := filepath.Join(paths.CacheDir, "logs", "pipeline.log")
	data, err := os.ReadFile(logFile)
	if err != nil {
		fmt.Printf("No log file at %s\n", logFile)
		return
	}
	lines := strings.Split(string(data), "\n")
	start := 0
	if len(lines) > 100 {
		start = len(lines) - 100
	}
	tail := lines[start:]
	fmt.Printf("%s--- %s (last %d lines) ---%s\n\n", format.Dim, logFile, len(tail), format.Reset)
	fmt.Println(strings.Join(tail, "\n"))
}
