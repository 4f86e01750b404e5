package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jensroland/rebasebot/internal/pipeline"
	"github.com/jensroland/rebasebot/internal/project"
	"github.com/jensroland/rebasebot/internal/retarget"
)

// RunRebase handles the default rebase mode (no subcommand).
func RunRebase(args []string) {
	fs := flag.NewFlagSet("rebasebot", flag.ExitOnError)

	oldBase := fs.String("old-base", "", "Old baseline tree the feature was built on")
	newBase := fs.String("new-base", "", "New baseline tree to rebase onto")
	feature := fs.String("feature", "", "Feature tree containing the changes to carry over")
	output := fs.String("output", "", "Directory to write the rebased tree into")
	wholeTree := fs.Bool("whole-tree", false, "Copy the full new baseline and patch in place")
	noAI := fs.Bool("no-ai", false, "Disable the AI conflict resolver")
	schema := fs.String("schema", "", "Report schema file (default: built-in schema)")
	workdir := fs.String("workdir", "", "Workspace root for artifacts (default: current directory)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `rebasebot: replay feature changes onto a new baseline.

Usage:
    rebasebot -old-base <dir> -new-base <dir> -feature <dir> -output <dir>
    rebasebot ... -whole-tree        # copy baseline, patch in place
    rebasebot ... -no-ai             # deterministic conflict handling only
    rebasebot ... -schema <file>     # validate the report against a custom schema

Subcommands:
    rebasebot log [<file>]           # merge and apply history from past runs
    rebasebot show <file>            # side-by-side view of a patched file vs its backup
    rebasebot tools                  # external tool availability per file kind
`)
	}
	fs.Parse(args)

	mode := retarget.PerUnit
	if *wholeTree {
		mode = retarget.WholeTree
	}
	workRoot := *workdir
	if workRoot == "" {
		root, err := project.FindRoot()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		workRoot = root
	}

	rep, err := pipeline.Run(context.Background(), pipeline.Options{
		OldBase:   *oldBase,
		NewBase:   *newBase,
		Feature:   *feature,
		Output:    *output,
		WorkRoot:  workRoot,
		Mode:      mode,
		DisableAI: *noAI,
		Schema:    *schema,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	fmt.Print(rep.Text())
	if !rep.Validation.Success {
		os.Exit(1)
	}
	if rep.Summary.Conflicts > 0 {
		os.Exit(2)
	}
}
