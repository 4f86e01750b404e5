package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/jensroland/rebasebot/internal/format"
)

// RunShow renders a side-by-side view of a patched file against its
// pre-patch backup, so a reviewer can see what the replay changed.
func RunShow(args []string) {
	fs := flag.NewFlagSet("rebasebot show", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `rebasebot show: compare a patched file with its .orig backup.

Usage:
    rebasebot show <file>
`)
	}
	fs.Parse(args)

	file := fs.Arg(0)
	if file == "" {
		fs.Usage()
		os.Exit(1)
	}

	current, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	orig, err := os.ReadFile(file + ".orig")
	if err != nil {
		fmt.Fprintf(os.Stderr, "No backup at %s.orig; nothing to compare.\n", file)
		os.Exit(1)
	}

	fmt.Println(format.FormatSideBySideDiff(string(orig), string(current)))
}
