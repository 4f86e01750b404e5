// Package tools reports which optional external programs are present.
// Absence never fails a run; the flags are informational and recorded
// in the report so a reader can tell why a capability was skipped.
package tools

import "github.com/jensroland/rebasebot/internal/adapter"

// Matrix probes every adapter's toolset and returns the availability
// matrix keyed by adapter kind, then by tool name.
func Matrix() map[string]map[string]bool {
	out := map[string]map[string]bool{}
	for _, a := range adapter.All() {
		out[string(a.Kind())] = a.DetectEnv()
	}
	return out
}
