package resolve

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jensroland/rebasebot/internal/changelog"
	"github.com/jensroland/rebasebot/internal/debug"
	"github.com/jensroland/rebasebot/internal/trace"
)

// Engine resolves reject sidecars left in an output tree. The AI
// resolver is optional; with a nil Resolver every file takes the
// deterministic path.
type Engine struct {
	Resolver Resolver
	Mappings []trace.Mapping
	CacheDir string
	Log      *changelog.Changelog
}

// ResolveTree finds every .rej under outputRoot and attempts to
// resolve each one, in sorted order. Returns how many rejects were
// fully merged away.
func (e *Engine) ResolveTree(ctx context.Context, outputRoot string) (int, error) {
	var rejects []string
	err := filepath.WalkDir(outputRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".rej") {
			rejects = append(rejects, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan for rejects: %w", err)
	}
	sort.Strings(rejects)

	merged := 0
	for _, rej := range rejects {
		ok, err := e.ResolveFile(ctx, outputRoot, rej)
		if err != nil {
			debug.Log(e.CacheDir, "resolve.log", "resolve error: "+rej, map[string]string{"error": err.Error()})
			continue
		}
		if ok {
			merged++
		}
	}
	return merged, nil
}

// ResolveFile attempts to merge one reject sidecar into its target
// file. On success the target is rewritten and the sidecar removed;
// every attempt is recorded in the changelog with its status tag.
func (e *Engine) ResolveFile(ctx context.Context, outputRoot, rejPath string) (bool, error) {
	target := strings.TrimSuffix(rejPath, ".rej")
	rel, err := filepath.Rel(outputRoot, target)
	if err != nil {
		rel = target
	}
	rel = filepath.ToSlash(rel)
	patchName := "resolve_" + strings.ReplaceAll(rel, "/", "_")

	rejData, err := os.ReadFile(rejPath)
	if err != nil {
		e.record(target, rejPath, patchName, changelog.StatusException, "", "cannot read reject: "+err.Error(), 0)
		return false, err
	}
	hunks, err := ParseReject(string(rejData))
	if err != nil {
		e.record(target, rejPath, patchName, changelog.StatusException, "", "cannot parse reject: "+err.Error(), 0)
		return false, err
	}

	current := ""
	if data, err := os.ReadFile(target); err == nil {
		current = string(data)
	}

	conflictType, conflictDesc := Classify(hunks)
	requirement, haveReq := trace.RequirementForTarget(rel, e.Mappings)

	status := changelog.StatusSuccess
	var merged string
	var explanation string
	switch {
	case !haveReq:
		status = changelog.StatusNoRequirements
		merged, explanation = e.heuristicMerge("", current, hunks)
	case e.Resolver == nil:
		status = changelog.StatusAIFailed
		merged, explanation = e.heuristicMerge(requirement, current, hunks)
	default:
		prompt := buildPrompt(rel, requirement, conflictType, conflictDesc, current, hunks)
		debug.Log(e.CacheDir, "resolve.log", "model prompt: "+rel, map[string]int{"prompt_bytes": len(prompt)})
		out, err := e.Resolver.Resolve(ctx, prompt)
		if err != nil || strings.TrimSpace(out) == "" {
			status = changelog.StatusAIFailed
			merged, explanation = e.heuristicMerge(requirement, current, hunks)
		} else {
			merged = ensureTrailingNewline(out)
			explanation = "model-generated merge"
		}
	}

	if merged == "" || merged == current {
		e.record(target, rejPath, patchName, status, conflictType, "no applicable resolution; reject kept", 0)
		return false, nil
	}

	score := Score(merged, requirement)
	if err := os.WriteFile(target, []byte(merged), 0o644); err != nil {
		e.record(target, rejPath, patchName, changelog.StatusException, conflictType, "write failed: "+err.Error(), score)
		return false, fmt.Errorf("write merged %s: %w", target, err)
	}
	if err := os.Remove(rejPath); err != nil {
		return false, fmt.Errorf("remove reject %s: %w", rejPath, err)
	}
	e.record(target, rejPath, patchName, status, conflictType, explanation, score)
	return true, nil
}

func (e *Engine) heuristicMerge(requirement, current string, hunks []RejectHunk) (string, string) {
	out, changes, ok := Heuristic(requirement, current, hunks)
	if !ok {
		return "", ""
	}
	return ensureTrailingNewline(out), "heuristic merge: " + strings.Join(changes, "; ")
}

func (e *Engine) record(target, rej, patchName, status, conflictType, explanation string, score int) {
	if e.Log == nil {
		return
	}
	e.Log.AddMerge(changelog.Merge{
		TargetFile:   target,
		RejFile:      rej,
		PatchName:    patchName,
		Status:       status,
		ConflictType: conflictType,
		Explanation:  explanation,
		Score:        score,
	})
}

// Score counts distinct requirement tokens present in content, capped
// so one wordy requirement cannot dominate report output.
func Score(content, requirement string) int {
	if requirement == "" {
		return 0
	}
	lower := strings.ToLower(content)
	seen := map[string]bool{}
	score := 0
	for _, tok := range strings.Fields(strings.ToLower(requirement)) {
		tok = strings.Trim(tok, ".,:;()[]{}'\"")
		if len(tok) < 4 || seen[tok] {
			continue
		}
		seen[tok] = true
		if strings.Contains(lower, tok) {
			score++
			if score >= 10 {
				return score
			}
		}
	}
	return score
}

const (
	maxPromptContent = 4000
	maxPromptChange  = 2000
)

// buildPrompt assembles the merge request. Both the current content
// and the intended change are truncated so a pathological file cannot
// blow the request size.
func buildPrompt(rel, requirement, conflictType, conflictDesc string, current string, hunks []RejectHunk) string {
	var sb strings.Builder
	sb.WriteString("You are merging a failed patch into a source file during a rebase.\n\n")
	sb.WriteString("File: " + rel + "\n")
	sb.WriteString("Conflict type: " + conflictType + " (" + conflictDesc + ")\n")
	sb.WriteString("Requirement this change implements:\n" + requirement + "\n\n")
	sb.WriteString("Current file content:\n")
	sb.WriteString(truncate(current, maxPromptContent))
	sb.WriteString("\n\nIntended change (from the rejected hunks):\n")
	sb.WriteString(truncate(IntendedChange(hunks), maxPromptChange))
	sb.WriteString("\n\nProduce the complete merged file content. ")
	sb.WriteString("Apply the intent of the rejected hunks to the current content. ")
	sb.WriteString("The requirement takes precedence over the literal patch text. ")
	sb.WriteString("Output only the file content, no commentary.")
	return sb.String()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n... (truncated)"
}

func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
