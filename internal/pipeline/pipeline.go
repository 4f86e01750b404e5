// Package pipeline runs the full rebase sequence: extract the feature
// patch and baseline delta, replay onto the new baseline, resolve
// leftover rejects, validate, and emit the report and changelog.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jensroland/rebasebot/internal/changelog"
	"github.com/jensroland/rebasebot/internal/debug"
	"github.com/jensroland/rebasebot/internal/extract"
	"github.com/jensroland/rebasebot/internal/model"
	"github.com/jensroland/rebasebot/internal/project"
	"github.com/jensroland/rebasebot/internal/report"
	"github.com/jensroland/rebasebot/internal/resolve"
	"github.com/jensroland/rebasebot/internal/retarget"
	"github.com/jensroland/rebasebot/internal/tools"
	"github.com/jensroland/rebasebot/internal/trace"
	"github.com/jensroland/rebasebot/internal/validate"
)

// Options configures one pipeline run.
type Options struct {
	OldBase   string
	NewBase   string
	Feature   string
	Output    string
	WorkRoot  string // defaults to the current directory
	Mode      retarget.Mode
	DisableAI bool
	Schema    string // schema path override; "" uses the embedded schema
}

// Run executes the pipeline end to end and returns the final report.
// Artifacts (feature patch, base delta, changelog, report) land under
// <workroot>/.rebasebot/artifacts/.
func Run(ctx context.Context, opts Options) (*report.Report, error) {
	if opts.OldBase == "" || opts.NewBase == "" || opts.Feature == "" || opts.Output == "" {
		return nil, fmt.Errorf("old baseline, new baseline, feature, and output paths are all required")
	}
	workRoot := opts.WorkRoot
	if workRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		workRoot = wd
	}
	paths := project.NewPaths(workRoot)
	if err := project.EnsureDirs(paths); err != nil {
		return nil, fmt.Errorf("prepare workspace: %w", err)
	}

	// The schema must compile before any work happens; a bad schema
	// means the run could never emit a valid report.
	schema, err := report.LoadSchema(opts.Schema)
	if err != nil {
		return nil, fmt.Errorf("load report schema: %w", err)
	}

	runID := uuid.NewString()
	log := changelog.New(runID)
	debug.Log(paths.CacheDir, "pipeline.log", "run started: "+runID, opts)

	mappings := loadMappings(paths, opts)

	units, err := extract.Feature(opts.OldBase, opts.Feature, mappings)
	if err != nil {
		return nil, fmt.Errorf("extract feature patch: %w", err)
	}
	for _, u := range units {
		log.AddGenerated("feature_" + strings.ReplaceAll(u.FilePath, "/", "_"))
	}
	if err := writeArtifact(paths, "feature_patch.json", units); err != nil {
		return nil, err
	}

	delta, err := extract.Base(opts.OldBase, opts.NewBase)
	if err != nil {
		return nil, fmt.Errorf("extract base delta: %w", err)
	}
	if err := writeArtifact(paths, "base_delta.json", delta); err != nil {
		return nil, err
	}

	result, err := retarget.Run(units, delta, opts.NewBase, opts.Output, opts.Mode, log)
	if err != nil {
		return nil, fmt.Errorf("retarget: %w", err)
	}
	if err := writeArtifact(paths, "retarget_results.json", result); err != nil {
		return nil, err
	}

	engine := &resolve.Engine{
		Resolver: buildResolver(ctx, paths, opts),
		Mappings: mappings,
		CacheDir: paths.CacheDir,
		Log:      log,
	}
	merged, err := engine.ResolveTree(ctx, opts.Output)
	if err != nil {
		debug.Log(paths.CacheDir, "pipeline.log", "resolve pass failed", map[string]string{"error": err.Error()})
	}
	if merged > 0 {
		reconcile(&result, opts.Output)
	}

	val := validate.Run(opts.Output)
	rep := report.New(runID, result, val, tools.Matrix())
	if err := rep.Write(paths.ArtifactDir, schema); err != nil {
		return nil, err
	}
	if err := log.Save(filepath.Join(paths.ArtifactDir, "changelog_"+runID+".json")); err != nil {
		return nil, fmt.Errorf("save changelog: %w", err)
	}
	debug.Log(paths.CacheDir, "pipeline.log", "run finished: "+runID, rep.Summary)
	return rep, nil
}

// loadMappings finds and loads the requirement map. A missing map is
// not an error; files simply carry no requirement IDs.
func loadMappings(paths project.Paths, opts Options) []trace.Mapping {
	mapPath, ok := trace.FindMapFile(opts.Feature, opts.OldBase, opts.NewBase, paths.Root)
	if !ok {
		debug.Log(paths.CacheDir, "pipeline.log", "no requirement map found", nil)
		return nil
	}
	mappings, err := trace.Load(mapPath)
	if err != nil {
		debug.Log(paths.CacheDir, "pipeline.log", "requirement map unreadable: "+mapPath,
			map[string]string{"error": err.Error()})
		return nil
	}
	debug.Log(paths.CacheDir, "pipeline.log", "requirement map: "+mapPath,
		map[string]int{"mappings": len(mappings)})
	return mappings
}

// buildResolver returns the AI resolver, or nil when disabled or
// unconfigured so the engine takes the deterministic path.
func buildResolver(ctx context.Context, paths project.Paths, opts Options) resolve.Resolver {
	if opts.DisableAI {
		return nil
	}
	r, err := resolve.NewGeminiResolver(ctx)
	if err != nil {
		debug.Log(paths.CacheDir, "pipeline.log", "AI resolver unavailable",
			map[string]string{"error": err.Error()})
		return nil
	}
	return r
}

// reconcile upgrades outcomes whose reject sidecar was merged away.
// The summary is retallied so auto+semantic+conflicts still equals the
// number of files.
func reconcile(result *model.RetargetResult, outputRoot string) {
	summary := model.Summary{}
	for i := range result.Files {
		f := &result.Files[i]
		if f.Status != model.StatusApplied {
			rej := filepath.Join(outputRoot, f.File) + ".rej"
			if _, err := os.Stat(rej); os.IsNotExist(err) && f.Status == model.StatusConflict {
				f.Status = model.StatusPartial
				if f.Details != "" {
					f.Details += "; "
				}
				f.Details += "reject resolved by merge"
			}
		}
		switch f.Status {
		case model.StatusApplied:
			summary.Auto++
		case model.StatusPartial:
			summary.Semantic++
		default:
			summary.Conflicts++
		}
	}
	result.Summary = summary
}

func writeArtifact(paths project.Paths, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	path := filepath.Join(paths.ArtifactDir, name)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
