package main

import (
	"path/filepath"
	"strings"
	"time"

	"tia/internal/config"
	"tia/internal/covermap"
	"tia/internal/errors"
	"tia/internal/gitdiff"
	"tia/internal/impact"
	"tia/internal/logging"
	"tia/internal/policy"
)

// selection bundles everything derived on the way to a run decision, so
// impact and run share one code path and the report sees the same data
// the decision was made from.
type selection struct {
	Decision  policy.Decision
	Impact    *impact.Result
	ChangeSet *gitdiff.ChangeSet
	AllTests  []string
	Durations map[string]int64
}

// computeSelection loads the coverage map, resolves the change set
// against baseRef, and runs impact analysis and policy. Recoverable
// data-absence conditions (no map, no git history) degrade to a
// full-run decision; only genuinely unexpected failures return an error.
func computeSelection(cfg *config.Config, logger *logging.Logger, baseRef string) (*selection, error) {
	pol, err := config.LoadPolicy(cfg.RepoRoot)
	if err != nil {
		// A malformed policy file is fatal: silently ignoring an opt-out
		// could under-escalate
		return nil, err
	}

	sel := &selection{}
	in := policy.Input{
		Differential: baseRef != "",
		AlwaysFull:   pol.AlwaysFull,
	}

	artifactDir := cfg.ArtifactPath()
	var m *covermap.CoverageMap
	var meta *covermap.Meta

	if covermap.Exists(artifactDir) {
		store, err := covermap.Open(artifactDir, logger)
		if err == nil {
			m, err = store.Load()
			if err == nil {
				sel.AllTests = m.AllTests()
				sel.Durations, _ = store.TestDurations()
				in.MapExists = true
			}
			_ = store.Close()
		}
		if err != nil {
			// An unreadable map is indistinguishable from no map; the
			// policy falls back to a full run either way
			logger.Warn("Coverage map unreadable, treating as absent", map[string]interface{}{
				"error": err.Error(),
			})
			m = nil
		}
	}

	if in.MapExists {
		meta, err = covermap.LoadMeta(artifactDir)
		if err != nil {
			logger.Warn("Coverage map metadata unreadable", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	if in.Differential {
		cs, err := resolveChangeSet(cfg.RepoRoot, baseRef, logger)
		if err != nil {
			if !errors.IsRecoverable(err) {
				return nil, err
			}
			// No reachable history means no comparison base: this build
			// is effectively not differential
			logger.Warn("Cannot resolve change set, falling back to full run", map[string]interface{}{
				"baseRef": baseRef,
				"error":   err.Error(),
			})
			in.Differential = false
		}
		pruneEngineArtifacts(cs, cfg.ArtifactDirName())
		sel.ChangeSet = cs
	}

	mergeBase := ""
	if sel.ChangeSet != nil {
		mergeBase = sel.ChangeSet.MergeBase
	}
	maxAge := time.Duration(cfg.Staleness.MaxAgeHours) * time.Hour
	in.Freshness = meta.CheckFreshness(mergeBase, maxAge)

	if m != nil && sel.ChangeSet != nil {
		sel.Impact = impact.Analyze(sel.ChangeSet, m, pol.StructuralPatterns)
		in.Impact = sel.Impact
	}
	in.ChangeSet = sel.ChangeSet

	sel.Decision = policy.Decide(in)

	logger.Debug("Selection decided", map[string]interface{}{
		"mode":   string(sel.Decision.Mode),
		"state":  string(sel.Decision.State),
		"reason": sel.Decision.Reason,
		"tests":  len(sel.Decision.Tests),
	})

	return sel, nil
}

// pruneEngineArtifacts drops the engine's own output files from the
// change set. They are untracked by design and would otherwise read as
// added-unmapped files, escalating every run that follows an analyze.
func pruneEngineArtifacts(cs *gitdiff.ChangeSet, artifactDir string) {
	if cs == nil {
		return
	}
	prefix := strings.TrimSuffix(filepath.ToSlash(artifactDir), "/") + "/"
	kept := cs.Changes[:0]
	for _, c := range cs.Changes {
		if c.Path == ImpactedTestsFile || strings.HasPrefix(c.Path, prefix) {
			continue
		}
		kept = append(kept, c)
	}
	cs.Changes = kept
}

func resolveChangeSet(repoRoot, baseRef string, logger *logging.Logger) (*gitdiff.ChangeSet, error) {
	resolver, err := gitdiff.NewResolver(repoRoot, logger)
	if err != nil {
		return nil, err
	}
	return resolver.Resolve(baseRef)
}
