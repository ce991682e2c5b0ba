// Package audit orchestrates one run: scan the tree, extract events from
// every auditable file in parallel, build and classify the graph, analyze it,
// and assemble the report. The audit executes nothing and writes nothing
// except the optional report file and the extraction cache.
package audit

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"depaudit/internal/config"
	"depaudit/internal/log"
	"depaudit/internal/scanner"
	"depaudit/pkg/analyze"
	"depaudit/pkg/cache"
	"depaudit/pkg/event"
	"depaudit/pkg/extract"
	"depaudit/pkg/graph"
	"depaudit/pkg/manuscript"
	"depaudit/pkg/report"
)

// Result carries everything one audit run produced.
type Result struct {
	Graph    *graph.Graph
	Findings []analyze.Finding
	Report   *report.Report
}

// Runner executes audits with a fixed configuration.
type Runner struct {
	cfg      *config.Config
	logger   log.Logger
	registry *extract.Registry
}

// NewRunner creates a Runner. A nil logger falls back to the default.
func NewRunner(cfg *config.Config, logger log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		cfg:      cfg,
		logger:   logger,
		registry: extract.NewRegistry(),
	}
}

// Run audits the project rooted at root.
func (r *Runner) Run(root string) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}

	sc := scanner.New(scannerOptions(r.cfg))
	files, err := sc.Scan(absRoot)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("scanned project", "root", absRoot, "files", len(files))

	var auditable []scanner.FileInfo
	for _, f := range files {
		if f.Language != "" && r.registry.IsSupported(f.FullPath) {
			auditable = append(auditable, f)
		}
	}

	refs, err := r.manuscriptRefs(absRoot, files)
	if err != nil {
		return nil, err
	}

	events, failures := r.extractAll(absRoot, auditable)

	builder := graph.NewBuilder(absRoot)
	g := builder.Build(events)
	graph.Classify(g, refs)

	findings := append(failures, analyze.Analyze(g)...)
	rep := report.Build(g, findings)

	return &Result{Graph: g, Findings: findings, Report: rep}, nil
}

// manuscriptRefs collects the manuscript reference set from files matching
// the configured globs.
func (r *Runner) manuscriptRefs(root string, files []scanner.FileInfo) (manuscript.Set, error) {
	var manuscripts []string
	for _, f := range files {
		for _, glob := range r.cfg.ManuscriptGlobs {
			ok, err := filepath.Match(glob, f.Path)
			if err != nil {
				return nil, fmt.Errorf("matching manuscript glob %q: %w", glob, err)
			}
			if ok {
				manuscripts = append(manuscripts, f.FullPath)
				break
			}
		}
	}
	r.logger.Debug("collected manuscripts", "count", len(manuscripts))
	return manuscript.Collect(manuscripts)
}

// extractionResult is one file's outcome from the worker pool.
type extractionResult struct {
	path   string
	events []event.Event
	err    error
}

// extractAll runs extraction on a worker pool. Results are pure data folded
// back on a single goroutine, sorted by path, so the merge is deterministic
// regardless of completion order. A failed extractor skips that file and
// surfaces it as a finding instead of aborting the run.
func (r *Runner) extractAll(root string, files []scanner.FileInfo) ([]event.Event, []analyze.Finding) {
	var store *cache.Store
	if r.cfg.Cache {
		path := filepath.Join(root, cache.DefaultDir, cache.DefaultFile)
		if r.cfg.CacheDir != "" {
			path = filepath.Join(r.cfg.CacheDir, cache.DefaultFile)
		}
		store = cache.Open(path)
		r.logger.Debug("opened extraction cache", "entries", store.Len())
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []extractionResult
	)

	for _, f := range files {
		wg.Add(1)
		go func(fi scanner.FileInfo) {
			defer wg.Done()
			res := r.extractOne(fi, store)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(f)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].path < results[j].path })

	var events []event.Event
	var failures []analyze.Finding
	for _, res := range results {
		if res.err != nil {
			r.logger.Warn("extraction failed", "file", res.path, "error", res.err)
			failures = append(failures, analyze.NewExtractionFailure(res.path, res.err))
			continue
		}
		events = append(events, res.events...)
	}

	if store != nil {
		if err := store.Save(); err != nil {
			r.logger.Warn("saving extraction cache", "error", err)
		}
	}

	return events, failures
}

func (r *Runner) extractOne(fi scanner.FileInfo, store *cache.Store) extractionResult {
	ex, err := r.registry.For(fi.FullPath)
	if err != nil {
		return extractionResult{path: fi.FullPath, err: err}
	}

	var hash string
	if store != nil {
		if h, err := cache.HashFile(fi.FullPath); err == nil {
			hash = h
			if events, ok := store.Get(fi.FullPath, hash); ok {
				return extractionResult{path: fi.FullPath, events: events}
			}
		}
	}

	events, err := ex.Extract(fi.FullPath)
	if err != nil {
		return extractionResult{path: fi.FullPath, err: err}
	}

	if store != nil && hash != "" {
		store.Put(fi.FullPath, hash, events)
	}

	return extractionResult{path: fi.FullPath, events: events}
}

func scannerOptions(cfg *config.Config) scanner.Options {
	opts := scanner.DefaultOptions()
	opts.ExtraExcludes = append(opts.ExtraExcludes, cfg.Excludes...)
	return opts
}
