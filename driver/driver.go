// Package driver implements the Multi-File Driver (C8): discovers
// DepGraph files under a root directory, farms their forward analyses to
// a worker pool, merges post-images into an Automaton Grouping container,
// then farms a second round of backward analyses — one job per
// (file, context) pair — to report attack-pattern overlaps. Modeled on
// the retrieved contract-scanner orchestrator's errgroup fan-out: each
// job's failure is logged and isolated, never aborts the pool (spec §5
// "a job that raises any error is isolated").
package driver

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/christiankrug/sanitizer-checker/analyzer"
	"github.com/christiankrug/sanitizer-checker/catalogue"
	"github.com/christiankrug/sanitizer-checker/depgraph"
	"github.com/christiankrug/sanitizer-checker/errkind"
	"github.com/christiankrug/sanitizer-checker/grouping"
	"github.com/christiankrug/sanitizer-checker/metrics"
	"github.com/christiankrug/sanitizer-checker/resulttable"
	"github.com/christiankrug/sanitizer-checker/ssv"
)

// Config configures one driver run (spec §4.8, §6).
type Config struct {
	Root       string
	InputField string
	Contexts   []catalogue.Context
	Threads    int // 0 means runtime.GOMAXPROCS(0)
	Collector  metrics.StageCollector
}

// Overlap is one context's attack-pattern overlap summary for a single
// file (spec §6 "overlap pre-image summary").
type Overlap struct {
	Context catalogue.Context
	Empty   bool
	Sample  string
}

// FileResult is one file's complete analysis outcome.
type FileResult struct {
	File      string
	PostImage ssv.SSV
	Overlaps  []Overlap
}

// Failure records a file whose analysis could not complete (spec §5 "its
// partial results are discarded, the error is logged").
type Failure struct {
	File string
	Err  *errkind.AnalysisError
}

// Report is the driver's final output: the equivalence groups assembled
// from every successful file, plus every file that failed outright.
type Report struct {
	Groups  *grouping.Groups
	Results []FileResult
	Failed  []Failure
}

// Run discovers, analyzes, and groups every .dot file under cfg.Root.
// Returns an error only for conditions the CLI must treat as a startup
// failure (spec §6: directory missing, or no input files found); per-file
// analysis errors are collected into the returned Report instead.
func Run(cfg Config) (*Report, error) {
	if cfg.Collector == nil {
		cfg.Collector = metrics.NoopCollector{}
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	if threads < 1 {
		threads = 1
	}

	files, err := discover(cfg.Root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("driver: no .dot files found under %s", cfg.Root)
	}

	groups := grouping.New()
	registerNamedGroups(groups)

	results := make([]FileResult, 0, len(files))
	tables := make(map[string]*parsedFile, len(files))
	var mu sync.Mutex
	var failed []Failure

	a := analyzer.New(analyzer.WithCollector(cfg.Collector))

	g := new(errgroup.Group)
	g.SetLimit(threads)
	for _, file := range files {
		file := file
		g.Go(func() error {
			graph, table, post, err := forwardOne(a, file)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, Failure{File: file, Err: toAnalysisError(file, err)})
				slog.Warn("forward analysis failed", "file", file, "error", err)
				return nil
			}
			groups.Add(post, grouping.Result{File: file, SSV: post})
			tables[file] = &parsedFile{graph: graph, table: table, post: post}
			results = append(results, FileResult{File: file, PostImage: post})
			return nil
		})
	}
	_ = g.Wait() // individual errors are already isolated above; Wait never returns non-nil here

	byFile := make(map[string]*FileResult, len(results))
	for i := range results {
		byFile[results[i].File] = &results[i]
	}

	g2 := new(errgroup.Group)
	g2.SetLimit(threads)
	for file, pf := range tables {
		for _, ctx := range cfg.Contexts {
			file, pf, ctx := file, pf, ctx
			g2.Go(func() error {
				overlap, err := backwardOne(a, pf, ctx, cfg.InputField)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failed = append(failed, Failure{File: file, Err: toAnalysisError(file, err)})
					slog.Warn("backward analysis failed", "file", file, "context", ctx, "error", err)
					return nil
				}
				if fr, ok := byFile[file]; ok {
					fr.Overlaps = append(fr.Overlaps, overlap)
				}
				return nil
			})
		}
	}
	_ = g2.Wait()

	for i := range results {
		sort.Slice(results[i].Overlaps, func(a, b int) bool {
			return results[i].Overlaps[a].Context < results[i].Overlaps[b].Context
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	sort.Slice(failed, func(i, j int) bool { return failed[i].File < failed[j].File })

	return &Report{Groups: groups, Results: results, Failed: failed}, nil
}

type parsedFile struct {
	graph *depgraph.Graph
	table *resulttable.Table
	post  ssv.SSV
}

func discover(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("driver: %s is not a directory: %w", root, err)
	}
	var out []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".dot" {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("driver: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

func forwardOne(a *analyzer.Analyzer, file string) (*depgraph.Graph, *resulttable.Table, ssv.SSV, error) {
	graph, err := depgraph.Parse(file)
	if err != nil {
		return nil, nil, ssv.SSV{}, err
	}
	table, post, err := a.ForwardImage(graph, nil)
	if err != nil {
		return nil, nil, ssv.SSV{}, err
	}
	return graph, table, post, nil
}

func backwardOne(a *analyzer.Analyzer, pf *parsedFile, ctx catalogue.Context, inputField string) (Overlap, error) {
	pattern, ok := catalogue.PatternFor(ctx)
	if !ok {
		return Overlap{Context: ctx, Empty: true}, nil
	}
	constraint, err := ssv.Intersect(pf.post, pattern)
	if err != nil {
		return Overlap{}, err
	}
	if ssv.IsEmpty(constraint) {
		return Overlap{Context: ctx, Empty: true}, nil
	}

	var sample string
	if s, ok := constraint.SampleString(); ok {
		sample = s
	}
	if inputField != "" {
		id, ok := pf.graph.FindInput(inputField)
		if !ok {
			return Overlap{}, errkind.New(errkind.InputNotFound, "",
				fmt.Errorf("input field %q not found in graph", inputField))
		}
		constraints, err := a.BackwardImage(pf.graph, constraint, pf.table)
		if err != nil {
			return Overlap{}, err
		}
		if pre, ok := constraints.Get(id); ok {
			if s, ok := pre.SampleString(); ok {
				sample = s
			}
		}
	}
	return Overlap{Context: ctx, Empty: false, Sample: sample}, nil
}

func toAnalysisError(file string, err error) *errkind.AnalysisError {
	if ae, ok := err.(*errkind.AnalysisError); ok {
		ae.File = file
		return ae
	}
	return errkind.New(errkind.InternalInvariant, file, err)
}

// registerNamedGroups pre-registers the catalogue's named sanitizer
// residues so post-images that match them are reported under familiar
// names instead of anonymous group ids (spec §4.7; grounded on the
// original tool's fillCommonPatterns, which does the same before any file
// is analyzed).
func registerNamedGroups(groups *grouping.Groups) {
	names := []string{
		"HTML_ESCAPED", "HTML_REMOVED", "HTML_REMOVED_NO_SLASH",
		"ENCODE_HTML_COMPAT", "ENCODE_HTML_NO_QUOTES", "ENCODE_HTML_QUOTES",
		"ENCODE_HTML_SLASH", "ENCODE_HTML_TAGS_ONLY", "HTML_BACKTICK",
		"HTML_NO_SLASHES", "HTML_ATTR_ESCAPED", "JAVASCRIPT_ESCAPED",
		"URL_ESCAPED", "URL_COMPONENT_ENCODED",
	}
	for _, name := range names {
		if v, ok := catalogue.Comparator(name); ok {
			groups.CreateNamed(v, name)
		}
	}
}
