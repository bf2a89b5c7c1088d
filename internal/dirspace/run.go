package dirspace

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/idelchi/dirspace/internal/aggregate"
	"github.com/idelchi/dirspace/internal/logging"
	"github.com/idelchi/dirspace/internal/volume"
	"github.com/idelchi/dirspace/internal/walk"
)

// DefaultProgressInterval is the default interval for progress updates.
const DefaultProgressInterval = 500 * time.Millisecond

// Traversal engines.
const (
	EngineStream = "stream"
	EngineTree   = "tree"
	EngineFast   = "fast"
)

// Engines lists the valid values of Options.Engine.
//
//nolint:gochecknoglobals // Config constant
var Engines = []string{EngineStream, EngineTree, EngineFast}

// Options configures a run.
type Options struct {
	// Paths are the roots to analyze.
	Paths []string
	// Engine selects the traversal engine.
	Engine string
	// Excludes contains regex patterns of files left out of the totals.
	// Directories matching a pattern (with a trailing slash) are not descended into.
	Excludes []string
	// Extensions to include (empty = all). A '!' prefix excludes the suffix.
	Extensions []string
	// MinSize is the minimum file size in bytes.
	MinSize uint64
	// SameSize groups files of identical size in the result.
	SameSize bool
	// TopN is the number of top directories to track.
	TopN int
	// Depth is the maximum traversal depth (0=unlimited).
	Depth int
	// MaxEntries stops the traversal after this many entries (0=unlimited).
	MaxEntries int64
	// Delay postpones scanning of discovered directories (stream engine).
	Delay time.Duration
	// Blocks sizes files by the blocks they occupy on their volume.
	Blocks bool
	// Volume probes the volume of every root.
	Volume bool
	// Probe overrides the volume probe.
	Probe volume.Probe
	// ProgressInterval controls progress callback cadence.
	ProgressInterval time.Duration
	// Logger receives debug and error output.
	Logger logging.Logger
}

// Result is the outcome of Run.
type Result struct {
	aggregate.Report `yaml:",inline"`

	// Trees holds the collected tree per root for the tree engine.
	Trees map[string]*walk.Tree `json:"trees,omitempty" yaml:"trees,omitempty"`
}

// shouldExcludeByPattern checks if path matches any exclusion regex.
func shouldExcludeByPattern(path string, patterns []*regexp.Regexp) *regexp.Regexp {
	fPath := filepath.ToSlash(path)

	for _, re := range patterns {
		if re.MatchString(fPath) {
			return re
		}
	}

	return nil
}

// shouldIncludeByExtension checks if file should be included based on extension filters.
// Returns true if file should be included, false if excluded.
func shouldIncludeByExtension(path string, include, exclude map[string]struct{}) bool {
	// Check excludes first
	for ext := range exclude {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	// If no include filter, include all
	if len(include) == 0 {
		return true
	}
	// Check includes
	for ext := range include {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	return false
}

// extensionSets splits extensions into include and ('!'-prefixed) exclude sets.
func extensionSets(extensions []string) (include, exclude map[string]struct{}) {
	include = make(map[string]struct{}, len(extensions))
	exclude = make(map[string]struct{}, len(extensions))

	for _, e := range extensions { //nolint:varnamelen // e is standard for element in range
		e = strings.Trim(e, "'\"") // Strip quotes first

		if strings.HasPrefix(e, "!") {
			exclude[strings.TrimPrefix(e, "!")] = struct{}{}
		} else {
			include[e] = struct{}{}
		}
	}

	return include, exclude
}

// uniqueRoots cleans paths and drops repeated roots and roots nested in
// another root, so that no file is accumulated twice.
func uniqueRoots(paths []string, log logging.Logger) []string {
	type root struct {
		path, abs string
	}

	roots := make([]root, 0, len(paths))

	for _, p := range paths {
		p = filepath.Clean(p)

		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}

		roots = append(roots, root{path: p, abs: abs})
	}

	slices.SortStableFunc(roots, func(a, b root) int { return cmp.Compare(a.abs, b.abs) })
	roots = slices.CompactFunc(roots, func(a, b root) bool { return a.abs == b.abs })

	unique := make([]string, 0, len(roots))

	for i, r := range roots {
		covered := slices.IndexFunc(roots[:i], func(parent root) bool {
			rel, err := filepath.Rel(parent.abs, r.abs)

			return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
		})

		if covered >= 0 {
			log.Infof("skipping %s: already covered by %s", r.path, roots[covered].path)

			continue
		}

		unique = append(unique, r.path)
	}

	return unique
}

// errPath returns the path a ListError or StatError refers to.
func errPath(err error) string {
	var (
		lerr *walk.ListError
		serr *walk.StatError
	)

	switch {
	case errors.As(err, &lerr):
		return lerr.Path
	case errors.As(err, &serr):
		return serr.Path
	default:
		return ""
	}
}

// startProgressReporter invokes hook(files, bytes) on each tick until ctx is done.
func startProgressReporter(ctx context.Context, agg *aggregate.Aggregator, hook func(int64, uint64), interval time.Duration) {
	if hook == nil {
		return
	}

	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				hook(agg.Progress())
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Run traverses opt.Paths with the selected engine and aggregates the size
// of every regular file into its ancestor directories.
//
// Traversal errors below a root are logged and counted; the run continues.
// A root that cannot be read makes Run return an error next to the result.
//
//nolint:gocognit,funlen,cyclop // One switch per engine.
func Run(ctx context.Context, opt Options, progressHook func(int64, uint64)) (*Result, error) {
	log := opt.Logger
	if log == nil {
		log = logging.Discard{}
	}

	if len(opt.Paths) == 0 {
		opt.Paths = []string{"."}
	}

	paths := uniqueRoots(opt.Paths, log)

	if opt.Engine == "" {
		opt.Engine = EngineStream
	}

	if opt.TopN <= 0 {
		opt.TopN = 20
	}

	excludeRegexes := make([]*regexp.Regexp, 0, len(opt.Excludes))

	for _, p := range opt.Excludes {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling exclusion pattern %q: %w", p, err)
		}

		excludeRegexes = append(excludeRegexes, re)
	}

	extInclude, extExclude := extensionSets(opt.Extensions)

	var aggOpts []aggregate.Option
	if opt.SameSize {
		aggOpts = append(aggOpts, aggregate.WithSizeGroups())
	}

	agg := aggregate.New(opt.TopN, aggOpts...)
	runID := uuid.NewString()

	log.Debugf("run %s: roots %v", runID, paths)

	volumes, err := probeVolumes(paths, opt, agg, log)
	if err != nil {
		return nil, err
	}

	// Create child context to ensure progress reporter cleanup
	progressCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	startProgressReporter(progressCtx, agg, progressHook, opt.ProgressInterval)

	wopts := walk.Options{
		MaxDepth:   opt.Depth,
		MaxEntries: opt.MaxEntries,
		Delay:      opt.Delay,
		Logger:     log,
		ID:         runID,
		Prune: func(path string) bool {
			return shouldExcludeByPattern(path+string(filepath.Separator), excludeRegexes) != nil
		},
	}

	var (
		truncated bool
		endErr    error
	)

	handle := func(ev walk.Event) {
		switch ev.Kind {
		case walk.EventFile:
			if !ev.Entry.Traits.File {
				return
			}

			if re := shouldExcludeByPattern(ev.Path, excludeRegexes); re != nil {
				log.Debugf("excluding file: %s (matched regex: %s)", filepath.ToSlash(ev.Path), re.String())

				return
			}

			size := ev.Entry.Metadata.Size
			if size < opt.MinSize {
				return
			}

			if !shouldIncludeByExtension(ev.Path, extInclude, extExclude) {
				log.Debugf("excluding file (extension filter): %s", filepath.ToSlash(ev.Path))

				return
			}

			if stats, ok := volumes[ev.Root]; ok && opt.Blocks {
				size = stats.EffectiveSize(size)
			}

			if err := agg.Accumulate(ev.Root, ev.Path, size); err != nil {
				log.Errorf("accumulating %q: %v", ev.Path, err)
				agg.AddError()
			}
		case walk.EventPath:
			log.Debugf("discovered directory: %s", ev.Path)
		case walk.EventError:
			log.Errorf("%v", ev.Err)
			agg.AddError()
		case walk.EventEnd:
			truncated = ev.Truncated
			endErr = ev.Err
		}
	}

	start := time.Now()

	var (
		rootErr error
		trees   map[string]*walk.Tree
	)

	switch opt.Engine {
	case EngineStream:
		stream := walk.Start(ctx, wopts, paths...)

		stream.Drain(handle)
		rootErr = stream.RootErr()
	case EngineTree:
		trees = make(map[string]*walk.Tree, len(paths))

		var rootErrs []error

		for _, root := range paths {
			tree, err := walk.Collect(ctx, root, root, wopts)
			if err != nil {
				rootErrs = append(rootErrs, err)
				handle(walk.Event{Kind: walk.EventError, Path: root, Root: root, Err: err})

				continue
			}

			trees[root] = tree
			truncated = truncated || tree.Truncated

			if tree.Root.Err != nil {
				handle(walk.Event{Kind: walk.EventError, Path: root, Root: root, Err: tree.Root.Err})
			}

			tree.Root.Walk(func(n *walk.Node) {
				if n.Entry != nil {
					handle(walk.Event{Kind: walk.EventFile, Entry: *n.Entry, Path: n.Entry.Path, Root: root})
				}

				if n.Err != nil {
					handle(walk.Event{Kind: walk.EventError, Path: errPath(n.Err), Root: root, Err: n.Err})
				}
			})
		}

		handle(walk.Event{Kind: walk.EventEnd, Truncated: truncated, Err: ctx.Err()})

		rootErr = errors.Join(rootErrs...)
	case EngineFast:
		rootErr = walk.Fast(ctx, wopts, paths, handle)
	default:
		return nil, fmt.Errorf("unknown engine %q: must be one of %v", opt.Engine, Engines)
	}

	report := agg.Finalize()
	report.RunID = runID
	report.Elapsed = time.Since(start)
	report.Truncated = truncated

	if len(volumes) > 0 && opt.Volume {
		report.Volumes = volumes
	}

	result := &Result{Report: *report, Trees: trees}

	if rootErr != nil {
		return result, fmt.Errorf("reading root: %w", rootErr)
	}

	if endErr != nil {
		return result, endErr
	}

	return result, nil
}

// probeVolumes looks up the volume of every root when sizes or volumes are requested.
// Probe failures are logged and counted; they never fail the run.
func probeVolumes(paths []string, opt Options, agg *aggregate.Aggregator, log logging.Logger) (map[string]volume.Stats, error) {
	if !opt.Blocks && !opt.Volume {
		return nil, nil //nolint:nilnil // Nothing requested
	}

	cache, err := volume.NewCache(opt.Probe, len(paths))
	if err != nil {
		return nil, err
	}

	volumes := make(map[string]volume.Stats, len(paths))

	for _, root := range paths {
		stats, err := cache.Stat(root)
		if err != nil {
			log.Errorf("%v", err)
			agg.AddError()

			continue
		}

		log.Debugf("volume %s of %s: block size %d", stats.ID, root, stats.BlockSize)

		volumes[root] = stats
	}

	return volumes, nil
}
