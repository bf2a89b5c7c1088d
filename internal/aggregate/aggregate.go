// Package aggregate rolls file sizes up into cumulative totals per ancestor directory.
package aggregate

import (
	"cmp"
	"errors"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/idelchi/dirspace/internal/volume"
)

// RootKey is the key of a traversal root in the totals map.
const RootKey = "."

// ErrOutsideRoot is returned for files that do not live below their root.
var ErrOutsideRoot = errors.New("file is outside its root")

// DirStat is the cumulative size of one directory.
type DirStat struct {
	// Path is the directory, relative to its root ("." or "./a/b").
	Path string `json:"path" yaml:"path"`
	// Size is the sum of the sizes of all files below it.
	Size uint64 `json:"size" yaml:"size"`
}

// FileStat represents a single file path and size.
type FileStat struct {
	// Path is the file, relative to its root ("./a/b.txt").
	Path string `json:"path" yaml:"path"`
	// Size is the size in bytes.
	Size uint64 `json:"size" yaml:"size"`
}

// ExtStat represents statistics for a file extension.
type ExtStat struct {
	// Count is the number of files with this extension.
	Count int `json:"count" yaml:"count"`
	// Size is the cumulative size in bytes.
	Size uint64 `json:"size" yaml:"size"`
}

// SizeGroup lists files sharing one size.
type SizeGroup struct {
	Size  uint64   `json:"size"  yaml:"size"`
	Files []string `json:"files" yaml:"files"`
}

// Report is the final result of an aggregation.
type Report struct {
	// RunID identifies the traversal the report was built from.
	RunID string `json:"run_id,omitempty"    yaml:"run_id,omitempty"`
	// Totals maps relative directory paths to cumulative sizes.
	Totals map[string]uint64 `json:"totals"              yaml:"totals"`
	// Roots maps each root to the total size of the files below it.
	Roots map[string]uint64 `json:"roots"               yaml:"roots"`
	// TopDirs contains the N largest directories, smallest first.
	TopDirs []DirStat `json:"top_dirs"            yaml:"top_dirs"`
	// TopFiles contains the N largest files, smallest first.
	TopFiles []FileStat `json:"top_files"           yaml:"top_files"`
	// ExtStats maps file extensions to their statistics.
	ExtStats map[string]ExtStat `json:"ext_stats"           yaml:"ext_stats"`
	// SameSize groups files of identical size, smallest size first.
	// Only filled when size grouping is enabled.
	SameSize []SizeGroup `json:"same_size,omitempty" yaml:"same_size,omitempty"`
	// FileCount is the number of files accumulated.
	FileCount int64 `json:"file_count"          yaml:"file_count"`
	// TotalBytes is the sum of all accumulated sizes.
	TotalBytes uint64 `json:"total_bytes"         yaml:"total_bytes"`
	// ErrorCount is the number of errors encountered.
	ErrorCount int64 `json:"error_count"         yaml:"error_count"`
	// Truncated is set when a traversal limit cut the run short.
	Truncated bool `json:"truncated"           yaml:"truncated"`
	// Volumes holds the probed volume of each root, if requested.
	Volumes map[string]volume.Stats `json:"volumes,omitempty"   yaml:"volumes,omitempty"`
	// Elapsed is the total time taken.
	Elapsed time.Duration `json:"elapsed"             yaml:"elapsed"`
	// TopN is the number of top directories tracked.
	TopN int `json:"top_n"               yaml:"top_n"`
}

// Aggregator accumulates file sizes from concurrent traversal events.
type Aggregator struct {
	mu         sync.Mutex // Protect concurrent access
	topN       int
	totals     map[string]uint64
	roots      map[string]uint64
	extStats   map[string]ExtStat
	topFiles   []FileStat
	sizes      map[uint64][]string // nil unless size grouping is enabled
	fileCount  int64
	totalBytes uint64
	errorCount int64
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithSizeGroups makes the Aggregator group files by identical size.
func WithSizeGroups() Option {
	return func(a *Aggregator) {
		a.sizes = make(map[uint64][]string)
	}
}

// New creates an Aggregator tracking the topN largest directories and files.
func New(topN int, opts ...Option) *Aggregator {
	a := &Aggregator{
		topN:     topN,
		totals:   make(map[string]uint64),
		roots:    make(map[string]uint64),
		extStats: make(map[string]ExtStat),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Chain returns the ancestor chain of filePath below root, from the root
// (".") down to the file's parent directory ("./a", "./a/b", ...).
func Chain(root, filePath string) ([]string, error) {
	if filepath.Clean(root) == filepath.Clean(filePath) {
		return []string{RootKey}, nil
	}

	rel, err := filepath.Rel(root, filepath.Dir(filePath))
	if err != nil {
		return nil, err
	}

	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return nil, ErrOutsideRoot
	}

	chain := []string{RootKey}

	for _, segment := range strings.Split(rel, "/") {
		if segment == "" || segment == "." {
			continue
		}

		chain = append(chain, chain[len(chain)-1]+"/"+segment)
	}

	return chain, nil
}

// Accumulate adds size to every directory between root and filePath.
func (a *Aggregator) Accumulate(root, filePath string, size uint64) error {
	chain, err := Chain(root, filePath)
	if err != nil {
		return err
	}

	key := RootKey
	if filepath.Clean(root) != filepath.Clean(filePath) {
		key = chain[len(chain)-1] + "/" + filepath.Base(filePath)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, dir := range chain {
		a.totals[dir] += size
	}

	a.roots[root] += size
	a.fileCount++
	a.totalBytes += size

	ext := a.extStats[filepath.Ext(filePath)]
	ext.Count++
	ext.Size += size
	a.extStats[filepath.Ext(filePath)] = ext

	// Collect files, sort and trim once the list grows well past topN
	a.topFiles = append(a.topFiles, FileStat{Path: key, Size: size})
	if a.topN > 0 && len(a.topFiles) >= 2*a.topN+trimSlack {
		a.topFiles = largestFiles(a.topFiles, a.topN)
	}

	if a.sizes != nil {
		a.sizes[size] = append(a.sizes[size], key)
	}

	return nil
}

// trimSlack delays trimming of the top files list so it is not sorted on every file.
const trimSlack = 64

// largestFiles sorts files by size (largest first, ties by path) and trims to n.
func largestFiles(files []FileStat, n int) []FileStat {
	sort.Slice(files, func(i, j int) bool {
		if files[i].Size != files[j].Size {
			return files[i].Size > files[j].Size
		}

		return files[i].Path < files[j].Path
	})

	if n > 0 && len(files) > n {
		files = files[:n]
	}

	return files
}

// AddError increments the error counter.
func (a *Aggregator) AddError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorCount++
}

// Progress returns the files and bytes accumulated so far.
func (a *Aggregator) Progress() (int64, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.fileCount, a.totalBytes
}

// Totals returns a copy of the totals map.
func (a *Aggregator) Totals() map[string]uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	totals := make(map[string]uint64, len(a.totals))
	for dir, size := range a.totals {
		totals[dir] = size
	}

	return totals
}

// Finalize produces the Report from the accumulated data.
func (a *Aggregator) Finalize() *Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	totals := make(map[string]uint64, len(a.totals))
	top := make([]DirStat, 0, len(a.totals))

	for dir, size := range a.totals {
		totals[dir] = size
		top = append(top, DirStat{Path: dir, Size: size})
	}

	// Sort by size (largest first, ties by path) and trim to top N
	sort.Slice(top, func(i, j int) bool {
		if top[i].Size != top[j].Size {
			return top[i].Size > top[j].Size
		}

		return top[i].Path < top[j].Path
	})

	if a.topN > 0 && len(top) > a.topN {
		top = top[:a.topN]
	}

	// Reverse for display (smallest first, displayed in reverse)
	for i, j := 0, len(top)-1; i < j; i, j = i+1, j-1 {
		top[i], top[j] = top[j], top[i]
	}

	roots := make(map[string]uint64, len(a.roots))
	for root, size := range a.roots {
		roots[root] = size
	}

	files := largestFiles(slices.Clone(a.topFiles), a.topN)
	slices.Reverse(files)

	extStats := make(map[string]ExtStat, len(a.extStats))
	for ext, stat := range a.extStats {
		extStats[ext] = stat
	}

	return &Report{
		Totals:     totals,
		Roots:      roots,
		TopDirs:    top,
		TopFiles:   files,
		ExtStats:   extStats,
		SameSize:   a.sizeGroups(),
		FileCount:  a.fileCount,
		TotalBytes: a.totalBytes,
		ErrorCount: a.errorCount,
		TopN:       a.topN,
	}
}

// sizeGroups returns the sizes shared by more than one file, smallest first.
func (a *Aggregator) sizeGroups() []SizeGroup {
	if a.sizes == nil {
		return nil
	}

	groups := make([]SizeGroup, 0)

	for size, files := range a.sizes {
		if len(files) < 2 {
			continue
		}

		files = slices.Clone(files)
		slices.Sort(files)

		groups = append(groups, SizeGroup{Size: size, Files: files})
	}

	slices.SortFunc(groups, func(x, y SizeGroup) int {
		return cmp.Compare(x.Size, y.Size)
	})

	return groups
}
