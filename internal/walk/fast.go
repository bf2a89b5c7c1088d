package walk

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"

	"github.com/idelchi/dirspace/internal/entry"
)

// errEntryLimit aborts a fastwalk run once MaxEntries is reached.
var errEntryLimit = errors.New("entry limit reached")

// Fast walks roots with fastwalk and reports file and error events to fn,
// followed by a single EventEnd. Calls to fn are serialized. No EventPath
// is reported since fastwalk descends on its own.
//
// The returned error joins the ListErrors of roots that could not be read.
//
//nolint:gocognit // Mirrors the filtering steps of the walk callback.
func Fast(ctx context.Context, opts Options, roots []string, fn func(Event)) error {
	log := opts.logger()
	id := opts.id()

	var (
		mu        sync.Mutex
		entries   atomic.Int64
		truncated atomic.Bool
		rootErrs  []error
	)

	emit := func(ev Event) {
		mu.Lock()
		defer mu.Unlock()

		ev.RunID = id

		fn(ev)
	}

	conf := &fastwalk.Config{
		Follow: false, // Don't follow symlinks
	}

	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			break
		}

		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			if err == nil {
				err = ErrNotDir
			}

			lerr := &ListError{Path: root, Err: err}
			rootErrs = append(rootErrs, lerr)
			emit(Event{Kind: EventError, Path: root, Root: root, Err: lerr})

			continue
		}

		//nolint:varnamelen // d is standard for DirEntry
		walkErr := fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				emit(Event{Kind: EventError, Path: path, Root: root, Err: &ListError{Path: path, Err: err}})

				return nil
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if path == root {
				return nil
			}

			depth := Depth(path, root)
			if opts.MaxDepth > 0 && depth > opts.MaxDepth {
				truncated.Store(true)

				if d.IsDir() {
					return filepath.SkipDir
				}

				return nil
			}

			if d.IsDir() && opts.pruned(path) {
				log.Debugf("excluding directory: %s", filepath.ToSlash(path))

				return filepath.SkipDir
			}

			info, err := d.Info()
			if err != nil {
				emit(Event{Kind: EventError, Path: path, Root: root, Err: &StatError{Path: path, Err: err}})

				return nil //nolint:nilerr // Reported as an event
			}

			if opts.MaxEntries > 0 && entries.Add(1) > opts.MaxEntries {
				truncated.Store(true)

				return errEntryLimit
			}

			emit(Event{Kind: EventFile, Entry: entry.New(root, path, info), Path: path, Root: root})

			if d.IsDir() && opts.beyondDepth(depth) {
				log.Debugf("skipping directory (beyond depth %d): %s", opts.MaxDepth, path)
				truncated.Store(true)

				return filepath.SkipDir
			}

			return nil
		})

		switch {
		case walkErr == nil:
		case errors.Is(walkErr, errEntryLimit):
			log.Debugf("entry limit %d reached in %s", opts.MaxEntries, root)
		case errors.Is(walkErr, context.Canceled), errors.Is(walkErr, context.DeadlineExceeded):
		default:
			emit(Event{Kind: EventError, Path: root, Root: root, Err: &ListError{Path: root, Err: walkErr}})
		}

		if truncated.Load() && opts.MaxEntries > 0 && entries.Load() > opts.MaxEntries {
			break
		}
	}

	emit(Event{Kind: EventEnd, Truncated: truncated.Load(), Err: ctx.Err()})

	return errors.Join(rootErrs...)
}
