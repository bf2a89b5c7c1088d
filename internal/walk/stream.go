package walk

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/idelchi/dirspace/internal/entry"
	"github.com/idelchi/dirspace/internal/logging"
)

// request asks the stream to read one directory.
type request struct {
	root  string
	path  string
	depth int
}

// Stream is a running streaming traversal.
//
// Events must be drained until the channel is closed: EventEnd is always
// the last event, sent exactly once, after which the channel is closed.
type Stream struct {
	id     string
	ctx    context.Context //nolint:containedctx // The stream outlives Start.
	opts   Options
	log    logging.Logger
	events chan Event
	queue  chan request

	mu        sync.Mutex // Protects the job accounting below
	jobs      int
	ended     bool
	truncated bool
	rootErrs  []error

	entries atomic.Int64
	limited atomic.Bool
}

// Start begins a non-blocking scan of roots and returns immediately.
func Start(ctx context.Context, opts Options, roots ...string) *Stream {
	s := &Stream{
		id:     opts.id(),
		ctx:    ctx,
		opts:   opts,
		log:    opts.logger(),
		events: make(chan Event, opts.buffer()),
		queue:  make(chan request),
	}

	s.log.Debugf("stream %s: starting with %d root(s)", s.id, len(roots))

	// The seeding job keeps the counter above zero until every root is queued.
	s.acquire()

	go s.dispatch()

	go func() {
		defer s.release()

		for _, root := range roots {
			s.acquire()
			s.queue <- request{root: root, path: root}
		}
	}()

	return s
}

// ID identifies the run; every event carries it as RunID.
func (s *Stream) ID() string {
	return s.id
}

// Events returns the event channel.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// RootErr returns the list errors of root arguments that could not be read.
// It is complete once EventEnd has been received.
func (s *Stream) RootErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return errors.Join(s.rootErrs...)
}

// Drain consumes the stream, calling fn for every event including EventEnd,
// and returns the EventEnd event.
func (s *Stream) Drain(fn func(Event)) Event {
	var last Event

	for ev := range s.events {
		if fn != nil {
			fn(ev)
		}

		last = ev
	}

	return last
}

// dispatch turns queued requests into directory reads.
func (s *Stream) dispatch() {
	for req := range s.queue {
		go s.readDir(req)
	}
}

// acquire registers an in-flight job. A job must always be acquired by a
// running job before that job releases its own.
func (s *Stream) acquire() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs++
}

// release finishes a job and ends the stream at quiescence.
func (s *Stream) release() {
	s.mu.Lock()

	s.jobs--
	done := s.jobs == 0 && !s.ended

	if done {
		s.ended = true
	}

	truncated := s.truncated
	s.mu.Unlock()

	if !done {
		return
	}

	close(s.queue)

	s.log.Debugf("stream %s: quiescent after %d entries", s.id, s.entries.Load())

	s.events <- Event{Kind: EventEnd, Truncated: truncated, Err: s.ctx.Err(), RunID: s.id}
	close(s.events)
}

func (s *Stream) truncate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.truncated = true
}

// halted reports whether new work should be skipped.
func (s *Stream) halted() bool {
	return s.ctx.Err() != nil || s.limited.Load()
}

// admit counts an entry against MaxEntries.
func (s *Stream) admit() bool {
	if s.opts.MaxEntries <= 0 {
		s.entries.Add(1)

		return true
	}

	if s.entries.Add(1) <= s.opts.MaxEntries {
		return true
	}

	s.limited.Store(true)
	s.truncate()

	return false
}

func (s *Stream) emit(ev Event) {
	ev.RunID = s.id
	s.events <- ev
}

func (s *Stream) readDir(req request) {
	defer s.release()

	if s.halted() {
		return
	}

	entries, err := os.ReadDir(req.path)
	if err != nil {
		lerr := &ListError{Path: req.path, Err: err}

		if req.depth == 0 {
			s.mu.Lock()
			s.rootErrs = append(s.rootErrs, lerr)
			s.mu.Unlock()
		}

		s.emit(Event{Kind: EventError, Path: req.path, Root: req.root, Err: lerr})
	}

	for _, de := range entries {
		s.acquire()

		go s.stat(req, filepath.Join(req.path, de.Name()))
	}
}

func (s *Stream) stat(parent request, path string) {
	defer s.release()

	if s.halted() {
		return
	}

	info, err := os.Lstat(path)
	if err != nil {
		s.emit(Event{Kind: EventError, Path: path, Root: parent.root, Err: &StatError{Path: path, Err: err}})

		return
	}

	if info.IsDir() && s.opts.pruned(path) {
		s.log.Debugf("excluding directory: %s", filepath.ToSlash(path))

		return
	}

	if !s.admit() {
		return
	}

	s.emit(Event{Kind: EventFile, Entry: entry.New(parent.root, path, info), Path: path, Root: parent.root})

	if !info.IsDir() {
		return
	}

	depth := parent.depth + 1

	if s.opts.beyondDepth(depth) {
		s.log.Debugf("skipping directory (beyond depth %d): %s", s.opts.MaxDepth, path)
		s.truncate()

		return
	}

	s.emit(Event{Kind: EventPath, Path: path, Root: parent.root})

	s.acquire()
	s.resubmit(request{root: parent.root, path: path, depth: depth})
}

// resubmit queues a discovered directory as a new scan request.
// The caller has already acquired the job for it.
func (s *Stream) resubmit(req request) {
	if s.opts.Delay <= 0 {
		s.queue <- req

		return
	}

	time.AfterFunc(s.opts.Delay, func() {
		s.queue <- req
	})
}
