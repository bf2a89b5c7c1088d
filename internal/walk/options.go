package walk

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/idelchi/dirspace/internal/logging"
)

// DefaultBuffer is the default capacity of a stream's event channel.
const DefaultBuffer = 256

// Options configures a traversal.
type Options struct {
	// MaxDepth limits how deep below a root entries are reported (0=unlimited).
	// Entries directly inside a root are at depth 1.
	MaxDepth int
	// MaxEntries stops the traversal after this many entries (0=unlimited).
	MaxEntries int64
	// Delay postpones the re-submission of discovered directories.
	Delay time.Duration
	// Buffer is the event channel capacity of a stream.
	Buffer int
	// Logger receives debug output. Nil discards it.
	Logger logging.Logger
	// Prune reports directories to leave out entirely: they are neither
	// reported nor descended into. Roots are never pruned.
	Prune func(path string) bool
	// ID tags every event of the run. Empty means a fresh UUID.
	ID string
}

func (o Options) logger() logging.Logger {
	if o.Logger == nil {
		return logging.Discard{}
	}

	return o.Logger
}

func (o Options) pruned(path string) bool {
	return o.Prune != nil && o.Prune(path)
}

func (o Options) id() string {
	if o.ID == "" {
		return uuid.NewString()
	}

	return o.ID
}

func (o Options) buffer() int {
	if o.Buffer <= 0 {
		return DefaultBuffer
	}

	return o.Buffer
}

// beyondDepth reports whether entries at depth may not be descended into.
func (o Options) beyondDepth(depth int) bool {
	return o.MaxDepth > 0 && depth >= o.MaxDepth
}

// Depth returns the depth of path relative to root.
func Depth(path, root string) int {
	rel := strings.TrimPrefix(path, root)

	rel = strings.TrimPrefix(rel, string(filepath.Separator))
	if rel == "" {
		return 0
	}

	return strings.Count(rel, string(filepath.Separator)) + 1
}
