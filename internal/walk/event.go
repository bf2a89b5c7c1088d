package walk

import (
	"github.com/idelchi/dirspace/internal/entry"
)

// EventKind tells the events of a traversal apart.
type EventKind int

const (
	// EventFile carries a stat'd entry, directories included.
	EventFile EventKind = iota + 1
	// EventPath announces a discovered subdirectory that will be scanned.
	EventPath
	// EventError carries a ListError or StatError.
	EventError
	// EventEnd is sent once, after everything else.
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventFile:
		return "file"
	case EventPath:
		return "path"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is one message of a traversal.
type Event struct {
	Kind EventKind
	// Entry is set for EventFile.
	Entry entry.FileEntry
	// Path is the affected path for EventPath, EventError and EventFile.
	Path string
	// Root is the traversal root Path belongs to.
	Root string
	// Err is the failure for EventError, or the context error for EventEnd.
	Err error
	// Truncated is set on EventEnd when a depth or entry limit cut the run short.
	Truncated bool
	// RunID identifies the traversal that produced the event.
	RunID string
}
