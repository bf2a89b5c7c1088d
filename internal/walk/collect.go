package walk

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/idelchi/dirspace/internal/entry"
	"github.com/idelchi/dirspace/internal/logging"
)

// Node is one entry of a collected tree.
type Node struct {
	// Name is the base name of the entry.
	Name string `json:"name"               yaml:"name"`
	// Entry is nil when the entry could not be stat'd.
	Entry *entry.FileEntry `json:"entry,omitempty"    yaml:"entry,omitempty"`
	// Children maps child names to nodes; nil for anything but read directories.
	Children map[string]*Node `json:"children,omitempty" yaml:"children,omitempty"`
	// Err is the StatError or ListError for this subtree, if any.
	Err error `json:"-"                  yaml:"-"`
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n.Entry != nil && n.Entry.Traits.Directory
}

// Walk calls fn for every node below n, depth first in name order.
func (n *Node) Walk(fn func(*Node)) {
	for _, name := range n.Names() {
		child := n.Children[name]

		fn(child)
		child.Walk(fn)
	}
}

// Names returns the sorted child names.
func (n *Node) Names() []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Count returns the number of stat'd entries and of failed nodes below n.
func (n *Node) Count() (entries, errs int) {
	n.Walk(func(c *Node) {
		if c.Entry != nil {
			entries++
		}

		if c.Err != nil {
			errs++
		}
	})

	return entries, errs
}

// Errors returns the errors recorded below n.
func (n *Node) Errors() []error {
	var errs []error

	n.Walk(func(c *Node) {
		if c.Err != nil {
			errs = append(errs, c.Err)
		}
	})

	return errs
}

// Tree is the result of Collect.
type Tree struct {
	// Root is the node of the traversed directory itself.
	Root *Node
	// Truncated is set when a depth or entry limit cut the traversal short.
	Truncated bool
}

type collector struct {
	ctx       context.Context //nolint:containedctx // Scoped to one Collect call.
	opts      Options
	log       logging.Logger
	root      string
	entries   atomic.Int64
	truncated atomic.Bool
}

// Collect traverses path, which belongs to root, and returns the tree below it.
// The error is non-nil only when path itself cannot be listed; failures
// further down are recorded on the affected nodes.
func Collect(ctx context.Context, root, path string, opts Options) (*Tree, error) {
	c := &collector{
		ctx:  ctx,
		opts: opts,
		log:  opts.logger(),
		root: root,
	}

	node := &Node{Name: path}

	if info, err := os.Lstat(path); err == nil {
		e := entry.New(root, path, info)
		node.Entry = &e
	}

	children, err := c.list(path, Depth(path, root))
	if err != nil && children == nil {
		return nil, err
	}

	node.Children = children
	node.Err = err

	return &Tree{Root: node, Truncated: c.truncated.Load()}, nil
}

// list reads dir and visits its entries concurrently.
// A partial read returns the entries read so far together with the error.
func (c *collector) list(dir string, depth int) (map[string]*Node, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, &ListError{Path: dir, Err: err}
	}

	entries, err := os.ReadDir(dir)
	if err != nil && len(entries) == 0 {
		return nil, &ListError{Path: dir, Err: err}
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		children = make(map[string]*Node, len(entries))
	)

	for _, de := range entries {
		wg.Add(1)

		go func() {
			defer wg.Done()

			child := c.visit(filepath.Join(dir, de.Name()), depth+1)
			if child == nil {
				return
			}

			mu.Lock()
			children[child.Name] = child
			mu.Unlock()
		}()
	}

	wg.Wait()

	if err != nil {
		return children, &ListError{Path: dir, Err: err}
	}

	return children, nil
}

// visit stats path and, for directories, collects the subtree.
// It returns nil for pruned directories and for entries dropped by the entry limit.
func (c *collector) visit(path string, depth int) *Node {
	node := &Node{Name: filepath.Base(path)}

	if err := c.ctx.Err(); err != nil {
		node.Err = &StatError{Path: path, Err: err}

		return node
	}

	info, err := os.Lstat(path)
	if err != nil {
		node.Err = &StatError{Path: path, Err: err}

		return node
	}

	if info.IsDir() && c.opts.pruned(path) {
		c.log.Debugf("excluding directory: %s", filepath.ToSlash(path))

		return nil
	}

	if c.opts.MaxEntries > 0 && c.entries.Add(1) > c.opts.MaxEntries {
		c.truncated.Store(true)

		return nil
	}

	e := entry.New(c.root, path, info)
	node.Entry = &e

	if !info.IsDir() {
		return node
	}

	if c.opts.beyondDepth(depth) {
		c.log.Debugf("skipping directory (beyond depth %d): %s", c.opts.MaxDepth, path)
		c.truncated.Store(true)

		return node
	}

	node.Children, node.Err = c.list(path, depth)
	if node.Children == nil {
		node.Children = map[string]*Node{}
	}

	return node
}
