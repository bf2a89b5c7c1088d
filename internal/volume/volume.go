// Package volume reports capacity of the filesystem containing a path.
package volume

import (
	"errors"
	"fmt"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrUnsupported is returned by Statvfs on platforms without a statfs call.
var ErrUnsupported = errors.New("volume statistics not supported on this platform")

// Stats holds capacity metrics for one filesystem.
type Stats struct {
	// Path is the path the probe was called with.
	Path string `json:"path"            yaml:"path"`
	// ID identifies the filesystem; paths on the same volume share it.
	ID string `json:"id"              yaml:"id"`
	// BlockSize is the preferred I/O block size.
	BlockSize uint64 `json:"block_size"      yaml:"block_size"`
	// FragmentSize is the fundamental block size.
	FragmentSize uint64 `json:"fragment_size"   yaml:"fragment_size"`
	// TotalBytes is the size of the filesystem.
	TotalBytes uint64 `json:"total_bytes"     yaml:"total_bytes"`
	// FreeBytes is free space including reserved blocks.
	FreeBytes uint64 `json:"free_bytes"      yaml:"free_bytes"`
	// AvailableBytes is free space for unprivileged users.
	AvailableBytes uint64 `json:"available_bytes" yaml:"available_bytes"`
}

// UsedBytes is TotalBytes minus FreeBytes.
func (s Stats) UsedBytes() uint64 {
	if s.FreeBytes > s.TotalBytes {
		return 0
	}

	return s.TotalBytes - s.FreeBytes
}

// EffectiveSize is the space a file of the given size occupies, counted
// in whole blocks. It returns size unchanged when the block size is unknown.
func (s Stats) EffectiveSize(size uint64) uint64 {
	if s.BlockSize == 0 {
		return size
	}

	blocks := 1 + size/s.BlockSize

	return s.BlockSize * blocks
}

// ProbeError is a failed volume lookup.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probing volume of %q: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Probe looks up the volume containing path.
type Probe func(path string) (Stats, error)

// Cache memoizes a Probe per cleaned path. Failed lookups are not cached.
type Cache struct {
	probe Probe
	cache *lru.Cache[string, Stats]
}

// NewCache wraps probe with an LRU cache holding up to size entries.
func NewCache(probe Probe, size int) (*Cache, error) {
	if probe == nil {
		probe = Statvfs
	}

	cache, err := lru.New[string, Stats](size)
	if err != nil {
		return nil, fmt.Errorf("creating volume cache: %w", err)
	}

	return &Cache{probe: probe, cache: cache}, nil
}

// Stat returns the cached stats for path, probing on a miss.
func (c *Cache) Stat(path string) (Stats, error) {
	key := filepath.Clean(path)

	if stats, ok := c.cache.Get(key); ok {
		return stats, nil
	}

	stats, err := c.probe(key)
	if err != nil {
		return Stats{}, err
	}

	c.cache.Add(key, stats)

	return stats, nil
}

// Len is the number of cached entries.
func (c *Cache) Len() int {
	return c.cache.Len()
}
