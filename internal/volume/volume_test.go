package volume

import (
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_EffectiveSize(t *testing.T) {
	s := Stats{BlockSize: 4096}

	assert.Equal(t, uint64(4096), s.EffectiveSize(0))
	assert.Equal(t, uint64(4096), s.EffectiveSize(10))
	assert.Equal(t, uint64(8192), s.EffectiveSize(4096))
	assert.Equal(t, uint64(8192), s.EffectiveSize(5000))

	assert.Equal(t, uint64(10), Stats{}.EffectiveSize(10))
}

func TestStats_UsedBytes(t *testing.T) {
	assert.Equal(t, uint64(70), Stats{TotalBytes: 100, FreeBytes: 30}.UsedBytes())
	assert.Equal(t, uint64(0), Stats{TotalBytes: 10, FreeBytes: 30}.UsedBytes())
}

func TestStatvfs(t *testing.T) {
	if runtime.GOOS != "linux" {
		_, err := Statvfs(t.TempDir())
		require.ErrorIs(t, err, ErrUnsupported)

		return
	}

	stats, err := Statvfs(t.TempDir())
	require.NoError(t, err)

	assert.NotZero(t, stats.BlockSize)
	assert.NotZero(t, stats.TotalBytes)
	assert.NotEmpty(t, stats.ID)
	assert.LessOrEqual(t, stats.AvailableBytes, stats.TotalBytes)
}

func TestStatvfs_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	_, err := Statvfs(missing)
	require.Error(t, err)

	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, missing, probeErr.Path)
}

func TestCache(t *testing.T) {
	calls := 0
	probe := func(path string) (Stats, error) {
		calls++
		if path == "/broken" {
			return Stats{}, &ProbeError{Path: path, Err: errors.New("boom")}
		}

		return Stats{Path: path, BlockSize: 512}, nil
	}

	cache, err := NewCache(probe, 2)
	require.NoError(t, err)

	s, err := cache.Stat("/data/")
	require.NoError(t, err)
	assert.Equal(t, "/data", s.Path)

	_, err = cache.Stat("/data")
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second lookup should be served from the cache")

	_, err = cache.Stat("/broken")
	require.Error(t, err)
	_, err = cache.Stat("/broken")
	require.Error(t, err)
	assert.Equal(t, 3, calls, "failures must not be cached")
	assert.Equal(t, 1, cache.Len())
}

func TestNewCache_InvalidSize(t *testing.T) {
	_, err := NewCache(nil, 0)
	require.Error(t, err)
}
