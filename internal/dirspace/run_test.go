package dirspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/dirspace/internal/aggregate"
	"github.com/idelchi/dirspace/internal/logging"
	"github.com/idelchi/dirspace/internal/volume"
	"github.com/idelchi/dirspace/internal/walk"
)

// fixture creates /a.txt (10 bytes) and /sub/b.txt (20 bytes).
func fixture(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), make([]byte, 10), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), make([]byte, 20), 0o644))

	return root
}

func TestRun_Engines(t *testing.T) {
	for _, engine := range Engines {
		t.Run(engine, func(t *testing.T) {
			root := fixture(t)

			result, err := Run(context.Background(), Options{Paths: []string{root}, Engine: engine}, nil)
			require.NoError(t, err)

			assert.Equal(t, map[string]uint64{".": 30, "./sub": 20}, result.Totals)
			assert.Equal(t, int64(2), result.FileCount)
			assert.Equal(t, uint64(30), result.TotalBytes)
			assert.Zero(t, result.ErrorCount)
			assert.False(t, result.Truncated)
			assert.Equal(t, map[string]uint64{root: 30}, result.Roots)

			if engine == EngineTree {
				require.Contains(t, result.Trees, root)
				entries, _ := result.Trees[root].Root.Count()
				assert.Equal(t, 3, entries)
			} else {
				assert.Nil(t, result.Trees)
			}
		})
	}
}

func TestRun_MissingRoot(t *testing.T) {
	for _, engine := range Engines {
		t.Run(engine, func(t *testing.T) {
			var logs bytes.Buffer

			good := fixture(t)
			missing := filepath.Join(t.TempDir(), "missing")

			result, err := Run(context.Background(), Options{
				Paths:  []string{good, missing},
				Engine: engine,
				Logger: logging.NewConsoleTo(&logs, false),
			}, nil)
			require.Error(t, err)
			require.ErrorIs(t, err, os.ErrNotExist)

			require.NotNil(t, result)
			assert.Equal(t, uint64(30), result.TotalBytes)
			assert.Equal(t, int64(1), result.ErrorCount)
			assert.Contains(t, logs.String(), "[error]: ")
			assert.Contains(t, logs.String(), missing)
		})
	}
}

func TestRun_Excludes(t *testing.T) {
	root := fixture(t)

	result, err := Run(context.Background(), Options{Paths: []string{root}, Excludes: []string{`.*/sub/.*`}}, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]uint64{".": 10}, result.Totals)
}

func TestRun_ExcludedDirectoryIsPruned(t *testing.T) {
	for _, engine := range Engines {
		t.Run(engine, func(t *testing.T) {
			root := fixture(t)
			require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "objects", "pack"), make([]byte, 100), 0o644))

			var logs bytes.Buffer

			result, err := Run(context.Background(), Options{
				Paths:    []string{root},
				Engine:   engine,
				Excludes: []string{`.*\.git/.*`},
				Logger:   logging.NewConsoleTo(&logs, true),
			}, nil)
			require.NoError(t, err)

			assert.Equal(t, map[string]uint64{".": 30, "./sub": 20}, result.Totals)
			assert.Contains(t, logs.String(), "excluding directory: "+filepath.ToSlash(filepath.Join(root, ".git")))
			assert.NotContains(t, logs.String(), "objects")

			if engine == EngineTree {
				assert.NotContains(t, result.Trees[root].Root.Children, ".git")
			}
		})
	}
}

func TestRun_Extensions(t *testing.T) {
	root := fixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "c.log"), make([]byte, 5), 0o644))

	tests := map[string]struct {
		extensions []string
		want       map[string]uint64
	}{
		"include":         {[]string{".txt"}, map[string]uint64{".": 30, "./sub": 20}},
		"exclude":         {[]string{"!.txt"}, map[string]uint64{".": 5, "./sub": 5}},
		"quoted":          {[]string{"'.log'"}, map[string]uint64{".": 5, "./sub": 5}},
		"exclude wins":    {[]string{".txt", "!b.txt"}, map[string]uint64{".": 10}},
		"no filter":       {nil, map[string]uint64{".": 35, "./sub": 25}},
		"nothing matches": {[]string{".go"}, map[string]uint64{}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			result, err := Run(context.Background(), Options{Paths: []string{root}, Extensions: tt.extensions}, nil)
			require.NoError(t, err)

			assert.Equal(t, tt.want, result.Totals)
		})
	}
}

func TestRun_MinSize(t *testing.T) {
	root := fixture(t)

	result, err := Run(context.Background(), Options{Paths: []string{root}, MinSize: 11}, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]uint64{".": 20, "./sub": 20}, result.Totals)
	assert.Equal(t, int64(1), result.FileCount)
}

func TestRun_TopFilesAndSameSize(t *testing.T) {
	root := fixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "twin.txt"), make([]byte, 10), 0o644))

	result, err := Run(context.Background(), Options{Paths: []string{root}, TopN: 2, SameSize: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, []aggregate.FileStat{
		{Path: "./a.txt", Size: 10},
		{Path: "./sub/b.txt", Size: 20},
	}, result.TopFiles)
	assert.Equal(t, []aggregate.SizeGroup{
		{Size: 10, Files: []string{"./a.txt", "./sub/twin.txt"}},
	}, result.SameSize)
	assert.Equal(t, aggregate.ExtStat{Count: 3, Size: 40}, result.ExtStats[".txt"])
}

func TestRun_DuplicateRoots(t *testing.T) {
	for _, engine := range Engines {
		t.Run(engine, func(t *testing.T) {
			root := fixture(t)

			var logs bytes.Buffer

			result, err := Run(context.Background(), Options{
				Paths:  []string{root, root + string(filepath.Separator), filepath.Join(root, "sub")},
				Engine: engine,
				Logger: logging.NewConsoleTo(&logs, false),
			}, nil)
			require.NoError(t, err)

			assert.Equal(t, map[string]uint64{".": 30, "./sub": 20}, result.Totals)
			assert.Equal(t, map[string]uint64{root: 30}, result.Roots)
			assert.Equal(t, int64(2), result.FileCount)
			assert.Contains(t, logs.String(), "already covered by "+root)
		})
	}
}

func TestUniqueRoots(t *testing.T) {
	base := t.TempDir()
	a := filepath.Join(base, "a")
	ab := filepath.Join(base, "ab")

	got := uniqueRoots([]string{ab, a + string(filepath.Separator), filepath.Join(a, "x", ".."), filepath.Join(a, "y")}, logging.Discard{})

	assert.Equal(t, []string{a, ab}, got)
}

func TestRun_RunID(t *testing.T) {
	for _, engine := range Engines {
		t.Run(engine, func(t *testing.T) {
			result, err := Run(context.Background(), Options{Paths: []string{fixture(t)}, Engine: engine}, nil)
			require.NoError(t, err)

			_, err = uuid.Parse(result.RunID)
			require.NoError(t, err)
		})
	}
}

func TestErrPath(t *testing.T) {
	assert.Equal(t, "/x", errPath(&walk.ListError{Path: "/x", Err: os.ErrPermission}))
	assert.Equal(t, "/y", errPath(fmt.Errorf("wrapped: %w", &walk.StatError{Path: "/y", Err: os.ErrNotExist})))
	assert.Empty(t, errPath(errors.New("plain")))
}

func TestRun_InvalidExclude(t *testing.T) {
	_, err := Run(context.Background(), Options{Paths: []string{t.TempDir()}, Excludes: []string{"("}}, nil)
	require.Error(t, err)
}

func TestRun_UnknownEngine(t *testing.T) {
	_, err := Run(context.Background(), Options{Paths: []string{t.TempDir()}, Engine: "bogus"}, nil)
	require.ErrorContains(t, err, "unknown engine")
}

func TestRun_Depth(t *testing.T) {
	root := fixture(t)

	result, err := Run(context.Background(), Options{Paths: []string{root}, Depth: 1}, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]uint64{".": 10}, result.Totals)
	assert.True(t, result.Truncated)
}

func TestRun_BlocksAndVolume(t *testing.T) {
	root := fixture(t)

	calls := 0
	probe := func(path string) (volume.Stats, error) {
		calls++

		return volume.Stats{Path: path, ID: "test", BlockSize: 4096, TotalBytes: 1 << 20}, nil
	}

	result, err := Run(context.Background(), Options{
		Paths:  []string{root, root + string(filepath.Separator)},
		Blocks: true,
		Volume: true,
		Probe:  probe,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "identical roots are probed once")
	assert.Equal(t, uint64(2*4096), result.Totals["."])
	require.Contains(t, result.Volumes, root)
	assert.Equal(t, "test", result.Volumes[root].ID)
}

func TestRun_ProbeFailure(t *testing.T) {
	root := fixture(t)

	probe := func(path string) (volume.Stats, error) {
		return volume.Stats{}, &volume.ProbeError{Path: path, Err: errors.New("boom")}
	}

	result, err := Run(context.Background(), Options{Paths: []string{root}, Volume: true, Probe: probe}, nil)
	require.NoError(t, err)

	assert.Empty(t, result.Volumes)
	assert.Equal(t, int64(1), result.ErrorCount)
	assert.Equal(t, uint64(30), result.TotalBytes)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Run(ctx, Options{Paths: []string{fixture(t)}}, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Zero(t, result.FileCount)
}
