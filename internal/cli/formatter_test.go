package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/dirspace/internal/aggregate"
	"github.com/idelchi/dirspace/internal/dirspace"
	"github.com/idelchi/dirspace/internal/volume"
)

func TestPrintTable_RootsAndVolumes(t *testing.T) {
	result := &dirspace.Result{
		Report: aggregate.Report{
			Totals:     map[string]uint64{".": 3072},
			Roots:      map[string]uint64{"/a": 1024, "/b": 2048},
			TopDirs:    []aggregate.DirStat{{Path: ".", Size: 3072}},
			FileCount:  2,
			TotalBytes: 3072,
			ErrorCount: 1,
			Truncated:  true,
			Volumes: map[string]volume.Stats{
				"/a": {BlockSize: 4096, TotalBytes: 1 << 30, FreeBytes: 1 << 29, AvailableBytes: 1 << 28},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, PrintTable(result, &buf))

	out := buf.String()
	assert.Contains(t, out, "Roots:")
	assert.Contains(t, out, "'/b'")
	assert.Contains(t, out, "Volumes:")
	assert.Contains(t, out, "512 MiB used of 1.0 GiB, 256 MiB available (block size 4.0 KiB)")
	assert.Contains(t, out, "Errors:")
	assert.Contains(t, out, "Truncated:")
	assert.Contains(t, out, "3.0 KiB (3072 bytes)")
}

func TestPrintTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintTable(&dirspace.Result{}, &buf))

	assert.Contains(t, buf.String(), "Total size:")
	assert.NotContains(t, buf.String(), "Roots:")
}

func TestPrintTable_FilesExtensionsAndSameSize(t *testing.T) {
	result := &dirspace.Result{
		Report: aggregate.Report{
			TopFiles: []aggregate.FileStat{{Path: "./a.go", Size: 10}, {Path: "./sub/b.md", Size: 30}},
			ExtStats: map[string]aggregate.ExtStat{
				".go": {Count: 2, Size: 20},
				".md": {Count: 1, Size: 30},
				"":    {Count: 1, Size: 5},
			},
			SameSize:   []aggregate.SizeGroup{{Size: 10, Files: []string{"./a.go", "./c.go"}}},
			TotalBytes: 55,
			TopN:       2,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, PrintTable(result, &buf))

	out := buf.String()
	assert.Contains(t, out, "Top extensions:")
	assert.Contains(t, out, "1) .md:")
	assert.Contains(t, out, "2) .go:")
	assert.NotContains(t, out, `"":`, "only the top extensions are listed")
	assert.Contains(t, out, "Top files:")
	assert.Contains(t, out, "1) './sub/b.md'")
	assert.Contains(t, out, "Same size:")
	assert.Contains(t, out, "'./c.go'")
}
