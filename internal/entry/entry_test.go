package entry

import (
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		mode fs.FileMode
		want Traits
	}{
		{"regular", 0o644, Traits{File: true}},
		{"directory", fs.ModeDir | 0o755, Traits{Directory: true}},
		{"symlink", fs.ModeSymlink | 0o777, Traits{SymbolicLink: true}},
		{"block device", fs.ModeDevice | 0o660, Traits{BlockDevice: true}},
		{"character device", fs.ModeDevice | fs.ModeCharDevice | 0o620, Traits{CharacterDevice: true}},
		{"fifo", fs.ModeNamedPipe | 0o600, Traits{FIFO: true}},
		{"socket", fs.ModeSocket | 0o755, Traits{Socket: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.mode)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Classify(tt.mode), "classification must be idempotent")
			assert.Len(t, got.Names(), 1)
		})
	}
}

func TestClassifyInfo_Nil(t *testing.T) {
	assert.Equal(t, Traits{}, ClassifyInfo(nil))
	assert.Empty(t, Traits{}.Names())
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("0123456789"), 0o644))
	require.NoError(t, os.Symlink(file, filepath.Join(dir, "link")))

	info, err := os.Lstat(file)
	require.NoError(t, err)

	e := New(dir, file, info)
	assert.Equal(t, file, e.Path)
	assert.Equal(t, dir, e.Root)
	assert.Equal(t, uint64(10), e.Metadata.Size)
	assert.False(t, e.Metadata.IsDirectory)
	assert.Equal(t, Traits{File: true}, e.Traits)
	assert.Equal(t, []string{"File"}, e.Traits.Names())

	info, err = os.Lstat(filepath.Join(dir, "link"))
	require.NoError(t, err)

	link := New(dir, filepath.Join(dir, "link"), info)
	assert.True(t, link.Metadata.IsSymbolicLink)
	assert.True(t, link.Traits.SymbolicLink)
	assert.False(t, link.Traits.File)

	info, err = os.Lstat(dir)
	require.NoError(t, err)
	assert.True(t, New(dir, dir, info).Traits.Directory)
}

func TestClassifyInfo_Socket(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "s.sock")

	l, err := net.Listen("unix", sock)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	defer l.Close()

	info, err := os.Lstat(sock)
	require.NoError(t, err)
	assert.Equal(t, Traits{Socket: true}, ClassifyInfo(info))
}
