// Package entry classifies filesystem entries and carries the metadata
// the traversal engines report for them.
package entry

import (
	"io/fs"
	"time"
)

// Traits is the type classification of a single filesystem entry.
// In practice at most one trait is set.
type Traits struct {
	File            bool `json:"file"             yaml:"file"`
	Directory       bool `json:"directory"        yaml:"directory"`
	BlockDevice     bool `json:"block_device"     yaml:"block_device"`
	CharacterDevice bool `json:"character_device" yaml:"character_device"`
	SymbolicLink    bool `json:"symbolic_link"    yaml:"symbolic_link"`
	FIFO            bool `json:"fifo"             yaml:"fifo"`
	Socket          bool `json:"socket"           yaml:"socket"`
}

// Classify derives the traits of an entry from its mode bits.
func Classify(mode fs.FileMode) Traits {
	return Traits{
		File:            mode.IsRegular(),
		Directory:       mode.IsDir(),
		BlockDevice:     mode&fs.ModeDevice != 0 && mode&fs.ModeCharDevice == 0,
		CharacterDevice: mode&fs.ModeDevice != 0 && mode&fs.ModeCharDevice != 0,
		SymbolicLink:    mode&fs.ModeSymlink != 0,
		FIFO:            mode&fs.ModeNamedPipe != 0,
		Socket:          mode&fs.ModeSocket != 0,
	}
}

// ClassifyInfo is Classify for a stat result. A nil info has no traits.
func ClassifyInfo(info fs.FileInfo) Traits {
	if info == nil {
		return Traits{}
	}

	return Classify(info.Mode())
}

// Names returns the names of the set traits.
func (t Traits) Names() []string {
	names := make([]string, 0, 1)

	for _, trait := range []struct {
		name string
		set  bool
	}{
		{"File", t.File},
		{"Directory", t.Directory},
		{"BlockDevice", t.BlockDevice},
		{"CharacterDevice", t.CharacterDevice},
		{"SymbolicLink", t.SymbolicLink},
		{"FIFO", t.FIFO},
		{"Socket", t.Socket},
	} {
		if trait.set {
			names = append(names, trait.name)
		}
	}

	return names
}

// Metadata is the subset of a stat result kept for an entry.
type Metadata struct {
	// Size is the size in bytes as reported by lstat.
	Size uint64 `json:"size"     yaml:"size"`
	// Mode holds the raw mode bits.
	Mode fs.FileMode `json:"mode"     yaml:"mode"`
	// ModTime is the modification time.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
	// IsDirectory mirrors Mode.IsDir.
	IsDirectory bool `json:"is_dir"   yaml:"is_dir"`
	// IsSymbolicLink is set for links; links are never followed.
	IsSymbolicLink bool `json:"is_link"  yaml:"is_link"`
}

// FileEntry is one successfully stat'd entry of a traversal.
type FileEntry struct {
	// Path is the entry path, joined onto the root it was found under.
	Path string `json:"path"     yaml:"path"`
	// Root is the traversal root the entry belongs to.
	Root string `json:"root"     yaml:"root"`
	// Metadata holds the stat result.
	Metadata Metadata `json:"metadata" yaml:"metadata"`
	// Traits is the classification of Metadata.Mode.
	Traits Traits `json:"traits"   yaml:"traits"`
}

// New builds a FileEntry from a stat result.
func New(root, path string, info fs.FileInfo) FileEntry {
	mode := info.Mode()

	size := info.Size()
	if size < 0 {
		size = 0
	}

	return FileEntry{
		Path: path,
		Root: root,
		Metadata: Metadata{
			Size:           uint64(size),
			Mode:           mode,
			ModTime:        info.ModTime(),
			IsDirectory:    mode.IsDir(),
			IsSymbolicLink: mode&fs.ModeSymlink != 0,
		},
		Traits: Classify(mode),
	}
}
