//go:build linux

package volume

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Statvfs probes the filesystem containing path.
func Statvfs(path string) (Stats, error) {
	var st unix.Statfs_t

	if err := unix.Statfs(path, &st); err != nil {
		return Stats{}, &ProbeError{Path: path, Err: err}
	}

	bsize := uint64(st.Bsize)   //nolint:gosec // Block sizes are positive
	frsize := uint64(st.Frsize) //nolint:gosec // Fragment sizes are positive

	if frsize == 0 {
		frsize = bsize
	}

	return Stats{
		Path:           path,
		ID:             fmt.Sprintf("%x:%x", uint32(st.Fsid.Val[0]), uint32(st.Fsid.Val[1])),
		BlockSize:      bsize,
		FragmentSize:   frsize,
		TotalBytes:     st.Blocks * frsize,
		FreeBytes:      st.Bfree * bsize,
		AvailableBytes: st.Bavail * bsize,
	}, nil
}
