//go:build !linux

package volume

// Statvfs is not available on this platform.
func Statvfs(path string) (Stats, error) {
	return Stats{}, &ProbeError{Path: path, Err: ErrUnsupported}
}
