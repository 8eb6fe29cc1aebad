// Package zerocopy decides whether a file copy can use a kernel-mediated
// zero-copy syscall and invokes it, per spec §4.3.
package zerocopy

import (
	"os"

	"ferrocp/internal/device"
)

// zerocopyThreshold is the default minimum file size eligible for
// zero-copy, per spec §4.4.
const zerocopyThreshold = 1024 * 1024

// filesystemAllowList restricts zero-copy to filesystems known to support
// copy_file_range/sendfile semantics correctly; anything else is excluded
// even if the device profile claims zero-copy support.
var filesystemAllowList = map[string]bool{
	"ext4": true, "xfs": true, "btrfs": true, "apfs": true, "ntfs": true,
}

// Preconditions reports whether a file copy from src to dst is eligible for
// the zero-copy path, per spec §4.3: both profiles must support zero-copy,
// compression must be off, the file must meet the size threshold, the
// filesystem must be allow-listed, and the source must be a regular file.
func Preconditions(src, dst device.Profile, compress bool, sizeBytes int64, srcIsRegular bool) bool {
	if !src.SupportsZeroCopy || !dst.SupportsZeroCopy {
		return false
	}
	if compress {
		return false
	}
	if sizeBytes < zerocopyThreshold {
		return false
	}
	if !srcIsRegular {
		return false
	}
	if !filesystemAllowList[src.FilesystemName] || !filesystemAllowList[dst.FilesystemName] {
		return false
	}
	return true
}

// Threshold returns the minimum file size eligible for zero-copy.
func Threshold() int64 { return zerocopyThreshold }

// Copy attempts a zero-copy transfer of size bytes from src to dst,
// starting at each file's current offset. On success it returns the number
// of bytes transferred and a nil error. If the kernel rejects the zero-copy
// syscall (ENOSYS, EXDEV, EINVAL or platform-equivalent), it returns
// an error wrapping errors.ErrZeroCopyUnsupported, with the underlying
// cause in its message, so the caller can fall back
// to a buffered engine.
func Copy(dst, src *os.File, size int64) (int64, error) {
	return platformCopy(dst, src, size)
}
