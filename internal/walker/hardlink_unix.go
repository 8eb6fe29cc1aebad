//go:build unix

package walker

import (
	"os"
	"syscall"
)

// inodeOf extracts a file's (device, inode) pair for hardlink detection.
// ok is false when the platform's FileInfo.Sys() doesn't carry a
// *syscall.Stat_t, in which case PreserveHardlinks degrades to copying
// contents for that file.
func inodeOf(info os.FileInfo) (key inodeKey, ok bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return inodeKey{}, false
	}
	return inodeKey{dev: uint64(st.Dev), ino: st.Ino}, true
}
