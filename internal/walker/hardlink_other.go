//go:build !unix

package walker

import "os"

// inodeOf has no portable inode identity on this platform, so
// PreserveHardlinks always degrades to copying contents.
func inodeOf(info os.FileInfo) (key inodeKey, ok bool) {
	return inodeKey{}, false
}
