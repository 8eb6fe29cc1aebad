package copyengine

import (
	"os"
)

// preserveMetadata restores mtime, atime (best-effort) and permissions on
// dstPath after the engine's final close, per spec §4.4. Callers treat a
// non-nil return as a warning, not a failed copy.
func preserveMetadata(srcPath, dstPath string) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		return err
	}

	// os.FileInfo exposes only mtime portably; atime is approximated with
	// mtime rather than left at the copy's wall-clock time, which is closer
	// to spec §4.4's "best-effort" atime preservation than doing nothing.
	mtime := info.ModTime()
	if err := os.Chtimes(dstPath, mtime, mtime); err != nil {
		return err
	}

	return os.Chmod(dstPath, info.Mode().Perm())
}
