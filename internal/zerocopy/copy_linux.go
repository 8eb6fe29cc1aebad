//go:build linux

package zerocopy

import (
	"os"

	"golang.org/x/sys/unix"

	"ferrocp/pkg/helper/errors"
)

// platformCopy drives copy_file_range(2) in a loop-until-complete, advancing
// both files' offsets on partial progress, per spec §4.3's execution
// contract. ENOSYS, EXDEV and EINVAL are translated to
// errors.ErrZeroCopyUnsupported (via errors.ZeroCopyUnsupportedf) so the
// caller falls back to a buffered engine instead of failing the file.
func platformCopy(dst, src *os.File, size int64) (int64, error) {
	var total int64

	for total < size {
		n, err := unix.CopyFileRange(int(src.Fd()), nil, int(dst.Fd()), nil, int(size-total), 0)
		if err != nil {
			if isUnsupported(err) {
				return total, errors.ZeroCopyUnsupportedf("copy_file_range: %v", err)
			}
			return total, errors.IoTransientf("copy_file_range: %v", err)
		}
		if n == 0 {
			// Kernel reports no forward progress before size is reached;
			// treat as unsupported rather than spin.
			return total, errors.ZeroCopyUnsupportedf("copy_file_range made no progress")
		}
		total += int64(n)
	}

	return total, nil
}

func isUnsupported(err error) bool {
	switch err {
	case unix.ENOSYS, unix.EXDEV, unix.EINVAL:
		return true
	default:
		return false
	}
}
