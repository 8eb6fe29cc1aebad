//go:build !linux

package zerocopy

import (
	"os"

	"ferrocp/pkg/helper/errors"
)

// platformCopy has no kernel-mediated zero-copy primitive to call on this
// platform, so it always signals the caller to fall back.
func platformCopy(dst, src *os.File, size int64) (int64, error) {
	return 0, errors.ZeroCopyUnsupportedf("zero-copy not implemented on this platform")
}
