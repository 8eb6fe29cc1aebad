package copyengine

import (
	"context"
	"os"

	"ferrocp/internal/zerocopy"
	"ferrocp/pkg/helper/errors"
)

// copyZeroCopy drives the platform zero-copy primitive for the whole file,
// per spec §4.3. Callers must have already verified zerocopy.Preconditions
// before selecting this engine; copyZeroCopy only opens the files and
// invokes the syscall. An ErrZeroCopyUnsupported result is expected and
// non-fatal: Execute falls back to LargeAsync when it sees one.
func copyZeroCopy(ctx context.Context, req Request) Outcome {
	src, err := os.Open(req.SrcPath)
	if err != nil {
		return Outcome{Err: errors.NotFoundf("open source %s: %v", req.SrcPath, err)}
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return Outcome{Err: errors.IoFatalf("stat source %s: %v", req.SrcPath, err)}
	}

	dst, err := os.OpenFile(req.DstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return Outcome{Err: errors.IoFatalf("open destination %s: %v", req.DstPath, err)}
	}
	defer dst.Close()

	n, err := zerocopy.Copy(dst, src, info.Size())
	if err != nil {
		return Outcome{BytesCopied: n, Err: err}
	}

	if ctx.Err() != nil {
		return Outcome{BytesCopied: n, Err: errors.Cancelledf("zero-copy of %s interrupted: %v", req.SrcPath, ctx.Err())}
	}

	return Outcome{BytesCopied: n, ZeroCopyUsed: true}
}
