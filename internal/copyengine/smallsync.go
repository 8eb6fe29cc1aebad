package copyengine

import (
	"context"
	"io"
	"os"
	"time"

	"ferrocp/internal/bufpool"
	"ferrocp/internal/device"
	"ferrocp/internal/selector"
	"ferrocp/pkg/helper/errors"
	"ferrocp/pkg/helper/util"
)

// copySmallSync performs a single synchronous read/write loop through a
// pooled buffer, per spec §4.4: small enough that overlapping read and write
// buys nothing, but large enough to benefit from avoiding the micro path's
// whole-file materialization.
func copySmallSync(ctx context.Context, req Request, choice selector.Choice, pool *bufpool.Pool, srcProfile, dstProfile device.Profile) Outcome {
	buf, err := pool.Acquire(choice.BufferSize, dstProfile.Kind)
	if err != nil {
		return Outcome{Err: errors.OutOfMemoryf("acquire buffer for %s: %v", req.DstPath, err)}
	}
	defer pool.Release(buf)

	var bytesCopied int64
	start := time.Now()

	copyErr := util.RetryWithContext(ctx, func() error {
		bytesCopied = 0
		src, err := os.Open(req.SrcPath)
		if err != nil {
			return err
		}
		defer src.Close()

		dst, err := os.OpenFile(req.DstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		defer dst.Close()

		n, err := io.CopyBuffer(dst, src, buf.Bytes())
		bytesCopied = n
		if err != nil {
			return err
		}
		return dst.Sync()
	}, smallSyncRetryOptions())

	if copyErr != nil {
		return Outcome{BytesCopied: bytesCopied, Err: errors.IoTransientf("small-sync copy %s: %v", req.SrcPath, copyErr)}
	}

	elapsed := time.Since(start)
	buf.Observe(throughputMbps(bytesCopied, elapsed), dstProfile.TheoreticalWriteMBPS)

	return Outcome{BytesCopied: bytesCopied}
}

func smallSyncRetryOptions() util.RetryOptions {
	return util.RetryOptions{
		MaxRetries:  len(retryBackoff),
		InitialWait: retryBackoff[0],
		MaxWait:     retryBackoff[len(retryBackoff)-1],
		Factor:      4.0,
		Retryable:   isTransient,
	}
}

func throughputMbps(bytes int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return (float64(bytes) / (1024 * 1024)) / elapsed.Seconds()
}
