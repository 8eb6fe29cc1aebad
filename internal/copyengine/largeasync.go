package copyengine

import (
	"context"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ferrocp/internal/bufpool"
	"ferrocp/internal/device"
	"ferrocp/internal/selector"
	"ferrocp/pkg/helper/errors"
	"ferrocp/pkg/helper/util"
)

// copyLargeAsync overlaps read and write via double buffering, per spec
// §4.4/§5: two buffers alternate between filling from the source and
// draining to the destination. The drain side processes chunks strictly in
// order, so buffer N+1's write never starts until buffer N's write call has
// returned, preserving source byte order at the destination.
func copyLargeAsync(ctx context.Context, req Request, choice selector.Choice, pool *bufpool.Pool, srcProfile, dstProfile device.Profile) Outcome {
	bufA, err := pool.Acquire(choice.BufferSize, dstProfile.Kind)
	if err != nil {
		return Outcome{Err: errors.OutOfMemoryf("acquire buffer A for %s: %v", req.DstPath, err)}
	}
	defer pool.Release(bufA)

	bufB, err := pool.Acquire(choice.BufferSize, dstProfile.Kind)
	if err != nil {
		return Outcome{Err: errors.OutOfMemoryf("acquire buffer B for %s: %v", req.DstPath, err)}
	}
	defer pool.Release(bufB)

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

		n, err := doubleBufferedCopy(ctx, dst, src, bufA.Bytes(), bufB.Bytes())
		bytesCopied = n
		if err != nil {
			return err
		}
		return dst.Sync()
	}, largeAsyncRetryOptions())

	if copyErr != nil {
		return Outcome{BytesCopied: bytesCopied, Err: errors.IoTransientf("large-async copy %s: %v", req.SrcPath, copyErr)}
	}

	elapsed := time.Since(start)
	rate := throughputMbps(bytesCopied, elapsed)
	bufA.Observe(rate, dstProfile.TheoreticalWriteMBPS)
	bufB.Observe(rate, dstProfile.TheoreticalWriteMBPS)

	return Outcome{BytesCopied: bytesCopied}
}

func largeAsyncRetryOptions() util.RetryOptions {
	return util.RetryOptions{
		MaxRetries:  len(retryBackoff),
		InitialWait: retryBackoff[0],
		MaxWait:     retryBackoff[len(retryBackoff)-1],
		Factor:      4.0,
		Retryable:   isTransient,
	}
}

// filledChunk is one buffer's worth of bytes read from the source, handed
// from the fill goroutine to the drain goroutine.
type filledChunk struct {
	buf []byte
	n   int
}

// doubleBufferedCopy fills one fixed buffer while the other drains,
// alternating between them. The handoff channel is unbuffered, so the
// filler suspends at the handoff point (spec §5's buffer-handoff
// suspension point) until the drainer claims the chunk; the drainer
// processes chunks strictly in the order they were filled.
func doubleBufferedCopy(ctx context.Context, dst io.Writer, src io.Reader, bufA, bufB []byte) (int64, error) {
	chunks := make(chan filledChunk)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(chunks)
		buffers := [2][]byte{bufA, bufB}
		idx := 0
		for {
			n, err := src.Read(buffers[idx])
			if n > 0 {
				select {
				case chunks <- filledChunk{buf: buffers[idx], n: n}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			idx = 1 - idx
		}
	})

	var total int64
	g.Go(func() error {
		for chunk := range chunks {
			written := 0
			for written < chunk.n {
				m, err := dst.Write(chunk.buf[written:chunk.n])
				if err != nil {
					return err
				}
				written += m
			}
			total += int64(chunk.n)

			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return total, err
	}
	return total, nil
}
