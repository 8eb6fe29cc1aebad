package copyengine

import (
	"context"
	"os"

	"ferrocp/pkg/helper/errors"
	"ferrocp/pkg/helper/util"
)

// copyMicro reads the whole file into memory and writes it in one syscall,
// per spec §4.4: the micro engine skips buffering entirely below
// micro_threshold, where read/write overhead dominates transfer time.
func copyMicro(ctx context.Context, req Request) Outcome {
	var data []byte
	readErr := util.RetryWithContext(ctx, func() error {
		d, err := os.ReadFile(req.SrcPath)
		if err != nil {
			return err
		}
		data = d
		return nil
	}, microRetryOptions())
	if readErr != nil {
		return Outcome{Err: errors.IoTransientf("micro copy read %s: %v", req.SrcPath, readErr)}
	}

	writeErr := util.RetryWithContext(ctx, func() error {
		return os.WriteFile(req.DstPath, data, 0o644)
	}, microRetryOptions())
	if writeErr != nil {
		return Outcome{Err: errors.IoTransientf("micro copy write %s: %v", req.DstPath, writeErr)}
	}

	return Outcome{BytesCopied: int64(len(data))}
}

// microRetryOptions implements spec §4.4's retry schedule: 3 retries at
// 50ms/200ms/500ms, applied to every error except permission-denied and
// not-found.
func microRetryOptions() util.RetryOptions {
	return util.RetryOptions{
		MaxRetries:  len(retryBackoff),
		InitialWait: retryBackoff[0],
		MaxWait:     retryBackoff[len(retryBackoff)-1],
		Factor:      4.0,
		Retryable:   isTransient,
	}
}

func isTransient(err error) bool {
	return !errors.Is(err, os.ErrPermission) && !errors.Is(err, os.ErrNotExist)
}
