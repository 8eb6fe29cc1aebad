package util

import (
	"io"

	godigest "github.com/opencontainers/go-digest"

	"ferrocp/pkg/helper/errors"

	"github.com/cespare/xxhash/v2"
)

// CalculateDigest calculates a SHA256 digest of the given data.
// Returns a digest string in the format "sha256:<hex-digest>". ValidateDigest
// uses it to check data against an expected digest.
func CalculateDigest(data []byte) (string, error) {
	if data == nil {
		return "", errors.InvalidArgumentf("data cannot be nil")
	}

	return godigest.FromBytes(godigest.SHA256, data).String(), nil
}

// ValidateDigest validates that the provided digest matches the given data
func ValidateDigest(data []byte, expectedDigest string) (bool, error) {
	if data == nil {
		return false, errors.InvalidArgumentf("data cannot be nil")
	}

	if expectedDigest == "" {
		return false, errors.InvalidArgumentf("expected digest cannot be empty")
	}

	actualDigest, err := CalculateDigest(data)
	if err != nil {
		return false, errors.Wrap(err, "failed to calculate actual digest")
	}

	return actualDigest == expectedDigest, nil
}

// StreamingXXHash64 computes the 64-bit xxhash of r's contents without
// buffering the whole file in memory. Used by Verify mode to compare a
// freshly written destination against its source at copy-engine speed.
func StreamingXXHash64(r io.Reader) (uint64, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return 0, errors.Wrap(err, "failed to stream digest")
	}
	return h.Sum64(), nil
}
