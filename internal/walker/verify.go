package walker

import (
	"os"

	"ferrocp/pkg/helper/errors"
	"ferrocp/pkg/helper/util"
)

// ErrMismatch is returned by verifyFile when the source and destination
// streaming hashes disagree, per spec §6's Verify mode and scenario 6.
var ErrMismatch = errors.New("content mismatch")

// verifyFile implements mode=Verify: it reads both files and compares a
// streaming 64-bit hash without writing anything. A size mismatch is
// reported without hashing either file.
func verifyFile(srcPath, dstPath string) error {
	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return errors.NotFoundf("stat source %s: %v", srcPath, err)
	}
	dstInfo, err := os.Stat(dstPath)
	if err != nil {
		return errors.NotFoundf("stat destination %s: %v", dstPath, err)
	}
	if srcInfo.Size() != dstInfo.Size() {
		return errors.Wrap(ErrMismatch, "size differs: src=%d dst=%d", srcInfo.Size(), dstInfo.Size())
	}

	srcHash, err := hashFile(srcPath)
	if err != nil {
		return err
	}
	dstHash, err := hashFile(dstPath)
	if err != nil {
		return err
	}
	if srcHash != dstHash {
		return errors.Wrap(ErrMismatch, "hash differs for %s", srcPath)
	}
	return nil
}

func hashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.IoFatalf("open %s for verify: %v", path, err)
	}
	defer f.Close()

	h, err := util.StreamingXXHash64(f)
	if err != nil {
		return 0, errors.Wrap(err, "hash %s", path)
	}
	return h, nil
}
