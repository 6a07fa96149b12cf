package filecopy

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Skipped is the write-size sentinel recorded for a file that vanished
// between the directory scan and the copy step. It is distinct from
// zero, which is the write size of an empty file that was actually
// copied.
const Skipped int64 = -1

// Result records what actually happened when a file was copied.
type Result struct {
	// Size is the source file's size at the moment it was opened for copying.
	Size int64
	// CRC32 is populated for verbatim copies; zero for delta copies,
	// which are validated block by block instead.
	CRC uint32
	// WriteSize is bytes actually written to the destination, or Skipped.
	WriteSize int64
}

// Verbatim copies srcPath to dstPath byte for byte, recording its size
// and CRC32. A source file that disappeared after the scan (ENOENT) is
// reported as a skip, not an error — the file was legitimately dropped
// between listing the directory and copying it.
func Verbatim(srcPath, dstPath string, mtime time.Time) (Result, error) {
	if err := WaitOutSameSecond(mtime); err != nil {
		return Result{}, err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{WriteSize: Skipped}, nil
		}
		return Result{}, fmt.Errorf("filecopy: opening %s: %w", srcPath, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("filecopy: stat %s: %w", srcPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return Result{}, fmt.Errorf("filecopy: creating %s: %w", filepath.Dir(dstPath), err)
	}
	dst, err := os.Create(dstPath)
	if err != nil {
		return Result{}, fmt.Errorf("filecopy: creating %s: %w", dstPath, err)
	}
	defer dst.Close()

	cw := newChecksumWriter(dst)
	if _, err := io.Copy(cw, src); err != nil {
		return Result{}, fmt.Errorf("filecopy: copying %s: %w", srcPath, err)
	}

	return Result{Size: info.Size(), CRC: cw.checksum, WriteSize: cw.written}, nil
}
