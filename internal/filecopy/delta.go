package filecopy

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/KilimcininKorOglu/pgarman/internal/pgtime"
)

// DirtyBlocks reports whether a given block number within a segment
// was recorded as changed by the WAL reader. The copier never imports
// the page map directly; the orchestrator supplies this as a closure
// over a *pagemap.Map for one file.
type DirtyBlocks func(blockInSegment uint32) bool

// pageLSN reads the page's LSN from the first 8 bytes of its header,
// matching the field's fixed position in the server's own page
// layout (pd_lsn is the first field of every page).
func pageLSN(page []byte) pgtime.LSN {
	return pgtime.LSN(binary.BigEndian.Uint64(page[0:8]))
}

// Delta copies only the blocks of srcPath that the backup must
// capture: those whose page LSN is at or past parentStartLSN, or
// that the WAL reader marked dirty via dirty. Untouched blocks are
// left out of the destination file entirely; the restorer fills them
// in from the parent backup.
func Delta(srcPath, dstPath string, mtime time.Time, parentStartLSN pgtime.LSN, dirty DirtyBlocks) (Result, error) {
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
	nBlocks := info.Size() / BlockSize

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return Result{}, fmt.Errorf("filecopy: creating %s: %w", filepath.Dir(dstPath), err)
	}
	dst, err := os.Create(dstPath)
	if err != nil {
		return Result{}, fmt.Errorf("filecopy: creating %s: %w", dstPath, err)
	}
	defer dst.Close()

	headerBuf := make([]byte, deltaHeaderSize)
	encodeDeltaHeader(headerBuf)
	written, err := dst.Write(headerBuf)
	if err != nil {
		return Result{}, fmt.Errorf("filecopy: writing delta header to %s: %w", dstPath, err)
	}
	totalWritten := int64(written)

	page := make([]byte, BlockSize)
	recordBuf := make([]byte, 4+BlockSize+4)
	for blockNo := int64(0); blockNo < nBlocks; blockNo++ {
		if _, err := io.ReadFull(src, page); err != nil {
			return Result{}, fmt.Errorf("filecopy: reading block %d of %s: %w", blockNo, srcPath, err)
		}

		emit := pageLSN(page) >= parentStartLSN || dirty(uint32(blockNo))
		if !emit {
			continue
		}

		binary.BigEndian.PutUint32(recordBuf[0:4], uint32(blockNo))
		copy(recordBuf[4:4+BlockSize], page)
		binary.BigEndian.PutUint32(recordBuf[4+BlockSize:], crc32.ChecksumIEEE(page))

		n, err := dst.Write(recordBuf)
		if err != nil {
			return Result{}, fmt.Errorf("filecopy: writing block %d to %s: %w", blockNo, dstPath, err)
		}
		totalWritten += int64(n)
	}

	terminator := make([]byte, 4)
	binary.BigEndian.PutUint32(terminator, terminatorBlockNo)
	n, err := dst.Write(terminator)
	if err != nil {
		return Result{}, fmt.Errorf("filecopy: writing terminator to %s: %w", dstPath, err)
	}
	totalWritten += int64(n)

	return Result{Size: info.Size(), WriteSize: totalWritten}, nil
}
