package filecopy

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// DeltaReader iterates the block records of a delta file in ascending
// blockno order, the same order Delta wrote them in.
type DeltaReader struct {
	f    *os.File
	r    *bufio.Reader
	done bool
}

// OpenDeltaFile opens path and validates its header.
func OpenDeltaFile(path string) (*DeltaReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("filecopy: opening delta file %s: %w", path, err)
	}
	r := bufio.NewReader(f)

	header := make([]byte, deltaHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		f.Close()
		return nil, fmt.Errorf("filecopy: reading delta header of %s: %w", path, err)
	}
	blcksz, _, err := decodeDeltaHeader(header)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("filecopy: %s: %w", path, err)
	}
	if blcksz != BlockSize {
		f.Close()
		return nil, fmt.Errorf("filecopy: %s: block size %d does not match engine block size %d", path, blcksz, BlockSize)
	}

	return &DeltaReader{f: f, r: r}, nil
}

// Close releases the underlying file.
func (d *DeltaReader) Close() error {
	return d.f.Close()
}

// Next returns the next (blockNo, page) pair, or ok=false once the
// terminator record has been consumed. A checksum mismatch is a fatal
// error, matching the reader's refusal to silently skip corruption.
func (d *DeltaReader) Next() (blockNo uint32, page []byte, ok bool, err error) {
	if d.done {
		return 0, nil, false, nil
	}

	blockNoBuf := make([]byte, 4)
	if _, err := io.ReadFull(d.r, blockNoBuf); err != nil {
		return 0, nil, false, fmt.Errorf("filecopy: reading block number: %w", err)
	}
	blockNo = binary.BigEndian.Uint32(blockNoBuf)
	if blockNo == terminatorBlockNo {
		d.done = true
		return 0, nil, false, nil
	}

	page = make([]byte, BlockSize)
	if _, err := io.ReadFull(d.r, page); err != nil {
		return 0, nil, false, fmt.Errorf("filecopy: reading page for block %d: %w", blockNo, err)
	}

	checksumBuf := make([]byte, 4)
	if _, err := io.ReadFull(d.r, checksumBuf); err != nil {
		return 0, nil, false, fmt.Errorf("filecopy: reading checksum for block %d: %w", blockNo, err)
	}
	want := binary.BigEndian.Uint32(checksumBuf)
	if got := crc32.ChecksumIEEE(page); got != want {
		return 0, nil, false, fmt.Errorf("filecopy: block %d failed checksum verification", blockNo)
	}

	return blockNo, page, true, nil
}
