// Package filecopy copies a single relation segment or plain file out
// of a live data directory into a backup's database/ subtree, either
// whole (verbatim) or as a sparse set of changed blocks (delta).
package filecopy

import (
	"encoding/binary"
	"fmt"
)

// BlockSize is the server's page size in bytes. The engine refuses to
// operate against a server built with a different block size; that
// check lives in the server protocol driver, not here.
const BlockSize = 8192

// deltaMagic identifies a delta file so the restorer never mistakes
// one for a verbatim copy of a relation segment.
var deltaMagic = [4]byte{'D', 'E', 'L', 'T'}

// deltaVersion is bumped if the on-disk delta layout ever changes.
const deltaVersion uint32 = 1

// deltaHeaderSize is the fixed size of the header the restorer reads
// before the first block record.
const deltaHeaderSize = 4 + 4 + 4 // magic + blcksz + version

// terminatorBlockNo marks the end of a delta file's block records.
const terminatorBlockNo uint32 = 0xFFFFFFFF

func encodeDeltaHeader(buf []byte) {
	copy(buf[0:4], deltaMagic[:])
	binary.BigEndian.PutUint32(buf[4:8], uint32(BlockSize))
	binary.BigEndian.PutUint32(buf[8:12], deltaVersion)
}

func decodeDeltaHeader(buf []byte) (blcksz uint32, version uint32, err error) {
	if len(buf) < deltaHeaderSize {
		return 0, 0, fmt.Errorf("filecopy: short delta header (%d bytes)", len(buf))
	}
	if [4]byte(buf[0:4]) != deltaMagic {
		return 0, 0, fmt.Errorf("filecopy: bad delta file magic %q", buf[0:4])
	}
	blcksz = binary.BigEndian.Uint32(buf[4:8])
	version = binary.BigEndian.Uint32(buf[8:12])
	return blcksz, version, nil
}
