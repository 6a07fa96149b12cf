package filecopy

import (
	"hash/crc32"
	"io"
)

// checksumWriter wraps a writer and accumulates a running CRC32 of
// everything written through it, the same shape as the teacher's
// native backup writer.
type checksumWriter struct {
	w        io.Writer
	checksum uint32
	written  int64
}

func newChecksumWriter(w io.Writer) *checksumWriter {
	return &checksumWriter{w: w}
}

func (cw *checksumWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if n > 0 {
		cw.checksum = crc32.Update(cw.checksum, crc32.IEEETable, p[:n])
		cw.written += int64(n)
	}
	return n, err
}
