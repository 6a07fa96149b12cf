package walparser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/KilimcininKorOglu/pgarman/internal/pgtime"
	"github.com/KilimcininKorOglu/pgarman/internal/relfile"
)

// ErrMissingSegment is wrapped into the error returned by Run when a
// segment the reader needs to continue is absent from the archive.
var ErrMissingSegment = errors.New("walparser: WAL segment missing from archive")

// ErrCorruptRecord is wrapped into the error returned by Run when a
// record's body fails its CRC check within the requested range.
var ErrCorruptRecord = errors.New("walparser: record failed CRC check")

// segmentStream presents a sequence of WAL segment files under
// archivePath as one continuous byte stream, loading the next segment
// on demand as a record's body crosses a segment boundary.
type segmentStream struct {
	archivePath string
	timeline    pgtime.Timeline
	segNo       uint64
	buf         []byte
	pos         int
}

func newSegmentStream(archivePath string, timeline pgtime.Timeline, start pgtime.LSN) (*segmentStream, error) {
	s := &segmentStream{archivePath: archivePath, timeline: timeline, segNo: start.SegmentNumber()}
	if err := s.loadSegment(); err != nil {
		return nil, err
	}
	s.pos = int(start.SegmentOffset())
	if s.pos > len(s.buf) {
		return nil, fmt.Errorf("walparser: start LSN %s is past the end of its segment", start)
	}
	return s, nil
}

func (s *segmentStream) loadSegment() error {
	name := pgtime.SegmentFileName(s.timeline, s.segNo)
	data, err := os.ReadFile(filepath.Join(s.archivePath, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("walparser: segment %s: %w", name, ErrMissingSegment)
		}
		return fmt.Errorf("walparser: reading segment %s: %w", name, err)
	}
	s.buf = data
	s.pos = 0
	return nil
}

// currentLSN is the absolute stream position, i.e. the LSN of whatever
// byte comes next.
func (s *segmentStream) currentLSN() pgtime.LSN {
	return pgtime.LSN(s.segNo*uint64(pgtime.SegmentSize) + uint64(s.pos))
}

// read returns the next n bytes, transparently advancing into
// subsequent segments. A segment absent from the archive while bytes
// are still needed is fatal.
func (s *segmentStream) read(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		avail := len(s.buf) - s.pos
		if avail <= 0 {
			s.segNo++
			if err := s.loadSegment(); err != nil {
				return nil, err
			}
			continue
		}
		take := n - len(out)
		if take > avail {
			take = avail
		}
		out = append(out, s.buf[s.pos:s.pos+take]...)
		s.pos += take
	}
	return out, nil
}

// Run iterates every record whose start position lies in
// [fromLSN, toLSN) and reports the blocks it dirties to sink.
//
// Boundaries: a record starting exactly at fromLSN is read, and a
// record starting at or after toLSN is not. A record whose body crosses a
// segment boundary is read once, in full, regardless of how many
// segment files it spans.
func Run(ctx context.Context, archivePath string, timeline pgtime.Timeline, fromLSN, toLSN pgtime.LSN, sink BlockSink) error {
	if toLSN <= fromLSN {
		return nil
	}

	stream, err := newSegmentStream(archivePath, timeline, fromLSN)
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		recordStart := stream.currentLSN()
		if recordStart >= toLSN {
			return nil
		}

		headerBytes, err := stream.read(recordHeaderSize)
		if err != nil {
			return err
		}
		hdr, err := decodeRecordHeader(headerBytes)
		if err != nil {
			return err
		}
		if hdr.LSN != recordStart {
			return fmt.Errorf("walparser: record header claims LSN %s but was read at stream position %s", hdr.LSN, recordStart)
		}
		if int(hdr.TotalLength) < recordHeaderSize {
			return fmt.Errorf("walparser: record at %s has implausible total length %d", recordStart, hdr.TotalLength)
		}

		body, err := stream.read(int(hdr.TotalLength) - recordHeaderSize)
		if err != nil {
			return err
		}
		if bodyChecksum(body) != hdr.CRC {
			return fmt.Errorf("walparser: record at %s: %w", recordStart, ErrCorruptRecord)
		}

		decode, err := lookupExtractor(hdr.RMgr, hdr.Info)
		if err != nil {
			return err
		}
		bc, err := decode(body)
		if err != nil {
			return fmt.Errorf("walparser: record at %s: %w", recordStart, err)
		}

		node := relfile.Node{Tablespace: bc.Tablespace, Database: bc.Database, RelNode: bc.RelNode}
		fork := relfile.Fork(bc.Fork)
		for _, blk := range bc.Blocks {
			sink.ProcessBlockChange(node, fork, blk)
		}
	}
}
