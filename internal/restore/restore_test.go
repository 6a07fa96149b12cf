package restore

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KilimcininKorOglu/pgarman/internal/catalog"
	"github.com/KilimcininKorOglu/pgarman/internal/filecopy"
)

func writeManifestAndFileList(t *testing.T, root string, rec *catalog.Record, entries []catalog.FileEntry) {
	t.Helper()
	if _, err := catalog.CreateRecordDirectory(root, rec.ID); err != nil {
		t.Fatalf("CreateRecordDirectory: %v", err)
	}
	if err := catalog.WriteManifest(root, rec); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	if err := catalog.WriteFileList(root, rec.ID, entries); err != nil {
		t.Fatalf("WriteFileList: %v", err)
	}
}

func writeDataFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// buildDeltaFile writes a minimal valid delta file covering the given
// (blockNo, page) records, in ascending order, terminated correctly.
func buildDeltaFile(t *testing.T, path string, blocks map[uint32][]byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	var buf bytes.Buffer
	header := make([]byte, 12)
	copy(header[0:4], []byte{'D', 'E', 'L', 'T'})
	binary.BigEndian.PutUint32(header[4:8], uint32(filecopy.BlockSize))
	binary.BigEndian.PutUint32(header[8:12], 1)
	buf.Write(header)

	blockNos := make([]uint32, 0, len(blocks))
	for b := range blocks {
		blockNos = append(blockNos, b)
	}
	// simple insertion sort, block counts here are tiny in tests
	for i := 1; i < len(blockNos); i++ {
		for j := i; j > 0 && blockNos[j-1] > blockNos[j]; j-- {
			blockNos[j-1], blockNos[j] = blockNos[j], blockNos[j-1]
		}
	}

	rec := make([]byte, 4)
	for _, b := range blockNos {
		page := blocks[b]
		binary.BigEndian.PutUint32(rec, b)
		buf.Write(rec)
		buf.Write(page)
		var crcBuf [4]byte
		binary.BigEndian.PutUint32(crcBuf[:], crc32.ChecksumIEEE(page))
		buf.Write(crcBuf[:])
	}
	binary.BigEndian.PutUint32(rec, 0xFFFFFFFF)
	buf.Write(rec)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func page(fill byte) []byte {
	p := make([]byte, filecopy.BlockSize)
	for i := range p {
		p[i] = fill
	}
	return p
}

func TestChainFullNeedsNoParent(t *testing.T) {
	full := &catalog.Record{ID: "20260101T000000", Mode: catalog.ModeFull, Status: catalog.StatusDone}
	chain, err := Chain([]*catalog.Record{full}, full)
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(chain) != 1 || chain[0] != full {
		t.Fatalf("Chain(full) = %v, want [full]", chain)
	}
}

func TestChainDiffFindsNearestPriorFull(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := &catalog.Record{ID: "old", Mode: catalog.ModeFull, Status: catalog.StatusDone, Timeline: 1, StartTime: base}
	newer := &catalog.Record{ID: "new", Mode: catalog.ModeFull, Status: catalog.StatusDone, Timeline: 1, StartTime: base.Add(time.Hour)}
	diff := &catalog.Record{ID: "diff", Mode: catalog.ModeDiffPage, Status: catalog.StatusDone, Timeline: 1, StartTime: base.Add(90 * time.Minute)}

	list := []*catalog.Record{diff, newer, older} // descending, as catalog.List returns
	chain, err := Chain(list, diff)
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(chain) != 2 || chain[0] != newer || chain[1] != diff {
		t.Fatalf("Chain(diff) = %v, want [newer, diff]", chain)
	}
}

func TestChainDiffWithoutFullParentFails(t *testing.T) {
	diff := &catalog.Record{ID: "diff", Mode: catalog.ModeDiffPage, Status: catalog.StatusDone, Timeline: 1, StartTime: time.Now()}
	_, err := Chain([]*catalog.Record{diff}, diff)
	if err == nil {
		t.Fatalf("Chain(diff without parent) succeeded, want error")
	}
	if err.Error() != "Valid full backup not found for differential backup" {
		t.Fatalf("Chain error = %q", err.Error())
	}
}

func TestApplyFullThenDiffReconstructsBytes(t *testing.T) {
	root := t.TempDir()
	dest := t.TempDir()

	fullStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	full := &catalog.Record{ID: catalog.IDFromTime(fullStart), Mode: catalog.ModeFull, Status: catalog.StatusDone, Timeline: 1, StartTime: fullStart}
	diffStart := fullStart.Add(time.Hour)
	diff := &catalog.Record{ID: catalog.IDFromTime(diffStart), Mode: catalog.ModeDiffPage, Status: catalog.StatusDone, Timeline: 1, StartTime: diffStart}

	// full backup: a plain config file and a two-block relation segment.
	writeDataFile(t, filepath.Join(catalog.RecordDir(root, full.ID), "database", "postgresql.conf"), []byte("shared_buffers=128MB\n"))
	fullRelContent := append(append([]byte{}, page(1)...), page(2)...)
	writeDataFile(t, filepath.Join(catalog.RecordDir(root, full.ID), "database", "base", "16384", "16401"), fullRelContent)
	writeManifestAndFileList(t, root, full, []catalog.FileEntry{
		{Path: "postgresql.conf", Mode: 0o644, Size: 21, CRC: crc32.ChecksumIEEE([]byte("shared_buffers=128MB\n"))},
		{Path: "base/16384/16401", Mode: 0o644, Size: int64(len(fullRelContent)), IsDataFile: true},
	})

	// diff backup: overlays only block 1, leaves block 0 alone, and
	// rewrites the config file wholesale (non-relation files are
	// always verbatim, even in DIFF_PAGE mode).
	buildDeltaFile(t, filepath.Join(catalog.RecordDir(root, diff.ID), "database", "base", "16384", "16401"), map[uint32][]byte{
		1: page(9),
	})
	writeDataFile(t, filepath.Join(catalog.RecordDir(root, diff.ID), "database", "postgresql.conf"), []byte("shared_buffers=256MB\n"))
	writeManifestAndFileList(t, root, diff, []catalog.FileEntry{
		{Path: "postgresql.conf", Mode: 0o644, Size: 21, CRC: crc32.ChecksumIEEE([]byte("shared_buffers=256MB\n"))},
		{Path: "base/16384/16401", Mode: 0o644, IsDataFile: true},
	})

	chain := []*catalog.Record{full, diff}
	if err := Apply(root, chain, dest); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	gotConf, err := os.ReadFile(filepath.Join(dest, "postgresql.conf"))
	if err != nil {
		t.Fatalf("reading restored conf: %v", err)
	}
	if string(gotConf) != "shared_buffers=256MB\n" {
		t.Fatalf("restored conf = %q, want the diff's version", gotConf)
	}

	gotRel, err := os.ReadFile(filepath.Join(dest, "base", "16384", "16401"))
	if err != nil {
		t.Fatalf("reading restored relation file: %v", err)
	}
	want := append(append([]byte{}, page(1)...), page(9)...)
	if !bytes.Equal(gotRel, want) {
		t.Fatalf("restored relation file does not match expected overlay result")
	}
}

func TestApplySkipsSentinelEntries(t *testing.T) {
	root := t.TempDir()
	dest := t.TempDir()

	rec := &catalog.Record{ID: catalog.IDFromTime(time.Now()), Mode: catalog.ModeFull, Status: catalog.StatusDone}
	writeManifestAndFileList(t, root, rec, []catalog.FileEntry{
		{Path: "gone", WriteSize: filecopy.Skipped},
	})

	if err := Apply(root, []*catalog.Record{rec}, dest); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "gone")); !os.IsNotExist(err) {
		t.Fatalf("skipped entry should not appear in destination, stat err = %v", err)
	}
}

func TestFindRecordEmptyReturnsLatestDone(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newest := &catalog.Record{ID: "b", Status: catalog.StatusDone, StartTime: base.Add(time.Hour)}
	running := &catalog.Record{ID: "c", Status: catalog.StatusRunning, StartTime: base.Add(2 * time.Hour)}
	oldest := &catalog.Record{ID: "a", Status: catalog.StatusDone, StartTime: base}

	got, err := FindRecord([]*catalog.Record{running, newest, oldest}, "")
	if err != nil {
		t.Fatalf("FindRecord: %v", err)
	}
	if got != newest {
		t.Fatalf("FindRecord(\"\") = %v, want newest DONE record", got)
	}
}

func TestFindRecordByDate(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	early := &catalog.Record{ID: "a", Status: catalog.StatusDone, StartTime: base}
	late := &catalog.Record{ID: "b", Status: catalog.StatusDone, StartTime: base.Add(24 * time.Hour)}

	got, err := FindRecord([]*catalog.Record{late, early}, "2026-01-02")
	if err != nil {
		t.Fatalf("FindRecord: %v", err)
	}
	if got != late {
		t.Fatalf("FindRecord(date) = %v, want %v", got, late)
	}
}

func TestFindRecordNoMatchErrors(t *testing.T) {
	rec := &catalog.Record{ID: "a", Status: catalog.StatusDone, StartTime: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	if _, err := FindRecord([]*catalog.Record{rec}, "2020-01-01"); err == nil {
		t.Fatalf("FindRecord with no eligible record succeeded, want error")
	}
}
