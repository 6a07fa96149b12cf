package restore

import (
	"hash/crc32"
	"path/filepath"
	"testing"
	"time"

	"github.com/KilimcininKorOglu/pgarman/internal/catalog"
)

func TestValidateAcceptsMatchingCRCAndDelta(t *testing.T) {
	root := t.TempDir()
	rec := &catalog.Record{ID: catalog.IDFromTime(time.Now()), Mode: catalog.ModeDiffPage, Status: catalog.StatusDone}

	content := []byte("hello world")
	writeDataFile(t, filepath.Join(catalog.RecordDir(root, rec.ID), "database", "PG_VERSION"), content)
	buildDeltaFile(t, filepath.Join(catalog.RecordDir(root, rec.ID), "database", "base", "16384", "16401"), map[uint32][]byte{
		0: page(3),
	})
	writeManifestAndFileList(t, root, rec, []catalog.FileEntry{
		{Path: "PG_VERSION", CRC: crc32.ChecksumIEEE(content)},
		{Path: "base/16384/16401", IsDataFile: true},
	})

	if err := Validate(root, rec); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateDetectsCRCMismatch(t *testing.T) {
	root := t.TempDir()
	rec := &catalog.Record{ID: catalog.IDFromTime(time.Now()), Mode: catalog.ModeFull, Status: catalog.StatusDone}

	writeDataFile(t, filepath.Join(catalog.RecordDir(root, rec.ID), "database", "PG_VERSION"), []byte("16"))
	writeManifestAndFileList(t, root, rec, []catalog.FileEntry{
		{Path: "PG_VERSION", CRC: 0xDEADBEEF},
	})

	if err := Validate(root, rec); err == nil {
		t.Fatalf("Validate with wrong CRC succeeded, want error")
	}
}

func TestParseDateAcceptsCatalogID(t *testing.T) {
	got, err := ParseDate("20260101T120000")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	want := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("ParseDate = %v, want %v", got, want)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	if _, err := ParseDate("not-a-date"); err == nil {
		t.Fatalf("ParseDate(garbage) succeeded, want error")
	}
}
