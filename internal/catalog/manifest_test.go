package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/KilimcininKorOglu/pgarman/internal/pgtime"
)

func sampleRecord() *Record {
	start := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	return &Record{
		ID:           IDFromTime(start),
		Mode:         ModeFull,
		Status:       StatusDone,
		Timeline:     1,
		StartLSN:     pgtime.LSN(0x16B374D800),
		StopLSN:      pgtime.LSN(0x16B374F000),
		RecoveryXID:  4242,
		RecoveryTime: start.Add(5 * time.Minute),
		BlockSize:    8192,
		WALBlockSize: 8192,
		BytesRead:    123456,
		BytesWritten: 65536,
		StartTime:    start,
		EndTime:      start.Add(5 * time.Minute),
	}
}

func TestWriteReadManifestRoundTrip(t *testing.T) {
	root := t.TempDir()
	want := sampleRecord()

	if err := WriteManifest(root, want); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	got, err := ReadManifest(root, want.ID)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}

	if got.ID != want.ID || got.Mode != want.Mode || got.Status != want.Status ||
		got.Timeline != want.Timeline || got.StartLSN != want.StartLSN || got.StopLSN != want.StopLSN ||
		got.RecoveryXID != want.RecoveryXID || got.BlockSize != want.BlockSize ||
		got.WALBlockSize != want.WALBlockSize || got.BytesRead != want.BytesRead ||
		got.BytesWritten != want.BytesWritten {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
	if !got.StartTime.Equal(want.StartTime) || !got.EndTime.Equal(want.EndTime) ||
		!got.RecoveryTime.Equal(want.RecoveryTime) {
		t.Fatalf("round trip time mismatch: got %+v, want %+v", got, want)
	}
}

func TestWriteManifestLeavesNoTempFileBehind(t *testing.T) {
	root := t.TempDir()
	r := sampleRecord()
	if err := WriteManifest(root, r); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	entries, err := filepath.Glob(filepath.Join(RecordDir(root, r.ID), manifestFileName+".tmp-*"))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("leftover temp manifest files: %v", entries)
	}
}

func TestWriteManifestOverwritesExisting(t *testing.T) {
	root := t.TempDir()
	r := sampleRecord()
	if err := WriteManifest(root, r); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	r.Status = StatusError
	r.BytesWritten = 999
	if err := WriteManifest(root, r); err != nil {
		t.Fatalf("WriteManifest (second write): %v", err)
	}

	got, err := ReadManifest(root, r.ID)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if got.Status != StatusError || got.BytesWritten != 999 {
		t.Fatalf("overwrite did not take effect: %+v", got)
	}
}

func TestReadManifestMissingRecord(t *testing.T) {
	root := t.TempDir()
	if _, err := ReadManifest(root, "20260101T000000"); err == nil {
		t.Fatalf("ReadManifest: want error for missing record")
	}
}

func TestReadManifestZeroTimeFieldsRoundTripEmpty(t *testing.T) {
	root := t.TempDir()
	r := sampleRecord()
	r.RecoveryTime = time.Time{}
	r.EndTime = time.Time{}
	if err := WriteManifest(root, r); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	got, err := ReadManifest(root, r.ID)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if !got.RecoveryTime.IsZero() || !got.EndTime.IsZero() {
		t.Fatalf("zero time fields did not round trip: %+v", got)
	}
}
