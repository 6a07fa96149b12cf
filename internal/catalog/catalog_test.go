package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KilimcininKorOglu/pgarman/internal/pgtime"
)

func writeTestRecord(t *testing.T, root string, start time.Time, mode Mode, status Status, timeline pgtime.Timeline) *Record {
	t.Helper()
	r := &Record{
		ID:        IDFromTime(start),
		Mode:      mode,
		Status:    status,
		Timeline:  timeline,
		StartTime: start,
		EndTime:   start.Add(time.Minute),
	}
	if err := WriteManifest(root, r); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	return r
}

func TestCreateRecordDirectory(t *testing.T) {
	root := t.TempDir()
	dataDir, err := CreateRecordDirectory(root, "20260803T100000")
	if err != nil {
		t.Fatalf("CreateRecordDirectory: %v", err)
	}
	info, err := os.Stat(dataDir)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("dataDir is not a directory")
	}
}

func TestListSortsDescendingAndSkipsJunk(t *testing.T) {
	root := t.TempDir()
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	t1 := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	writeTestRecord(t, root, t0, ModeFull, StatusDone, 1)
	writeTestRecord(t, root, t1, ModeDiffPage, StatusDone, 1)
	writeTestRecord(t, root, t2, ModeDiffPage, StatusDone, 1)

	if err := os.WriteFile(filepath.Join(root, "backup.lock"), nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, recordSubdir, "not-an-id"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	list, err := List(root, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
	if !list[0].StartTime.Equal(t2) || !list[1].StartTime.Equal(t1) || !list[2].StartTime.Equal(t0) {
		t.Fatalf("List not sorted descending: %v", list)
	}
}

func TestListFiltersByTimeline(t *testing.T) {
	root := t.TempDir()
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	t1 := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	writeTestRecord(t, root, t0, ModeFull, StatusDone, 1)
	writeTestRecord(t, root, t1, ModeFull, StatusDone, 2)

	tl := pgtime.Timeline(2)
	list, err := List(root, &tl)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Timeline != 2 {
		t.Fatalf("List with filter = %v, want single timeline-2 record", list)
	}
}

func TestLastDataBackupSkipsNonDoneAndOtherTimelines(t *testing.T) {
	root := t.TempDir()
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	t1 := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	writeTestRecord(t, root, t0, ModeFull, StatusDone, 1)
	writeTestRecord(t, root, t1, ModeDiffPage, StatusError, 1)
	writeTestRecord(t, root, t2, ModeFull, StatusDone, 2)

	list, err := List(root, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := LastDataBackup(list, 1)
	if got == nil || !got.StartTime.Equal(t0) {
		t.Fatalf("LastDataBackup(timeline 1) = %v, want record at t0", got)
	}
}

func TestLastDataBackupIgnoresDiffAndOtherStatus(t *testing.T) {
	root := t.TempDir()
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	t1 := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	writeTestRecord(t, root, t0, ModeFull, StatusDone, 1)
	writeTestRecord(t, root, t1, ModeDiffPage, StatusDone, 1)

	list, err := List(root, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := LastDataBackup(list, 1)
	if got == nil || got.Mode != ModeFull {
		t.Fatalf("LastDataBackup = %v, want the FULL record", got)
	}
}

func TestDeleteRetainsByGenerationOrAge(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	old := writeTestRecord(t, root, now.Add(-100*24*time.Hour), ModeFull, StatusDone, 1)
	mid := writeTestRecord(t, root, now.Add(-50*24*time.Hour), ModeFull, StatusDone, 1)
	recent := writeTestRecord(t, root, now.Add(-1*time.Hour), ModeFull, StatusDone, 1)
	_ = mid

	list, err := List(root, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	// Keep 1 generation, 60 days: newest generation-kept, mid age-kept, old dropped.
	changed, err := Delete(root, list, 1, 60)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(changed) != 1 || changed[0].ID != old.ID {
		t.Fatalf("Delete changed = %v, want only the oldest record", changed)
	}

	list, err = List(root, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, r := range list {
		switch r.ID {
		case old.ID:
			if r.Status != StatusDeleted {
				t.Fatalf("oldest record status = %s, want DELETED", r.Status)
			}
		case recent.ID:
			if r.Status != StatusDone {
				t.Fatalf("recent record status = %s, want DONE", r.Status)
			}
		}
	}
}

func TestDeleteNeverOrphansRetainedDiffChain(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	full := writeTestRecord(t, root, now.Add(-100*24*time.Hour), ModeFull, StatusDone, 1)
	writeTestRecord(t, root, now.Add(-1*time.Hour), ModeDiffPage, StatusDone, 1)

	list, err := List(root, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	// Keep one FULL generation and no age window: the DIFF is retained
	// with its FULL parent, and that FULL must not be marked DELETED.
	changed, err := Delete(root, list, 1, 0)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, r := range changed {
		if r.ID == full.ID {
			t.Fatalf("Delete removed the FULL parent still in use by a retained DIFF_PAGE backup")
		}
	}
}

func TestDeleteLeavesNonDoneRecordsAlone(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	writeTestRecord(t, root, now.Add(-200*24*time.Hour), ModeFull, StatusError, 1)

	list, err := List(root, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	changed, err := Delete(root, list, 1, 1)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(changed) != 0 {
		t.Fatalf("Delete touched a non-DONE record: %v", changed)
	}
}

func TestSweepRemovesDataDirOfDeletedRecords(t *testing.T) {
	root := t.TempDir()
	r := writeTestRecord(t, root, time.Now(), ModeFull, StatusDeleted, 1)
	dataDir, err := CreateRecordDirectory(root, r.ID)
	if err != nil {
		t.Fatalf("CreateRecordDirectory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "stray"), nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	list, err := List(root, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	swept, err := Sweep(root, list)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(swept) != 1 {
		t.Fatalf("len(swept) = %d, want 1", len(swept))
	}
	if _, err := os.Stat(dataDir); !os.IsNotExist(err) {
		t.Fatalf("Sweep left dataDir behind: err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(RecordDir(root, r.ID), manifestFileName)); err != nil {
		t.Fatalf("Sweep removed the manifest tombstone: %v", err)
	}
}

func TestDeleteAlwaysRetainsMostRecentFullEvenWithZeroFlags(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	old := writeTestRecord(t, root, now.Add(-200*24*time.Hour), ModeFull, StatusDone, 1)
	recent := writeTestRecord(t, root, now.Add(-1*time.Hour), ModeFull, StatusDone, 1)

	list, err := List(root, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	// Shipped defaults: both retention counters disabled.
	changed, err := Delete(root, list, 0, 0)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, r := range changed {
		if r.ID == recent.ID {
			t.Fatalf("Delete removed the most recent FULL backup with both retention flags at zero")
		}
	}
	if len(changed) != 1 || changed[0].ID != old.ID {
		t.Fatalf("Delete changed = %v, want only the older FULL record removed", changed)
	}
}

func TestDeleteSafetyNetIsPerTimeline(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	tl1 := writeTestRecord(t, root, now.Add(-200*24*time.Hour), ModeFull, StatusDone, 1)
	tl2 := writeTestRecord(t, root, now.Add(-200*24*time.Hour), ModeFull, StatusDone, 2)

	list, err := List(root, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	changed, err := Delete(root, list, 0, 0)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, r := range changed {
		if r.ID == tl1.ID || r.ID == tl2.ID {
			t.Fatalf("Delete removed each timeline's only FULL backup: %v", changed)
		}
	}
	if len(changed) != 0 {
		t.Fatalf("Delete changed = %v, want neither timeline's sole FULL touched", changed)
	}
}

func TestListConvertsAbandonedRunningToError(t *testing.T) {
	root := t.TempDir()
	r := writeTestRecord(t, root, time.Now(), ModeFull, StatusRunning, 1)

	list, err := List(root, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Status != StatusError {
		t.Fatalf("List(%v) = %v, want the abandoned record converted to ERROR", r.ID, list)
	}

	reread, err := ReadManifest(root, r.ID)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if reread.Status != StatusError {
		t.Fatalf("persisted status = %s, want ERROR", reread.Status)
	}
}

func TestListExcludingLeavesOwnRecordRunning(t *testing.T) {
	root := t.TempDir()
	r := writeTestRecord(t, root, time.Now(), ModeFull, StatusRunning, 1)

	list, err := ListExcluding(root, nil, r.ID)
	if err != nil {
		t.Fatalf("ListExcluding: %v", err)
	}
	if len(list) != 1 || list[0].Status != StatusRunning {
		t.Fatalf("ListExcluding(%v) = %v, want own record left RUNNING", r.ID, list)
	}

	reread, err := ReadManifest(root, r.ID)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if reread.Status != StatusRunning {
		t.Fatalf("persisted status = %s, want RUNNING (unchanged)", reread.Status)
	}
}
