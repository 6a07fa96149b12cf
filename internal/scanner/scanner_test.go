package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func mustWrite(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll(%s): %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

func TestScanTagsRelationFiles(t *testing.T) {
	dir := t.TempDir()

	mustWrite(t, filepath.Join(dir, "base", "16384", "16401"), []byte("x"))
	mustWrite(t, filepath.Join(dir, "base", "16384", "16401_vm"), []byte("x"))
	mustWrite(t, filepath.Join(dir, "global", "1262"), []byte("x"))
	mustWrite(t, filepath.Join(dir, "base", "16384", "PG_VERSION"), []byte("16"))
	mustWrite(t, filepath.Join(dir, "postgresql.conf"), []byte("# conf"))

	entries, err := Scan(dir, 16)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	byPath := make(map[string]Entry)
	for _, e := range entries {
		byPath[e.RelPath] = e
	}

	tests := []struct {
		path string
		kind Kind
	}{
		{"base/16384/16401", KindRelationFile},
		{"base/16384/16401_vm", KindRelationFile},
		{"global/1262", KindRelationFile},
		{"base/16384/PG_VERSION", KindVerbatimFile},
		{"postgresql.conf", KindVerbatimFile},
	}
	for _, tt := range tests {
		e, ok := byPath[tt.path]
		if !ok {
			t.Fatalf("missing entry for %s; got %v", tt.path, byPath)
		}
		if e.Kind != tt.kind {
			t.Fatalf("entry %s: Kind = %v, want %v", tt.path, e.Kind, tt.kind)
		}
	}
}

func TestScanExcludesRuntimeState(t *testing.T) {
	dir := t.TempDir()

	mustWrite(t, filepath.Join(dir, "pg_wal", "000000010000000000000001"), []byte("x"))
	mustWrite(t, filepath.Join(dir, "pg_stat_tmp", "pgstat.stat"), []byte("x"))
	mustWrite(t, filepath.Join(dir, "postmaster.pid"), []byte("123"))
	mustWrite(t, filepath.Join(dir, "base", "16384", "16401"), []byte("x"))

	entries, err := Scan(dir, 16)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	for _, e := range entries {
		if e.RelPath == "pg_wal" || e.RelPath == "pg_stat_tmp" || e.RelPath == "postmaster.pid" {
			t.Fatalf("entry %s should have been excluded", e.RelPath)
		}
		if len(e.RelPath) >= 6 && e.RelPath[:6] == "pg_wal" {
			t.Fatalf("entry %s: pg_wal contents should not be walked", e.RelPath)
		}
	}
}

func TestScanEmitsDirectoriesAndSymlinks(t *testing.T) {
	dir := t.TempDir()

	mustWrite(t, filepath.Join(dir, "base", "16384", "16401"), []byte("x"))
	tsTarget := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "pg_tblspc"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	linkPath := filepath.Join(dir, "pg_tblspc", "16400")
	if err := os.Symlink(tsTarget, linkPath); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	entries, err := Scan(dir, 16)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	var sawDir, sawSymlink bool
	for _, e := range entries {
		if e.RelPath == "base" && e.Kind == KindDirectory {
			sawDir = true
		}
		if e.RelPath == "pg_tblspc/16400" && e.Kind == KindSymlink {
			sawSymlink = true
			if e.LinkTarget != tsTarget {
				t.Fatalf("LinkTarget = %q, want %q", e.LinkTarget, tsTarget)
			}
		}
	}
	if !sawDir {
		t.Fatalf("expected a directory entry for base/")
	}
	if !sawSymlink {
		t.Fatalf("expected a symlink entry for pg_tblspc/16400")
	}
}

func TestScanIsSortedByPath(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "base", "16384", "16401"), []byte("x"))
	mustWrite(t, filepath.Join(dir, "base", "16384", "16402"), []byte("x"))
	mustWrite(t, filepath.Join(dir, "global", "1262"), []byte("x"))

	entries, err := Scan(dir, 16)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].RelPath < entries[i-1].RelPath {
			t.Fatalf("entries not sorted: %q before %q", entries[i-1].RelPath, entries[i].RelPath)
		}
	}
}
