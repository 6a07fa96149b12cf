// Package restore applies a backup record's captured files back onto a
// target directory. A FULL record is applied on its own; a DIFF_PAGE
// record is applied on top of its FULL parent, oldest to newest, so
// delta blocks overlay the parent's verbatim copy of each relation
// segment. The interactive restore command (flag parsing, recovery
// target configuration) lives in cmd/pg_arman; this package owns only
// the byte-level application spec.md's invariant 2 requires.
package restore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/KilimcininKorOglu/pgarman/internal/catalog"
	"github.com/KilimcininKorOglu/pgarman/internal/errkind"
	"github.com/KilimcininKorOglu/pgarman/internal/filecopy"
)

// Chain resolves the ordered list of records to apply for target,
// oldest first. A FULL target needs no parent. A DIFF_PAGE target
// needs the most recent DONE FULL record on its timeline that started
// no later than target itself; the backup chain here is always two
// levels deep, never a chain of diffs against diffs.
func Chain(list []*catalog.Record, target *catalog.Record) ([]*catalog.Record, error) {
	if target.Mode == catalog.ModeFull {
		return []*catalog.Record{target}, nil
	}

	var parent *catalog.Record
	for _, r := range list {
		if r.Timeline != target.Timeline || !r.IsValidDiffParent() {
			continue
		}
		if r.StartTime.After(target.StartTime) {
			continue
		}
		if parent == nil || r.StartTime.After(parent.StartTime) {
			parent = r
		}
	}
	if parent == nil {
		return nil, errkind.New(errkind.Usage, "Valid full backup not found for differential backup")
	}
	return []*catalog.Record{parent, target}, nil
}

// Apply restores chain into destDir, applying records oldest to
// newest. destDir is created if absent; existing contents are
// overwritten file by file, never wiped first, so a restore into a
// directory the caller already prepared (e.g. with a fresh tablespace
// layout) is safe.
func Apply(backupRoot string, chain []*catalog.Record, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return errkind.Wrap(errkind.Environment, "creating restore target directory", err)
	}

	for _, rec := range chain {
		entries, err := catalog.ReadFileList(backupRoot, rec.ID)
		if err != nil {
			return errkind.Wrap(errkind.Corruption, "reading file list for "+rec.ID, err)
		}
		srcDataDir := filepath.Join(catalog.RecordDir(backupRoot, rec.ID), "database")

		for _, e := range entries {
			if e.WriteSize == filecopy.Skipped {
				continue
			}

			dstPath := filepath.Join(destDir, e.Path)
			srcPath := filepath.Join(srcDataDir, e.Path)
			if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
				return errkind.Wrap(errkind.Environment, "creating parent of "+e.Path, err)
			}

			isDelta := e.IsDataFile && rec.Mode == catalog.ModeDiffPage
			if isDelta {
				if err := applyDelta(srcPath, dstPath); err != nil {
					return errkind.Wrap(errkind.Corruption, "applying delta for "+e.Path, err)
				}
			} else {
				if err := applyVerbatim(srcPath, dstPath); err != nil {
					return errkind.Wrap(errkind.Environment, "restoring "+e.Path, err)
				}
			}

			if err := os.Chmod(dstPath, e.Mode); err != nil {
				return errkind.Wrap(errkind.Environment, "setting mode on "+e.Path, err)
			}
			mtime := time.Unix(e.ModTime, 0)
			if err := os.Chtimes(dstPath, mtime, mtime); err != nil {
				return errkind.Wrap(errkind.Environment, "setting mtime on "+e.Path, err)
			}
		}
	}

	return nil
}

// applyVerbatim overwrites dstPath with the full contents of srcPath.
func applyVerbatim(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("restore: opening %s: %w", srcPath, err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("restore: creating %s: %w", dstPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("restore: copying into %s: %w", dstPath, err)
	}
	return nil
}

// applyDelta overlays deltaPath's block records onto dstPath, which
// must already hold the parent's verbatim copy of the same relation
// segment (applyVerbatim for the FULL record, run earlier in Chain's
// order). Each block record's checksum is verified by DeltaReader
// before the overlay, so a torn or corrupt delta file fails the
// restore instead of producing silently wrong bytes.
func applyDelta(deltaPath, dstPath string) error {
	r, err := filecopy.OpenDeltaFile(deltaPath)
	if err != nil {
		return err
	}
	defer r.Close()

	dst, err := os.OpenFile(dstPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("restore: opening %s for overlay: %w", dstPath, err)
	}
	defer dst.Close()

	for {
		blockNo, page, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		offset := int64(blockNo) * filecopy.BlockSize
		if _, err := dst.WriteAt(page, offset); err != nil {
			return fmt.Errorf("restore: writing block %d to %s: %w", blockNo, dstPath, err)
		}
	}
}
