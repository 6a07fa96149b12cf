package restore

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/KilimcininKorOglu/pgarman/internal/catalog"
	"github.com/KilimcininKorOglu/pgarman/internal/filecopy"
)

// Validate checks every captured file of rec against its recorded CRC
// (verbatim entries) or per-block checksum (delta entries), in place
// inside the backup directory. It does not touch a restore target.
// The caller is responsible for moving rec to CORRUPT on failure.
func Validate(backupRoot string, rec *catalog.Record) error {
	entries, err := catalog.ReadFileList(backupRoot, rec.ID)
	if err != nil {
		return fmt.Errorf("restore: reading file list for %s: %w", rec.ID, err)
	}
	dataDir := filepath.Join(catalog.RecordDir(backupRoot, rec.ID), "database")

	for _, e := range entries {
		if e.WriteSize == filecopy.Skipped {
			continue
		}
		path := filepath.Join(dataDir, e.Path)

		isDelta := e.IsDataFile && rec.Mode == catalog.ModeDiffPage
		if isDelta {
			if err := validateDelta(path); err != nil {
				return fmt.Errorf("restore: validating %s: %w", e.Path, err)
			}
			continue
		}
		if err := validateCRC(path, e.CRC); err != nil {
			return fmt.Errorf("restore: validating %s: %w", e.Path, err)
		}
	}
	return nil
}

func validateDelta(path string) error {
	r, err := filecopy.OpenDeltaFile(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		_, _, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

func validateCRC(path string, want uint32) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := crc32.NewIEEE()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if got := h.Sum32(); got != want {
		return fmt.Errorf("%s: crc mismatch (want %08x, got %08x)", path, want, got)
	}
	return nil
}
