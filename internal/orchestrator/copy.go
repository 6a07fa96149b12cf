package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KilimcininKorOglu/pgarman/internal/catalog"
	"github.com/KilimcininKorOglu/pgarman/internal/errkind"
	"github.com/KilimcininKorOglu/pgarman/internal/filecopy"
	"github.com/KilimcininKorOglu/pgarman/internal/pagemap"
	"github.com/KilimcininKorOglu/pgarman/internal/relfile"
	"github.com/KilimcininKorOglu/pgarman/internal/scanner"
)

// copyAll walks the scan result and, for each entry, either recreates
// it (directories, symlinks) or copies it into dataDir (files),
// choosing verbatim or delta copying per entry.Kind and the backup
// mode. It returns the file-list entries the manifest records and the
// summed byte counters.
func (r *run) copyAll(ctx context.Context, dataDir string, entries []scanner.Entry, parent *catalog.Record, pm *pagemap.Map) ([]catalog.FileEntry, int64, int64, error) {
	fileEntries := make([]catalog.FileEntry, 0, len(entries))
	var bytesRead, bytesWritten int64

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, 0, 0, errkind.Wrap(errkind.Interrupt, "copying files", err)
		}

		dstPath := filepath.Join(dataDir, entry.RelPath)

		switch entry.Kind {
		case scanner.KindDirectory:
			if err := os.MkdirAll(dstPath, entry.Mode); err != nil {
				return nil, 0, 0, errkind.Wrap(errkind.Environment, "recreating directory "+entry.RelPath, err)
			}
			continue
		case scanner.KindSymlink:
			if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
				return nil, 0, 0, errkind.Wrap(errkind.Environment, "creating parent of symlink "+entry.RelPath, err)
			}
			_ = os.Remove(dstPath)
			if err := os.Symlink(entry.LinkTarget, dstPath); err != nil {
				return nil, 0, 0, errkind.Wrap(errkind.Environment, "recreating symlink "+entry.RelPath, err)
			}
			continue
		}

		srcPath := filepath.Join(r.opts.PGData, entry.RelPath)
		isDelta := entry.Kind == scanner.KindRelationFile && r.opts.Mode == catalog.ModeDiffPage

		var result filecopy.Result
		var err error
		if isDelta {
			key, ok := relfile.KeyFromRelPath(entry.RelPath)
			if !ok {
				return nil, 0, 0, errkind.New(errkind.Environment, "unrecognized relation segment path "+entry.RelPath)
			}
			dirty := func(blockInSegment uint32) bool { return pm.Contains(key, blockInSegment) }
			result, err = filecopy.Delta(srcPath, dstPath, entry.ModTime, parent.StartLSN, dirty)
		} else {
			result, err = filecopy.Verbatim(srcPath, dstPath, entry.ModTime)
		}
		if err != nil {
			if _, ok := err.(*filecopy.ErrClockRewind); ok {
				return nil, 0, 0, errkind.Wrap(errkind.Environment, fmt.Sprintf("clock rewind detected copying %s", entry.RelPath), err)
			}
			return nil, 0, 0, errkind.Wrap(errkind.Environment, "copying "+entry.RelPath, err)
		}

		bytesRead += result.Size
		if result.WriteSize != filecopy.Skipped {
			bytesWritten += result.WriteSize
		}

		fileEntries = append(fileEntries, catalog.FileEntry{
			Path:       entry.RelPath,
			Mode:       entry.Mode,
			Size:       result.Size,
			ModTime:    entry.ModTime.Unix(),
			CRC:        result.CRC,
			WriteSize:  result.WriteSize,
			IsDataFile: entry.Kind == scanner.KindRelationFile,
		})
	}

	return fileEntries, bytesRead, bytesWritten, nil
}

// directoriesOf extracts the relative paths of every directory entry
// the scan found, the input mkdirs.sh needs to recreate an empty tree.
func directoriesOf(entries []scanner.Entry) []string {
	var dirs []string
	for _, entry := range entries {
		if entry.Kind == scanner.KindDirectory {
			dirs = append(dirs, entry.RelPath)
		}
	}
	return dirs
}
