// Package scanner recursively lists a data directory, tagging entries
// that need block-level treatment during backup (relation data files)
// separately from everything else (copied verbatim).
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Kind classifies a ScanEntry for the copier and the catalog's file list.
type Kind int

const (
	// KindRelationFile is a numbered relation segment under base/,
	// global/, or pg_tblspc/ — eligible for block-level delta copying.
	KindRelationFile Kind = iota
	// KindVerbatimFile is any other regular file, copied whole.
	KindVerbatimFile
	// KindDirectory must be recreated (with its mode) before files are copied into it.
	KindDirectory
	// KindSymlink is recorded with its target but never followed.
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindRelationFile:
		return "relation"
	case KindVerbatimFile:
		return "verbatim"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Entry describes one filesystem object under the data directory.
type Entry struct {
	// RelPath is the path relative to the data directory root, using
	// forward slashes regardless of host OS.
	RelPath string
	Kind    Kind
	Mode    fs.FileMode
	Size    int64
	ModTime time.Time
	// LinkTarget holds the symlink target when Kind is KindSymlink.
	LinkTarget string
}

// Scan walks dataDir and returns one Entry per filesystem object not
// excluded by the version-keyed exclusion table, in a deterministic
// (lexical, parent-before-child) order.
func Scan(dataDir string, serverMajorVersion int) ([]Entry, error) {
	excl := excludeFor(serverMajorVersion)

	var entries []Entry
	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanner: walking %s: %w", path, err)
		}
		if path == dataDir {
			return nil
		}

		rel, err := filepath.Rel(dataDir, path)
		if err != nil {
			return fmt.Errorf("scanner: computing relative path for %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if d.IsDir() {
			if excl.excludesDir(name) {
				return filepath.SkipDir
			}
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("scanner: stat %s: %w", path, err)
			}
			entries = append(entries, Entry{
				RelPath: rel,
				Kind:    KindDirectory,
				Mode:    info.Mode(),
				ModTime: info.ModTime(),
			})
			return nil
		}

		if excl.excludesFile(name) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("scanner: stat %s: %w", path, err)
		}

		if info.Mode()&fs.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("scanner: reading symlink %s: %w", path, err)
			}
			entries = append(entries, Entry{
				RelPath:    rel,
				Kind:       KindSymlink,
				Mode:       info.Mode(),
				ModTime:    info.ModTime(),
				LinkTarget: target,
			})
			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		kind := KindVerbatimFile
		if isRelationDataFile(rel, name) {
			kind = KindRelationFile
		}

		entries = append(entries, Entry{
			RelPath: rel,
			Kind:    kind,
			Mode:    info.Mode(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].RelPath < entries[j].RelPath })
	return entries, nil
}

// isRelationDataFile reports whether rel names a regular file that the
// server treats as relation storage: it sits anywhere under base/,
// global/, or pg_tblspc/, and its basename starts with a decimal
// digit.
func isRelationDataFile(rel, name string) bool {
	if name == "" || name[0] < '0' || name[0] > '9' {
		return false
	}
	top := rel
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		top = rel[:i]
	}
	switch top {
	case "base", "global", "pg_tblspc":
		return true
	default:
		return false
	}
}
