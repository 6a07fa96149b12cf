package catalog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const fileListFileName = "file_database.txt"

const fileListHeader = "PGARMAN-FILE-LIST-1"

// FileEntry is one copied file's entry in a backup's file list: enough
// to validate the backup without re-reading server data files, and
// enough to drive restore's verbatim/delta apply decision.
type FileEntry struct {
	Path       string // relative to the record's database/ subtree
	Mode       os.FileMode
	Size       int64
	ModTime    int64 // unix seconds, matching the mtime the copy observed
	CRC        uint32
	WriteSize  int64 // bytes actually written: differs from Size for delta files
	IsDataFile bool
}

// WriteFileList writes entries to root/backup/id/file_database.txt as
// NUL-separated fields, one record per line, behind the same
// temp-file-then-rename discipline as the manifest.
func WriteFileList(root, id string, entries []FileEntry) error {
	dir := RecordDir(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("catalog: creating record directory %s: %w", dir, err)
	}

	target := filepath.Join(dir, fileListFileName)
	tmp, err := os.CreateTemp(dir, fileListFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("catalog: creating temp file list in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	w := bufio.NewWriter(tmp)
	if _, err := w.WriteString(fileListHeader + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("catalog: writing file list %s: %w", tmpPath, err)
	}
	for _, e := range entries {
		line := strings.Join([]string{
			e.Path,
			strconv.FormatUint(uint64(e.Mode), 8),
			strconv.FormatInt(e.Size, 10),
			strconv.FormatInt(e.ModTime, 10),
			strconv.FormatUint(uint64(e.CRC), 16),
			strconv.FormatInt(e.WriteSize, 10),
			boolField(e.IsDataFile),
		}, "\x00")
		if _, err := w.WriteString(line + "\n"); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("catalog: writing file list %s: %w", tmpPath, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("catalog: flushing file list %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("catalog: closing file list %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("catalog: renaming %s to %s: %w", tmpPath, target, err)
	}
	return nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ReadFileList reads root/backup/id/file_database.txt back into
// entries, in the order they were written.
func ReadFileList(root, id string) ([]FileEntry, error) {
	path := filepath.Join(RecordDir(root, id), fileListFileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: opening file list %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("catalog: reading file list %s: %w", path, err)
		}
		return nil, fmt.Errorf("catalog: file list %s is empty", path)
	}
	if scanner.Text() != fileListHeader {
		return nil, fmt.Errorf("catalog: file list %s has unrecognized header %q", path, scanner.Text())
	}

	var entries []FileEntry
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\x00")
		if len(fields) != 7 {
			return nil, fmt.Errorf("catalog: file list %s: malformed line %q", path, line)
		}

		mode, err := strconv.ParseUint(fields[1], 8, 32)
		if err != nil {
			return nil, fmt.Errorf("catalog: file list %s: mode field: %w", path, err)
		}
		size, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("catalog: file list %s: size field: %w", path, err)
		}
		mtime, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("catalog: file list %s: mtime field: %w", path, err)
		}
		crc, err := strconv.ParseUint(fields[4], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("catalog: file list %s: crc field: %w", path, err)
		}
		writeSize, err := strconv.ParseInt(fields[5], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("catalog: file list %s: write_size field: %w", path, err)
		}

		entries = append(entries, FileEntry{
			Path:       fields[0],
			Mode:       os.FileMode(mode),
			Size:       size,
			ModTime:    mtime,
			CRC:        uint32(crc),
			WriteSize:  writeSize,
			IsDataFile: fields[6] == "1",
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("catalog: reading file list %s: %w", path, err)
	}
	return entries, nil
}

// TotalWriteSize sums WriteSize across entries, used to cross-check a
// manifest's bytes-written field during validate.
func TotalWriteSize(entries []FileEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.WriteSize
	}
	return total
}
