package catalog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const mkdirsFileName = "mkdirs.sh"

// WriteMkdirs writes root/backup/id/mkdirs.sh, a shell script that
// recreates dirs (relative to the data directory, forward-slashed)
// under a target directory given as its first argument, including
// empty directories that the restore package's file-by-file Apply
// never creates. Apply does not execute this script.
func WriteMkdirs(root, id string, dirs []string) error {
	dir := RecordDir(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("catalog: creating record directory %s: %w", dir, err)
	}

	sorted := append([]string(nil), dirs...)
	sort.Strings(sorted)

	target := filepath.Join(dir, mkdirsFileName)
	tmp, err := os.CreateTemp(dir, mkdirsFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("catalog: creating temp mkdirs script in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	w := bufio.NewWriter(tmp)
	fmt.Fprintln(w, "#!/bin/sh")
	fmt.Fprintln(w, "set -e")
	for _, d := range sorted {
		fmt.Fprintf(w, "mkdir -p -- \"$1/%s\"\n", d)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("catalog: writing mkdirs script %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("catalog: closing mkdirs script %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o755); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("catalog: setting mkdirs script mode %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("catalog: renaming %s to %s: %w", tmpPath, target, err)
	}
	return nil
}
