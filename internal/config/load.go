package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Load builds the effective Options for a run: defaults, then
// pg_arman.ini under backupPath if present, then the PGDATA/
// BACKUP_PATH/ARCLOG_PATH environment variables. Callers apply
// command-line flags on top of the result, since flags outrank
// everything else.
func Load(backupPath string) (Options, []string, error) {
	opts := Default()
	opts.BackupPath = backupPath

	var warnings []string

	if backupPath != "" {
		iniPath := filepath.Join(backupPath, "pg_arman.ini")
		data, err := os.ReadFile(iniPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return opts, nil, fmt.Errorf("config: reading %s: %w", iniPath, err)
			}
		} else {
			result, err := ParseINI(data)
			if err != nil {
				return opts, nil, fmt.Errorf("config: %s: %w", iniPath, err)
			}
			warnings = result.Warnings
			if err := Apply(result.Values, &opts); err != nil {
				return opts, warnings, err
			}
		}
	}

	if v := os.Getenv("PGDATA"); v != "" {
		opts.PGData = v
	}
	if v := os.Getenv("BACKUP_PATH"); v != "" && backupPath == "" {
		opts.BackupPath = v
	}
	if v := os.Getenv("ARCLOG_PATH"); v != "" {
		opts.ArclogPath = v
	}

	return opts, warnings, nil
}
