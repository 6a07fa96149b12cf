package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KilimcininKorOglu/pgarman/internal/errkind"
)

func newInitCmd(f *commonFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "init",
		Short:         "Create a new catalog directory",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _, _ := mergeOptions(cmd, f)
			if opts.BackupPath == "" {
				return errkind.New(errkind.Usage, "required parameter not specified: BACKUP_PATH (-B, --backup-path)")
			}

			entries, err := os.ReadDir(opts.BackupPath)
			if err == nil {
				for _, e := range entries {
					if e.IsDir() {
						return errkind.New(errkind.Usage, fmt.Sprintf("backup catalog already exists at %s", opts.BackupPath))
					}
				}
			} else if !os.IsNotExist(err) {
				return errkind.Wrap(errkind.Environment, "reading "+opts.BackupPath, err)
			}

			if err := os.MkdirAll(opts.BackupPath, 0o755); err != nil {
				return errkind.Wrap(errkind.Environment, "creating "+opts.BackupPath, err)
			}

			iniPath := filepath.Join(opts.BackupPath, "pg_arman.ini")
			if _, err := os.Stat(iniPath); os.IsNotExist(err) {
				if err := os.WriteFile(iniPath, []byte(defaultIniTemplate), 0o644); err != nil {
					return errkind.Wrap(errkind.Environment, "writing "+iniPath, err)
				}
			}

			if !opts.Quiet {
				fmt.Fprintf(os.Stdout, "catalog initialized at %s\n", opts.BackupPath)
			}
			return nil
		},
	}
	return cmd
}

const defaultIniTemplate = `# pg_arman.ini: defaults for every pg_arman invocation against this
# catalog. Command-line flags and the PGDATA/BACKUP_PATH/ARCLOG_PATH
# environment variables override these values.
#
# pgdata = /var/lib/postgresql/data
# arclog-path = /var/lib/postgresql/wal_archive
# keep-data-generations = 3
# keep-data-days = 7
`
