package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KilimcininKorOglu/pgarman/internal/catalog"
	"github.com/KilimcininKorOglu/pgarman/internal/errkind"
	"github.com/KilimcininKorOglu/pgarman/internal/restore"
)

func newValidateCmd(f *commonFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "validate [DATE]",
		Short:         "Validate a backup's captured files against their checksums",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _, err := mergeOptions(cmd, f)
			if err != nil {
				return errkind.Wrap(errkind.Configuration, "loading configuration", err)
			}
			if opts.BackupPath == "" {
				return errkind.New(errkind.Usage, "required parameter not specified: BACKUP_PATH (-B, --backup-path)")
			}

			var dateArg string
			if len(args) == 1 {
				dateArg = args[0]
			}

			list, err := catalog.List(opts.BackupPath, nil)
			if err != nil {
				return errkind.Wrap(errkind.Environment, "listing catalog", err)
			}
			rec, err := restore.FindRecord(list, dateArg)
			if err != nil {
				return errkind.Wrap(errkind.Usage, "resolving backup to validate", err)
			}

			if err := verifyRecord(opts.BackupPath, rec); err != nil {
				return errkind.Wrap(errkind.Corruption, "validation failed for "+rec.ID, err)
			}

			if !opts.Quiet {
				fmt.Fprintf(os.Stdout, "backup %s: OK\n", rec.ID)
			}
			return nil
		},
	}
	return cmd
}

// verifyRecord validates rec's files in place and, on failure, moves
// it to CORRUPT in the catalog before returning the validation error.
func verifyRecord(backupPath string, rec *catalog.Record) error {
	if err := restore.Validate(backupPath, rec); err != nil {
		rec.Status = catalog.StatusCorrupt
		if werr := catalog.WriteManifest(backupPath, rec); werr != nil {
			return fmt.Errorf("%w (additionally failed to record CORRUPT status: %v)", err, werr)
		}
		return err
	}
	return nil
}
