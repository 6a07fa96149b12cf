package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KilimcininKorOglu/pgarman/internal/catalog"
	"github.com/KilimcininKorOglu/pgarman/internal/errkind"
	"github.com/KilimcininKorOglu/pgarman/internal/restore"
)

func newDeleteCmd(f *commonFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "delete DATE",
		Short:         "Mark backups at or before DATE as deleted and sweep their files",
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
			if opts.ArclogPath == "" {
				return errkind.New(errkind.Usage, "delete command needs ARCLOG_PATH")
			}
			if len(args) != 1 {
				return errkind.New(errkind.Usage, "required delete range option not specified: delete DATE")
			}

			cutoff, err := restore.ParseDate(args[0])
			if err != nil {
				return errkind.Wrap(errkind.Usage, "parsing DATE", err)
			}

			lock, err := catalog.AcquireLock(opts.BackupPath)
			if err != nil {
				if err == catalog.ErrLockContention {
					return errkind.Wrap(errkind.Contention, "catalog is locked by another invocation", err)
				}
				return errkind.Wrap(errkind.Environment, "acquiring catalog lock", err)
			}
			defer lock.Release()

			list, err := catalog.List(opts.BackupPath, nil)
			if err != nil {
				return errkind.Wrap(errkind.Environment, "listing catalog", err)
			}

			var marked int
			for _, r := range list {
				if r.Status != catalog.StatusDone || r.StartTime.After(cutoff) {
					continue
				}
				r.Status = catalog.StatusDeleted
				if err := catalog.WriteManifest(opts.BackupPath, r); err != nil {
					return errkind.Wrap(errkind.Environment, "marking "+r.ID+" deleted", err)
				}
				marked++
			}

			list, err = catalog.List(opts.BackupPath, nil)
			if err != nil {
				return errkind.Wrap(errkind.Environment, "re-listing catalog for sweep", err)
			}
			if _, err := catalog.Sweep(opts.BackupPath, list); err != nil {
				return errkind.Wrap(errkind.Environment, "sweeping deleted backups", err)
			}

			if !opts.Quiet {
				fmt.Fprintf(os.Stdout, "deleted %d backup(s) at or before %s\n", marked, args[0])
			}
			return nil
		},
	}
	return cmd
}
