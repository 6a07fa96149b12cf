package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KilimcininKorOglu/pgarman/internal/catalog"
	"github.com/KilimcininKorOglu/pgarman/internal/config"
	"github.com/KilimcininKorOglu/pgarman/internal/errkind"
	"github.com/KilimcininKorOglu/pgarman/internal/logging"
	"github.com/KilimcininKorOglu/pgarman/internal/orchestrator"
)

func newBackupCmd(f *commonFlags) *cobra.Command {
	var mode string
	var smoothCheckpoint bool
	var validate bool
	var keepGenerations int
	var keepDays int

	cmd := &cobra.Command{
		Use:           "backup",
		Short:         "Take a FULL or DIFF_PAGE backup",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, warnings, err := mergeOptions(cmd, f)
			if err != nil {
				return errkind.Wrap(errkind.Configuration, "loading configuration", err)
			}
			for _, w := range warnings {
				fmt.Fprintln(os.Stderr, "pg_arman: warning: "+w)
			}

			if cmd.Flags().Changed("backup-mode") {
				opts.BackupMode = mode
			}

			if opts.BackupPath == "" {
				return errkind.New(errkind.Usage, "required parameter not specified: BACKUP_PATH (-B, --backup-path)")
			}
			if opts.BackupMode == "" {
				return errkind.New(errkind.Usage, "Required parameter not specified: BACKUP_MODE (-b, --backup-mode)")
			}
			catalogMode, ok := parseBackupMode(opts.BackupMode)
			if !ok {
				return errkind.New(errkind.Usage, fmt.Sprintf("invalid backup-mode %q", opts.BackupMode))
			}
			if opts.PGData == "" {
				return errkind.New(errkind.Usage, "required parameter not specified: PGDATA (-D, --pgdata)")
			}
			if opts.ArclogPath == "" {
				return errkind.New(errkind.Usage, "required parameter not specified: ARCLOG_PATH (-A, --arclog-path)")
			}

			if cmd.Flags().Changed("smooth-checkpoint") {
				opts.SmoothCheckpoint = smoothCheckpoint
			}
			if cmd.Flags().Changed("validate") {
				opts.Validate = validate
			}
			if cmd.Flags().Changed("keep-data-generations") {
				opts.KeepDataGenerations = keepGenerations
			}
			if cmd.Flags().Changed("keep-data-days") {
				opts.KeepDataDays = keepDays
			}

			if opts.Check {
				fmt.Fprintln(os.Stdout, "pg_arman: check OK, no backup taken")
				return nil
			}

			log := newLogger(opts).WithRun(logging.GenerateRunID())
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rec, err := orchestrator.Run(ctx, orchestrator.Options{
				PGData:           opts.PGData,
				ArclogPath:       opts.ArclogPath,
				BackupPath:       opts.BackupPath,
				Mode:             catalogMode,
				SmoothCheckpoint: opts.SmoothCheckpoint,
				KeepGenerations:  opts.KeepDataGenerations,
				KeepDays:         opts.KeepDataDays,
				Conn:             connConfig(opts),
				Logger:           log,
			})
			if err != nil {
				return err
			}

			if opts.Validate {
				if verr := verifyRecord(opts.BackupPath, rec); verr != nil {
					return errkind.Wrap(errkind.Corruption, "post-backup validation failed", verr)
				}
			}

			if !opts.Quiet {
				fmt.Fprintf(os.Stdout, "backup %s completed (%s), %d bytes written\n", rec.ID, rec.Mode, rec.BytesWritten)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "backup-mode", "b", "", "backup mode: full or page")
	cmd.Flags().BoolVarP(&smoothCheckpoint, "smooth-checkpoint", "C", false, "request a smooth (spread-out) checkpoint")
	cmd.Flags().BoolVar(&validate, "validate", false, "validate the backup immediately after it completes")
	cmd.Flags().IntVar(&keepGenerations, "keep-data-generations", 0, "retain this many recent FULL backups per timeline")
	cmd.Flags().IntVar(&keepDays, "keep-data-days", 0, "retain backups younger than this many days")

	return cmd
}

func parseBackupMode(s string) (catalog.Mode, bool) {
	switch s {
	case "full":
		return catalog.ModeFull, true
	case "page":
		return catalog.ModeDiffPage, true
	default:
		return "", false
	}
}

func newLogger(opts config.Options) logging.Logger {
	level := "info"
	if opts.Verbose {
		level = "debug"
	}
	if opts.Quiet {
		level = "error"
	}
	return logging.New(logging.Config{Level: level, Format: "text", Output: "stderr"})
}
