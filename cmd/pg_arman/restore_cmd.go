package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/KilimcininKorOglu/pgarman/internal/catalog"
	"github.com/KilimcininKorOglu/pgarman/internal/errkind"
	"github.com/KilimcininKorOglu/pgarman/internal/restore"
)

func newRestoreCmd(f *commonFlags) *cobra.Command {
	var targetDate string
	var targetTime string
	var targetXID string
	var targetInclusive bool
	var targetTimeline string

	cmd := &cobra.Command{
		Use:           "restore [DATE]",
		Short:         "Restore a backup (and, for DIFF_PAGE, its FULL parent) into PGDATA",
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
			if opts.PGData == "" {
				return errkind.New(errkind.Usage, "required parameter not specified: PGDATA (-D, --pgdata)")
			}
			if len(args) == 1 {
				targetDate = args[0]
			}

			list, err := catalog.List(opts.BackupPath, nil)
			if err != nil {
				return errkind.Wrap(errkind.Environment, "listing catalog", err)
			}
			target, err := restore.FindRecord(list, targetDate)
			if err != nil {
				return errkind.Wrap(errkind.Usage, "resolving backup to restore", err)
			}
			chain, err := restore.Chain(list, target)
			if err != nil {
				return err
			}

			if opts.Check {
				fmt.Fprintf(os.Stdout, "pg_arman: check OK, would restore %s (%d record(s) in chain)\n", target.ID, len(chain))
				return nil
			}

			if err := restore.Apply(opts.BackupPath, chain, opts.PGData); err != nil {
				return err
			}

			if err := writeRecoverySignal(opts.PGData, recoveryTarget{
				time:      targetTime,
				xid:       targetXID,
				inclusive: targetInclusive,
				timeline:  targetTimeline,
			}); err != nil {
				return errkind.Wrap(errkind.Environment, "writing recovery signal", err)
			}

			if !opts.Quiet {
				fmt.Fprintf(os.Stdout, "restored %s into %s\n", target.ID, opts.PGData)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&targetTime, "recovery-target-time", "", "recover up to this timestamp")
	cmd.Flags().StringVar(&targetXID, "recovery-target-xid", "", "recover up to this transaction id")
	cmd.Flags().BoolVar(&targetInclusive, "recovery-target-inclusive", true, "include the target transaction/timestamp itself")
	cmd.Flags().StringVar(&targetTimeline, "recovery-target-timeline", "", "timeline to recover into")

	return cmd
}

type recoveryTarget struct {
	time, xid, timeline string
	inclusive           bool
}

// writeRecoverySignal drops a recovery.signal-equivalent marker plus a
// minimal key=value recovery configuration into dataDir. Generating
// the server's full recovery-configuration dialect (restore_command,
// connection info, etc.) is out of scope; this is a template the
// operator fills in, not a server-version-aware generator.
func writeRecoverySignal(dataDir string, t recoveryTarget) error {
	if err := os.WriteFile(filepath.Join(dataDir, "recovery.signal"), nil, 0o644); err != nil {
		return err
	}

	if t.time == "" && t.xid == "" && t.timeline == "" {
		return nil
	}

	var body string
	body += "# recovery target, written by pg_arman restore\n"
	if t.time != "" {
		body += "recovery_target_time = '" + t.time + "'\n"
	}
	if t.xid != "" {
		if _, err := strconv.ParseUint(t.xid, 10, 32); err != nil {
			return fmt.Errorf("restore: invalid --recovery-target-xid %q: %w", t.xid, err)
		}
		body += "recovery_target_xid = '" + t.xid + "'\n"
	}
	if t.timeline != "" {
		body += "recovery_target_timeline = '" + t.timeline + "'\n"
	}
	body += fmt.Sprintf("recovery_target_inclusive = %t\n", t.inclusive)

	return os.WriteFile(filepath.Join(dataDir, "pg_arman_recovery.conf"), []byte(body), 0o644)
}
