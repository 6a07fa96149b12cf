package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KilimcininKorOglu/pgarman/internal/catalog"
	"github.com/KilimcininKorOglu/pgarman/internal/errkind"
	"github.com/KilimcininKorOglu/pgarman/internal/restore"
)

func newShowCmd(f *commonFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show [DATE]",
		Short:         "List backups, or show one backup's full manifest",
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

			list, err := catalog.List(opts.BackupPath, nil)
			if err != nil {
				return errkind.Wrap(errkind.Environment, "listing catalog", err)
			}

			if len(args) == 0 {
				printCatalogTable(os.Stdout, list)
				return nil
			}
			rec, err := findByDateOrID(list, args[0])
			if err != nil {
				return errkind.Wrap(errkind.Usage, "resolving DATE", err)
			}
			printManifest(os.Stdout, rec)
			return nil
		},
	}
	return cmd
}

func printCatalogTable(w *os.File, list []*catalog.Record) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODE\tSTATUS\tTIMELINE\tSTART\tEND\tBYTES WRITTEN")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%d\n",
			r.ID, r.Mode, r.Status, r.Timeline,
			r.StartTime.UTC().Format("2006-01-02 15:04:05"),
			formatEndTime(r),
			r.BytesWritten)
	}
	tw.Flush()
}

func formatEndTime(r *catalog.Record) string {
	if r.EndTime.IsZero() {
		return "-"
	}
	return r.EndTime.UTC().Format("2006-01-02 15:04:05")
}

func printManifest(w *os.File, r *catalog.Record) {
	fmt.Fprintf(w, "id                = %s\n", r.ID)
	fmt.Fprintf(w, "mode              = %s\n", r.Mode)
	fmt.Fprintf(w, "status            = %s\n", r.Status)
	fmt.Fprintf(w, "timeline          = %d\n", r.Timeline)
	fmt.Fprintf(w, "start-lsn         = %s\n", r.StartLSN)
	fmt.Fprintf(w, "stop-lsn          = %s\n", r.StopLSN)
	fmt.Fprintf(w, "recovery-xid      = %d\n", r.RecoveryXID)
	fmt.Fprintf(w, "recovery-time     = %s\n", r.RecoveryTime.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "block-size        = %d\n", r.BlockSize)
	fmt.Fprintf(w, "wal-block-size    = %d\n", r.WALBlockSize)
	fmt.Fprintf(w, "bytes-read        = %d\n", r.BytesRead)
	fmt.Fprintf(w, "bytes-written     = %d\n", r.BytesWritten)
	fmt.Fprintf(w, "start-time        = %s\n", r.StartTime.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "end-time          = %s\n", formatEndTime(r))
}

// findByDateOrID resolves args[0] against list either as an exact
// catalog ID or, failing that, as a DATE (nearest record at or before).
func findByDateOrID(list []*catalog.Record, arg string) (*catalog.Record, error) {
	for _, r := range list {
		if r.ID == arg {
			return r, nil
		}
	}
	return restore.FindRecord(list, arg)
}
