// Command pg_arman is a backup and point-in-time-recovery manager for
// a PostgreSQL-compatible data directory: physical FULL and DIFF_PAGE
// backups into a local catalog, plus restore, validate, show, and
// delete against that catalog.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KilimcininKorOglu/pgarman/internal/errkind"
)

const versionString = "pg_arman 0.1"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run builds and executes the command tree, returning the process
// exit code. It is separated from main so tests can drive it without
// calling os.Exit.
func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pg_arman: %v\n", err)
		return errkind.As(err).ExitCode()
	}
	return 0
}

func newRootCmd() *cobra.Command {
	flags := &commonFlags{}
	var showVersion bool

	root := &cobra.Command{
		Use:           "pg_arman",
		Short:         "Backup and PITR manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintln(os.Stdout, versionString)
				return nil
			}
			return cmd.Help()
		},
	}

	root.PersistentFlags().BoolVar(&showVersion, "version", false, "print version and exit")
	root.PersistentFlags().Bool("help", false, "help for pg_arman")
	registerCommonFlags(root.PersistentFlags(), flags)

	root.AddCommand(newInitCmd(flags))
	root.AddCommand(newBackupCmd(flags))
	root.AddCommand(newRestoreCmd(flags))
	root.AddCommand(newShowCmd(flags))
	root.AddCommand(newValidateCmd(flags))
	root.AddCommand(newDeleteCmd(flags))

	return root
}
