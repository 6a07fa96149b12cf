package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KilimcininKorOglu/pgarman/internal/config"
	"github.com/KilimcininKorOglu/pgarman/internal/serverdriver"
)

// commonFlags holds the flags every subcommand accepts, registered
// once on the root command's persistent flag set.
type commonFlags struct {
	pgdata     string
	arclogPath string
	backupPath string
	check      bool

	dbname     string
	host       string
	port       string
	user       string
	noPassword bool
	password   bool

	quiet   bool
	verbose bool
}

func registerCommonFlags(fs *pflag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.pgdata, "pgdata", "D", "", "data directory")
	fs.StringVarP(&f.arclogPath, "arclog-path", "A", "", "WAL archive directory")
	fs.StringVarP(&f.backupPath, "backup-path", "B", "", "catalog directory")
	fs.BoolVarP(&f.check, "check", "c", false, "dry run: validate inputs without copying")

	fs.StringVarP(&f.dbname, "dbname", "d", "", "database name to connect to")
	fs.StringVarP(&f.host, "host", "h", "", "database server host")
	fs.StringVarP(&f.port, "port", "p", "", "database server port")
	fs.StringVarP(&f.user, "username", "U", "", "database user name")
	fs.BoolVarP(&f.noPassword, "no-password", "w", false, "never prompt for a password")
	fs.BoolVarP(&f.password, "password", "W", false, "force a password prompt")

	fs.BoolVarP(&f.quiet, "quiet", "q", false, "suppress non-error output")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "verbose output")
}

// mergeOptions loads pg_arman.ini (under the backup-path flag) and
// the environment, then overlays any common flag the caller actually
// passed on the command line, since flags outrank everything else.
func mergeOptions(cmd *cobra.Command, f *commonFlags) (config.Options, []string, error) {
	opts, warnings, err := config.Load(f.backupPath)
	if err != nil {
		return opts, warnings, err
	}

	changed := cmd.Flags().Changed
	if changed("pgdata") {
		opts.PGData = f.pgdata
	}
	if changed("backup-path") {
		opts.BackupPath = f.backupPath
	}
	if changed("arclog-path") {
		opts.ArclogPath = f.arclogPath
	}
	if changed("check") {
		opts.Check = f.check
	}
	if changed("dbname") {
		opts.DBName = f.dbname
	}
	if changed("host") {
		opts.Host = f.host
	}
	if changed("port") {
		opts.Port = f.port
	}
	if changed("username") {
		opts.User = f.user
	}
	if changed("no-password") {
		opts.NoPassword = f.noPassword
	}
	if changed("password") {
		opts.Password = f.password
	}
	if changed("quiet") {
		opts.Quiet = f.quiet
	}
	if changed("verbose") {
		opts.Verbose = f.verbose
	}

	return opts, warnings, nil
}

// connConfig builds the server connection parameters from a merged
// Options value. The actual password, like every other libpq client,
// comes from PGPASSWORD rather than a command-line flag; -W only
// forces a prompt pg_arman does not implement, and is accepted for
// compatibility with the flag's presence in spec.md's surface.
func connConfig(opts config.Options) serverdriver.ConnConfig {
	return serverdriver.ConnConfig{
		DBName:     opts.DBName,
		Host:       opts.Host,
		Port:       opts.Port,
		User:       opts.User,
		Password:   os.Getenv("PGPASSWORD"),
		NoPassword: opts.NoPassword,
	}
}
