// Package config loads pg_arman.ini and merges it with command-line
// flags and environment variables into a single Options value.
//
// Precedence, lowest to highest: built-in defaults, pg_arman.ini,
// PGDATA/BACKUP_PATH/ARCLOG_PATH environment variables, explicit flags.
package config

// Options holds every setting the engine's subcommands read, after
// merging the ini file, the environment, and command-line flags.
type Options struct {
	PGData     string
	ArclogPath string
	BackupPath string
	Check      bool

	BackupMode          string // "full" or "page"
	SmoothCheckpoint    bool
	Validate            bool
	KeepDataGenerations int
	KeepDataDays        int

	RecoveryTargetTime      string
	RecoveryTargetXID       uint32
	RecoveryTargetInclusive bool
	RecoveryTargetTimeline  uint32

	DBName     string
	Host       string
	Port       string
	User       string
	NoPassword bool
	Password   bool

	Quiet   bool
	Verbose bool
}

// Default returns an Options populated with the engine's built-in
// defaults. BackupMode is deliberately left empty: spec.md requires an
// explicit -b/--backup-mode on every backup invocation, so the CLI
// treats an empty value as "not specified" rather than assuming FULL.
func Default() Options {
	return Options{
		KeepDataGenerations: 0,
		KeepDataDays:        0,
		Port:                "5432",
	}
}
