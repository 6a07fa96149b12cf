// Package serverdriver talks to the database server over its native
// client protocol to coordinate a physical backup: starting and
// stopping the server-side backup window, forcing a WAL switch,
// reading the current transaction id, and waiting for WAL segments to
// reach the archive.
package serverdriver

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/KilimcininKorOglu/pgarman/internal/filecopy"
	"github.com/KilimcininKorOglu/pgarman/internal/pgtime"
)

// EngineMajorVersion and EngineMinorVersion are the server release the
// engine was built and validated against. CheckVersion refuses to run
// against anything else.
const (
	EngineMajorVersion = 16
	EngineMinorVersion = 0
)

// ConnConfig holds the connection parameters lib/pq needs, mirroring
// the engine's -d/-h/-p/-U/-w/-W flags.
type ConnConfig struct {
	DBName     string
	Host       string
	Port       string
	User       string
	Password   string
	NoPassword bool
}

func (c ConnConfig) dsn() string {
	dsn := fmt.Sprintf("dbname=%s host=%s port=%s user=%s sslmode=prefer",
		sqlQuote(c.DBName), sqlQuote(c.Host), sqlQuote(c.Port), sqlQuote(c.User))
	if !c.NoPassword && c.Password != "" {
		dsn += " password=" + sqlQuote(c.Password)
	}
	return dsn
}

func sqlQuote(s string) string {
	if s == "" {
		return "''"
	}
	return s
}

// Driver is a short-lived connection to the server: opened for one
// operation, closed after, per the engine's no-pooled-connection policy.
type Driver struct {
	db      *sql.DB
	breaker *callBreaker
}

// Open dials the server. The *sql.DB itself is lazy; this also issues
// a trivial ping so connection failures surface immediately as a
// server-kind error instead of surfacing later at an arbitrary call site.
func Open(ctx context.Context, cfg ConnConfig) (*Driver, error) {
	db, err := sql.Open("postgres", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("serverdriver: opening connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("serverdriver: connecting to server: %w", err)
	}
	return &Driver{db: db, breaker: newCallBreaker()}, nil
}

// Close releases the connection.
func (d *Driver) Close() error {
	return d.db.Close()
}

// BlockSizes holds the server's reported block size and WAL block
// size, both in bytes.
type BlockSizes struct {
	BlockSize    int
	WALBlockSize int
}

// CheckVersion reads the server's reported version and its block/WAL
// block sizes, asserts they match what the engine was built for, and
// returns the sizes for the caller to stamp onto the backup record.
func (d *Driver) CheckVersion(ctx context.Context) (BlockSizes, error) {
	var major, minor int
	var sizes BlockSizes
	err := d.breaker.run(ctx, func(ctx context.Context) error {
		if err := d.db.QueryRowContext(ctx, `SHOW server_version_num`).Scan(&versionScanner{&major, &minor}); err != nil {
			return err
		}
		if err := d.db.QueryRowContext(ctx, `SELECT current_setting('block_size')::int`).Scan(&sizes.BlockSize); err != nil {
			return err
		}
		if err := d.db.QueryRowContext(ctx, `SELECT current_setting('wal_block_size')::int`).Scan(&sizes.WALBlockSize); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return BlockSizes{}, fmt.Errorf("serverdriver: checking server version: %w", err)
	}
	if major != EngineMajorVersion || minor != EngineMinorVersion {
		return BlockSizes{}, fmt.Errorf("serverdriver: server version %d.%d does not match engine version %d.%d",
			major, minor, EngineMajorVersion, EngineMinorVersion)
	}
	if sizes.BlockSize != filecopy.BlockSize {
		return BlockSizes{}, fmt.Errorf("serverdriver: server block_size %d does not match engine block size %d", sizes.BlockSize, filecopy.BlockSize)
	}
	if sizes.WALBlockSize != filecopy.BlockSize {
		return BlockSizes{}, fmt.Errorf("serverdriver: server wal_block_size %d does not match engine WAL block size %d", sizes.WALBlockSize, filecopy.BlockSize)
	}
	return sizes, nil
}

// versionScanner decodes a server_version_num integer like 160003 into
// (major, minor), matching the numbering scheme current server
// releases use (major*10000 + minor*100 + patch).
type versionScanner struct {
	major *int
	minor *int
}

func (v *versionScanner) Scan(src interface{}) error {
	n, ok := src.(int64)
	if !ok {
		return fmt.Errorf("serverdriver: unexpected server_version_num type %T", src)
	}
	*v.major = int(n / 10000)
	*v.minor = int(n/100) % 100
	return nil
}

// StartBackup invokes the server's start-backup primitive and returns
// the start log position. fast=!smoothCheckpoint forces an immediate
// checkpoint unless the caller asked for a smooth one.
func (d *Driver) StartBackup(ctx context.Context, label string, smoothCheckpoint bool) (pgtime.LSN, error) {
	var lsnStr string
	err := d.breaker.run(ctx, func(ctx context.Context) error {
		return d.db.QueryRowContext(ctx, `SELECT pg_start_backup($1, $2)`, label, !smoothCheckpoint).Scan(&lsnStr)
	})
	if err != nil {
		return pgtime.InvalidLSN, fmt.Errorf("serverdriver: pg_start_backup: %w", err)
	}
	return pgtime.ParseLSN(lsnStr)
}

// StopBackup invokes the server's stop-backup primitive, returning the
// stop log position. This also triggers archival of the final,
// partially filled WAL segment.
func (d *Driver) StopBackup(ctx context.Context) (pgtime.LSN, error) {
	var lsnStr string
	err := d.breaker.run(ctx, func(ctx context.Context) error {
		return d.db.QueryRowContext(ctx, `SELECT pg_stop_backup()`).Scan(&lsnStr)
	})
	if err != nil {
		return pgtime.InvalidLSN, fmt.Errorf("serverdriver: pg_stop_backup: %w", err)
	}
	return pgtime.ParseLSN(lsnStr)
}

// ForceSwitch invokes the server's WAL-switch primitive and returns
// the position of the switch.
func (d *Driver) ForceSwitch(ctx context.Context) (pgtime.LSN, error) {
	var lsnStr string
	err := d.breaker.run(ctx, func(ctx context.Context) error {
		return d.db.QueryRowContext(ctx, `SELECT pg_switch_wal()`).Scan(&lsnStr)
	})
	if err != nil {
		return pgtime.InvalidLSN, fmt.Errorf("serverdriver: pg_switch_wal: %w", err)
	}
	return pgtime.ParseLSN(lsnStr)
}

// CurrentTxid returns the server's current transaction id, used as
// the backup's recovery-target XID.
func (d *Driver) CurrentTxid(ctx context.Context) (uint32, error) {
	var txid int64
	err := d.breaker.run(ctx, func(ctx context.Context) error {
		return d.db.QueryRowContext(ctx, `SELECT txid_current()`).Scan(&txid)
	})
	if err != nil {
		return 0, fmt.Errorf("serverdriver: txid_current: %w", err)
	}
	return uint32(txid), nil
}

// CurrentTimeline returns the server's current timeline identifier.
func (d *Driver) CurrentTimeline(ctx context.Context) (pgtime.Timeline, error) {
	var tli int64
	err := d.breaker.run(ctx, func(ctx context.Context) error {
		return d.db.QueryRowContext(ctx, `SELECT timeline_id FROM pg_control_checkpoint()`).Scan(&tli)
	})
	if err != nil {
		return 0, fmt.Errorf("serverdriver: reading current timeline: %w", err)
	}
	return pgtime.Timeline(tli), nil
}
