// Package orchestrator sequences a single backup invocation: catalog
// locking, server coordination, WAL parsing, file copying, and
// retention, with a crash-cleanup handler that keeps the catalog free
// of torn RUNNING records no matter where the run aborts.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/KilimcininKorOglu/pgarman/internal/catalog"
	"github.com/KilimcininKorOglu/pgarman/internal/errkind"
	"github.com/KilimcininKorOglu/pgarman/internal/logging"
	"github.com/KilimcininKorOglu/pgarman/internal/pagemap"
	"github.com/KilimcininKorOglu/pgarman/internal/scanner"
	"github.com/KilimcininKorOglu/pgarman/internal/serverdriver"
	"github.com/KilimcininKorOglu/pgarman/internal/walparser"
)

// serverMajorVersion is the exclusion table key the scanner uses; it
// tracks serverdriver.EngineMajorVersion.
const serverMajorVersion = serverdriver.EngineMajorVersion

const backupLabelFile = "backup_label"

// Options bundles everything a single backup invocation needs, after
// the configuration layer has merged ini file, environment, and flags.
type Options struct {
	PGData     string
	ArclogPath string
	BackupPath string

	Mode             catalog.Mode
	SmoothCheckpoint bool
	KeepGenerations  int
	KeepDays         int

	Conn serverdriver.ConnConfig

	Logger logging.Logger
}

// Run executes the full 14-step backup sequence and returns the
// finished record. On any fatal error the returned error is an
// *errkind.Error identifying the kind and, via errkind.As, the exit
// code the CLI should use; the record on disk is left in ERROR status
// (or untouched, for Contention) rather than RUNNING.
func Run(ctx context.Context, opts Options) (*catalog.Record, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}

	// Step 1: validate required inputs.
	if opts.PGData == "" || opts.BackupPath == "" || opts.ArclogPath == "" {
		return nil, errkind.New(errkind.Usage, "pgdata, backup-path and arclog-path are all required")
	}
	if opts.Mode != catalog.ModeFull && opts.Mode != catalog.ModeDiffPage {
		return nil, errkind.New(errkind.Usage, fmt.Sprintf("invalid backup-mode %q", opts.Mode))
	}

	// Step 2: acquire the catalog lock.
	lock, err := catalog.AcquireLock(opts.BackupPath)
	if err != nil {
		if err == catalog.ErrLockContention {
			return nil, errkind.Wrap(errkind.Contention, "catalog is locked by another invocation", err)
		}
		return nil, errkind.Wrap(errkind.Environment, "acquiring catalog lock", err)
	}

	record := &catalog.Record{
		Mode:      opts.Mode,
		Status:    catalog.StatusRunning,
		StartTime: startTime(),
	}
	record.ID = catalog.IDFromTime(record.StartTime)
	run := newRun(opts, log.WithRun(record.ID), lock, record)
	defer run.guard.Fire()

	result, err := run.execute(ctx)
	if err != nil {
		return run.record, err
	}
	run.guard.Disarm()
	return result, nil
}

// startTime exists so a future test double can override "now" the way
// filecopy and serverdriver already do; production always calls through.
var startTime = time.Now

// run holds the mutable state threaded through one invocation's steps.
type run struct {
	opts   Options
	log    logging.Logger
	lock   *catalog.Lock
	record *catalog.Record
	guard  *cleanupGuard
	driver *serverdriver.Driver
}

func newRun(opts Options, log logging.Logger, lock *catalog.Lock, record *catalog.Record) *run {
	r := &run{opts: opts, log: log, lock: lock, record: record}
	r.guard = newCleanupGuard(r.cleanup)
	return r
}

// cleanup is the crash-cleanup handler: stop the server-side backup if
// one is still open, flip a RUNNING record to ERROR and persist it,
// then release the catalog lock. It must tolerate running at any
// point after Run acquired the lock, including before a driver
// connection exists.
func (r *run) cleanup() {
	if r.driver != nil {
		if _, err := os.Stat(filepath.Join(r.opts.PGData, backupLabelFile)); err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if _, err := r.driver.StopBackup(ctx); err != nil {
				r.log.Warn("cleanup: stopBackup failed", "error", err)
			}
			cancel()
		}
		r.driver.Close()
	}

	if r.record.Status == catalog.StatusRunning {
		r.record.Status = catalog.StatusError
		r.record.EndTime = time.Now()
		if err := catalog.WriteManifest(r.opts.BackupPath, r.record); err != nil {
			r.log.Error("cleanup: writing error manifest failed", "error", err)
		}
	}

	if err := r.lock.Release(); err != nil {
		r.log.Error("cleanup: releasing catalog lock failed", "error", err)
	}
}

func (r *run) execute(ctx context.Context) (*catalog.Record, error) {
	// Step 4: create the record directory and write the initial manifest.
	dataDir, err := catalog.CreateRecordDirectory(r.opts.BackupPath, r.record.ID)
	if err != nil {
		return nil, errkind.Wrap(errkind.Environment, "creating record directory", err)
	}
	if err := catalog.WriteManifest(r.opts.BackupPath, r.record); err != nil {
		return nil, errkind.Wrap(errkind.Environment, "writing initial manifest", err)
	}
	// Step 5: the cleanup handler is installed by Run's defer-equivalent
	// (the caller fires r.guard on any error return from here on).

	// Step 6: connect, check version, assert not standby.
	driver, err := serverdriver.Open(ctx, r.opts.Conn)
	if err != nil {
		return nil, errkind.Wrap(errkind.Server, "connecting to server", err)
	}
	r.driver = driver

	sizes, err := driver.CheckVersion(ctx)
	if err != nil {
		return nil, errkind.Wrap(errkind.Server, "checking server version", err)
	}
	r.record.BlockSize = sizes.BlockSize
	r.record.WALBlockSize = sizes.WALBlockSize

	standby, err := serverdriver.IsStandby(r.opts.PGData)
	if err != nil {
		return nil, errkind.Wrap(errkind.Environment, "checking for standby signal file", err)
	}
	if standby {
		return nil, errkind.New(errkind.Server, "refusing to back up a standby server")
	}

	timeline, err := driver.CurrentTimeline(ctx)
	if err != nil {
		return nil, errkind.Wrap(errkind.Server, "reading current timeline", err)
	}
	r.record.Timeline = timeline

	// Step 7: locate the FULL parent for a differential backup.
	var parent *catalog.Record
	if r.opts.Mode == catalog.ModeDiffPage {
		list, err := catalog.ListExcluding(r.opts.BackupPath, &timeline, r.record.ID)
		if err != nil {
			return nil, errkind.Wrap(errkind.Environment, "listing catalog", err)
		}
		parent = catalog.LastDataBackup(list, timeline)
		if parent == nil {
			return nil, errkind.New(errkind.Usage, "Valid full backup not found for differential backup")
		}
	}

	// Step 8: start the server-side backup.
	label := backupLabel(r.record.StartTime)
	startLSN, err := driver.StartBackup(ctx, label, r.opts.SmoothCheckpoint)
	if err != nil {
		return nil, errkind.Wrap(errkind.Server, "starting backup", err)
	}
	r.record.StartLSN = startLSN

	// Step 9: verify the backup-label sentinel actually appeared.
	if _, err := os.Stat(filepath.Join(r.opts.PGData, backupLabelFile)); err != nil {
		if _, stopErr := driver.StopBackup(ctx); stopErr != nil {
			r.log.Warn("stopBackup after missing backup-label failed", "error", stopErr)
		}
		return nil, errkind.Wrap(errkind.Protocol, "backup-label did not appear in data directory", err)
	}

	// Step 10: for a differential backup, force a WAL switch, wait for
	// archival, then parse the WAL range into the page map.
	pm := pagemap.New()
	if r.opts.Mode == catalog.ModeDiffPage {
		switchLSN, err := driver.ForceSwitch(ctx)
		if err != nil {
			return nil, errkind.Wrap(errkind.Server, "forcing WAL switch", err)
		}
		archiveStatusDir := filepath.Join(r.opts.PGData, "pg_wal", "archive_status")
		if err := serverdriver.WaitForArchive(ctx, archiveStatusDir, timeline, switchLSN, nil); err != nil {
			return nil, classifyArchiveWaitError(err)
		}
		if err := walparser.Run(ctx, r.opts.ArclogPath, timeline, parent.StartLSN, startLSN, pagemapSink{m: pm}); err != nil {
			return nil, classifyWALError(err)
		}
	}

	// Step 11: scan and copy.
	entries, err := scanner.Scan(r.opts.PGData, serverMajorVersion)
	if err != nil {
		return nil, errkind.Wrap(errkind.Environment, "scanning data directory", err)
	}
	fileEntries, bytesRead, bytesWritten, err := r.copyAll(ctx, dataDir, entries, parent, pm)
	if err != nil {
		return nil, err
	}
	r.record.BytesRead = bytesRead
	r.record.BytesWritten = bytesWritten

	// Step 12: stop the server-side backup.
	stopLSN, err := driver.StopBackup(ctx)
	if err != nil {
		return nil, errkind.Wrap(errkind.Server, "stopping backup", err)
	}
	r.record.StopLSN = stopLSN
	txid, err := driver.CurrentTxid(ctx)
	if err != nil {
		return nil, errkind.Wrap(errkind.Server, "reading current txid", err)
	}
	r.record.RecoveryXID = txid
	r.record.RecoveryTime = time.Now()
	driver.Close()
	r.driver = nil

	// Step 13: write the file manifest and mkdirs script, mark DONE,
	// write final manifest.
	if err := catalog.WriteFileList(r.opts.BackupPath, r.record.ID, fileEntries); err != nil {
		return nil, errkind.Wrap(errkind.Environment, "writing file list", err)
	}
	if err := catalog.WriteMkdirs(r.opts.BackupPath, r.record.ID, directoriesOf(entries)); err != nil {
		return nil, errkind.Wrap(errkind.Environment, "writing mkdirs script", err)
	}
	r.record.Status = catalog.StatusDone
	r.record.EndTime = time.Now()
	if err := catalog.WriteManifest(r.opts.BackupPath, r.record); err != nil {
		return nil, errkind.Wrap(errkind.Environment, "writing final manifest", err)
	}

	// Step 14: apply retention, release the lock.
	list, err := catalog.List(r.opts.BackupPath, nil)
	if err != nil {
		return nil, errkind.Wrap(errkind.Environment, "listing catalog for retention", err)
	}
	if _, err := catalog.Delete(r.opts.BackupPath, list, r.opts.KeepGenerations, r.opts.KeepDays); err != nil {
		return nil, errkind.Wrap(errkind.Environment, "applying retention policy", err)
	}
	if err := r.lock.Release(); err != nil {
		return nil, errkind.Wrap(errkind.Environment, "releasing catalog lock", err)
	}

	return r.record, nil
}

func backupLabel(start time.Time) string {
	return fmt.Sprintf("pg_arman backup, start_time %s", start.UTC().Format(time.RFC3339))
}

func classifyArchiveWaitError(err error) error {
	switch err {
	case serverdriver.ErrArchiveTimeout:
		return errkind.Wrap(errkind.Timeout, "waiting for WAL segment to reach the archive", err)
	case serverdriver.ErrInterrupted:
		return errkind.Wrap(errkind.Interrupt, "interrupted while waiting for archive", err)
	default:
		return errkind.Wrap(errkind.Environment, "waiting for archive", err)
	}
}

func classifyWALError(err error) error {
	switch {
	case errors.Is(err, walparser.ErrMissingSegment):
		return errkind.Wrap(errkind.Environment, "reading WAL", err)
	case errors.Is(err, walparser.ErrCorruptRecord):
		return errkind.Wrap(errkind.Corruption, "reading WAL", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errkind.Wrap(errkind.Interrupt, "reading WAL", err)
	default:
		return errkind.Wrap(errkind.Internal, "reading WAL", err)
	}
}
