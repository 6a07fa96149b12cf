package serverdriver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/KilimcininKorOglu/pgarman/internal/pgtime"
)

// ErrArchiveTimeout is returned by WaitForArchive when the segment's
// .ready marker is still present after the fixed 10s budget.
var ErrArchiveTimeout = errors.New("serverdriver: WAL segment did not reach the archive within 10s")

// ErrInterrupted is returned by WaitForArchive when interrupted
// reports true between polls.
var ErrInterrupted = errors.New("serverdriver: interrupted while waiting for archive")

var (
	nowFunc   = time.Now
	sleepFunc = time.Sleep
)

const archiveWaitTimeout = 10 * time.Second
const archiveWaitInterval = 1 * time.Second

// WaitForArchive computes the WAL segment file name for (timeline,
// pos) and polls archiveStatusDir for the disappearance of its .ready
// marker, sleeping archiveWaitInterval between polls and checking
// interrupted at every loop top.
func WaitForArchive(ctx context.Context, archiveStatusDir string, tli pgtime.Timeline, pos pgtime.LSN, interrupted func() bool) error {
	segName := pgtime.SegmentFileName(tli, pos.SegmentNumber())
	readyPath := filepath.Join(archiveStatusDir, segName+".ready")
	deadline := nowFunc().Add(archiveWaitTimeout)

	for {
		if interrupted != nil && interrupted() {
			return ErrInterrupted
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := os.Stat(readyPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("serverdriver: checking archive status for %s: %w", segName, err)
		}

		if nowFunc().After(deadline) {
			return ErrArchiveTimeout
		}
		sleepFunc(archiveWaitInterval)
	}
}
