package filecopy

import (
	"fmt"
	"time"
)

// nowFunc and sleepFunc are package-level so tests can simulate the
// passage of time without a real one-second sleep.
var (
	nowFunc   = time.Now
	sleepFunc = time.Sleep
)

// ErrClockRewind is returned by WaitOutSameSecond when the wall clock
// is observed to be earlier than a file's recorded modification time.
// The caller should abort the whole backup; a retry in FULL mode is
// the documented recovery.
type ErrClockRewind struct {
	Now   time.Time
	MTime time.Time
}

func (e *ErrClockRewind) Error() string {
	return fmt.Sprintf("filecopy: clock rewind detected: now %s is before file mtime %s", e.Now, e.MTime)
}

// WaitOutSameSecond blocks until the wall clock's second no longer
// matches mtime's second, so a second-resolution filesystem's writes
// in the file's final recorded second are guaranteed to be captured.
// It is fatal, not a wait, if the clock has gone backwards relative to
// mtime.
func WaitOutSameSecond(mtime time.Time) error {
	now := nowFunc()
	if now.Before(mtime) {
		return &ErrClockRewind{Now: now, MTime: mtime}
	}
	for now.Truncate(time.Second).Equal(mtime.Truncate(time.Second)) {
		sleepFunc(100 * time.Millisecond)
		now = nowFunc()
	}
	return nil
}
