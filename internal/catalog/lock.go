package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ErrLockContention is returned by AcquireLock when another invocation
// already holds the catalog lock. The caller must not have touched
// any other catalog state before seeing this error.
var ErrLockContention = errors.New("catalog: lock is held by another invocation")

const lockFileName = "backup.lock"

// Lock represents the catalog's single exclusive lock, held for the
// duration of one engine invocation. Exactly one invocation per
// catalog may hold it at a time.
type Lock struct {
	path  string
	token string
}

// AcquireLock creates the exclusive lock file under root. It
// distinguishes (acquired, contention, I/O error) the way the
// specification requires: contention never mutates catalog state
// beyond the failed create attempt itself.
func AcquireLock(root string) (*Lock, error) {
	path := filepath.Join(root, lockFileName)
	token := uuid.NewString()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLockContention
		}
		return nil, fmt.Errorf("catalog: creating lock file %s: %w", path, err)
	}
	defer f.Close()

	hostname, _ := os.Hostname()
	body := fmt.Sprintf("%d\n%s\n%s\n%s\n",
		os.Getpid(), hostname, token, time.Now().UTC().Format(time.RFC3339))
	if _, err := f.WriteString(body); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("catalog: writing lock file %s: %w", path, err)
	}

	return &Lock{path: path, token: token}, nil
}

// Release removes the lock file. It is safe to call more than once;
// the second call observes the file already gone and returns nil,
// since the cleanup handler's release step must be idempotent.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	err := os.Remove(l.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("catalog: releasing lock file %s: %w", l.path, err)
	}
	return nil
}

// ReadLockHolder reports the pid recorded in an existing lock file,
// for diagnostics when a stale lock is suspected.
func ReadLockHolder(root string) (pid int, hostname, token string, err error) {
	data, err := os.ReadFile(filepath.Join(root, lockFileName))
	if err != nil {
		return 0, "", "", err
	}
	lines := splitLines(string(data))
	if len(lines) < 3 {
		return 0, "", "", fmt.Errorf("catalog: malformed lock file")
	}
	pid, convErr := strconv.Atoi(lines[0])
	if convErr != nil {
		return 0, "", "", fmt.Errorf("catalog: malformed lock file pid: %w", convErr)
	}
	return pid, lines[1], lines[2], nil
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}
