package catalog

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/KilimcininKorOglu/pgarman/internal/pgtime"
)

const manifestFileName = "backup.ini"

// WriteManifest serializes r to root/backup/<r.ID>/backup.ini via a
// write-to-temp-then-rename so a concurrent reader always sees either
// the previous manifest or the complete new one, never a torn file.
func WriteManifest(root string, r *Record) error {
	dir := RecordDir(root, r.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("catalog: creating record directory %s: %w", dir, err)
	}

	var buf bytes.Buffer
	writeField(&buf, "id", r.ID)
	writeField(&buf, "mode", string(r.Mode))
	writeField(&buf, "status", string(r.Status))
	writeField(&buf, "timeline", strconv.FormatUint(uint64(r.Timeline), 10))
	writeField(&buf, "start-lsn", r.StartLSN.String())
	writeField(&buf, "stop-lsn", r.StopLSN.String())
	writeField(&buf, "recovery-xid", strconv.FormatUint(uint64(r.RecoveryXID), 10))
	writeField(&buf, "recovery-time", formatTime(r.RecoveryTime))
	writeField(&buf, "block-size", strconv.Itoa(r.BlockSize))
	writeField(&buf, "wal-block-size", strconv.Itoa(r.WALBlockSize))
	writeField(&buf, "bytes-read", strconv.FormatInt(r.BytesRead, 10))
	writeField(&buf, "bytes-written", strconv.FormatInt(r.BytesWritten, 10))
	writeField(&buf, "start-time", formatTime(r.StartTime))
	writeField(&buf, "end-time", formatTime(r.EndTime))

	target := filepath.Join(dir, manifestFileName)
	tmp, err := os.CreateTemp(dir, manifestFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("catalog: creating temp manifest in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("catalog: writing temp manifest %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("catalog: closing temp manifest %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("catalog: renaming %s to %s: %w", tmpPath, target, err)
	}
	return nil
}

func writeField(buf *bytes.Buffer, key, value string) {
	fmt.Fprintf(buf, "%s = %s\n", key, value)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// ReadManifest reads root/backup/id/backup.ini back into a Record.
func ReadManifest(root, id string) (*Record, error) {
	path := filepath.Join(RecordDir(root, id), manifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading manifest %s: %w", path, err)
	}

	r := &Record{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])

		var err error
		switch key {
		case "id":
			r.ID = value
		case "mode":
			r.Mode = Mode(value)
		case "status":
			r.Status = Status(value)
		case "timeline":
			var n uint64
			n, err = strconv.ParseUint(value, 10, 32)
			r.Timeline = pgtime.Timeline(n)
		case "start-lsn":
			r.StartLSN, err = pgtime.ParseLSN(value)
		case "stop-lsn":
			r.StopLSN, err = pgtime.ParseLSN(value)
		case "recovery-xid":
			var n uint64
			n, err = strconv.ParseUint(value, 10, 32)
			r.RecoveryXID = uint32(n)
		case "recovery-time":
			r.RecoveryTime, err = parseTime(value)
		case "block-size":
			r.BlockSize, err = strconv.Atoi(value)
		case "wal-block-size":
			r.WALBlockSize, err = strconv.Atoi(value)
		case "bytes-read":
			r.BytesRead, err = strconv.ParseInt(value, 10, 64)
		case "bytes-written":
			r.BytesWritten, err = strconv.ParseInt(value, 10, 64)
		case "start-time":
			r.StartTime, err = parseTime(value)
		case "end-time":
			r.EndTime, err = parseTime(value)
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: manifest %s: field %q: %w", path, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("catalog: reading manifest %s: %w", path, err)
	}
	return r, nil
}
