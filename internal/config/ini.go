package config

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// valueKind is the type a configuration key's value must parse as.
type valueKind int

const (
	kindString valueKind = iota
	kindBool
	kindInt
)

// schema is the closed set of long-option keys pg_arman.ini may set,
// matching the engine's long-form flags one for one. A key outside
// this set is a configuration error, never silently ignored.
var schema = map[string]valueKind{
	"pgdata":                    kindString,
	"arclog-path":               kindString,
	"backup-path":               kindString,
	"check":                     kindBool,
	"backup-mode":               kindString,
	"smooth-checkpoint":         kindBool,
	"validate":                  kindBool,
	"keep-data-generations":     kindInt,
	"keep-data-days":            kindInt,
	"recovery-target-time":      kindString,
	"recovery-target-xid":       kindInt,
	"recovery-target-inclusive": kindBool,
	"recovery-target-timeline":  kindInt,
	"dbname":                    kindString,
	"host":                      kindString,
	"port":                      kindString,
	"username":                  kindString,
	"no-password":               kindBool,
	"password":                  kindBool,
	"quiet":                     kindBool,
	"verbose":                   kindBool,
}

// ParseResult is the outcome of reading one ini file: the raw
// key=value pairs it set, plus any non-fatal warnings (malformed
// lines that were skipped rather than rejected).
type ParseResult struct {
	Values   map[string]string
	Warnings []string
}

// ParseINI parses the key=value format used by pg_arman.ini. A line
// with no '=' produces a warning and is skipped rather than failing
// the whole file; a line whose key is not in schema is a hard error,
// since an unrecognized key is almost always a typo the operator
// needs to see immediately.
func ParseINI(data []byte) (*ParseResult, error) {
	res := &ParseResult{Values: make(map[string]string)}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: missing '=', ignored: %q", lineNo, line))
			continue
		}

		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		value = unquote(value)

		if key == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: missing key before '=', ignored: %q", lineNo, line))
			continue
		}

		if _, ok := schema[key]; !ok {
			return nil, fmt.Errorf("unrecognized configuration key: %q (line %d)", key, lineNo)
		}

		if err := typeCheck(key, value); err != nil {
			return nil, err
		}

		res.Values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: reading ini data: %w", err)
	}
	return res, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// typeCheck validates value against key's declared kind, producing the
// exact diagnostic wording the boundary scenarios require for integer
// mismatches (e.g. --keep-data-generations=TRUE).
func typeCheck(key, value string) error {
	switch schema[key] {
	case kindInt:
		if _, err := strconv.ParseInt(value, 10, 32); err != nil {
			return fmt.Errorf("should be a 32bit signed integer: '%s'", value)
		}
	case kindBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("should be a boolean value: '%s'", value)
		}
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	default:
		return false, fmt.Errorf("config: %q is not a boolean", s)
	}
}

// Apply merges values into opts, overwriting only the fields values sets.
func Apply(values map[string]string, opts *Options) error {
	for key, value := range values {
		switch key {
		case "pgdata":
			opts.PGData = value
		case "arclog-path":
			opts.ArclogPath = value
		case "backup-path":
			opts.BackupPath = value
		case "check":
			opts.Check, _ = parseBool(value)
		case "backup-mode":
			opts.BackupMode = value
		case "smooth-checkpoint":
			opts.SmoothCheckpoint, _ = parseBool(value)
		case "validate":
			opts.Validate, _ = parseBool(value)
		case "keep-data-generations":
			n, err := strconv.ParseInt(value, 10, 32)
			if err != nil {
				return fmt.Errorf("should be a 32bit signed integer: '%s'", value)
			}
			opts.KeepDataGenerations = int(n)
		case "keep-data-days":
			n, err := strconv.ParseInt(value, 10, 32)
			if err != nil {
				return fmt.Errorf("should be a 32bit signed integer: '%s'", value)
			}
			opts.KeepDataDays = int(n)
		case "recovery-target-time":
			opts.RecoveryTargetTime = value
		case "recovery-target-xid":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return fmt.Errorf("should be a 32bit signed integer: '%s'", value)
			}
			opts.RecoveryTargetXID = uint32(n)
		case "recovery-target-inclusive":
			opts.RecoveryTargetInclusive, _ = parseBool(value)
		case "recovery-target-timeline":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return fmt.Errorf("should be a 32bit signed integer: '%s'", value)
			}
			opts.RecoveryTargetTimeline = uint32(n)
		case "dbname":
			opts.DBName = value
		case "host":
			opts.Host = value
		case "port":
			opts.Port = value
		case "username":
			opts.User = value
		case "no-password":
			opts.NoPassword, _ = parseBool(value)
		case "password":
			opts.Password, _ = parseBool(value)
		case "quiet":
			opts.Quiet, _ = parseBool(value)
		case "verbose":
			opts.Verbose, _ = parseBool(value)
		}
	}
	return nil
}
