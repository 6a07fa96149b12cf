// Package relfile names the on-disk identity of a relation file: which
// tablespace/database/relation it belongs to, which fork, and which
// RELSEG_SIZE-block segment.
package relfile

import (
	"fmt"
	"strconv"
	"strings"
)

// RELSEGSize is the number of blocks in one relation segment before the
// server starts a new numbered segment file.
const RELSEGSize uint32 = 131072 // 1GiB of 8KiB blocks

// Fork identifies which numbered auxiliary stream of a relation a block
// belongs to.
type Fork uint8

const (
	ForkMain Fork = iota
	ForkFSM
	ForkVisibility
	ForkInit
)

// String returns the fork name the server appends to a relation's
// filename after an underscore ("" for main, "fsm", "vm", "init").
func (f Fork) String() string {
	switch f {
	case ForkMain:
		return ""
	case ForkFSM:
		return "fsm"
	case ForkVisibility:
		return "vm"
	case ForkInit:
		return "init"
	default:
		return "unknown"
	}
}

// ParseFork maps a filename suffix back to a Fork. ok is false for a
// suffix that is not a recognized fork (the caller should treat the
// file as main-fork, segment-suffixed, or not a relation file at all).
func ParseFork(suffix string) (Fork, bool) {
	switch suffix {
	case "fsm":
		return ForkFSM, true
	case "vm":
		return ForkVisibility, true
	case "init":
		return ForkInit, true
	default:
		return ForkMain, false
	}
}

// Node identifies a relation independent of fork or segment: the
// tablespace it lives in, the database it belongs to, and its relfilenode.
type Node struct {
	Tablespace uint32
	Database   uint32
	RelNode    uint32
}

// Key is a comparable identity for a relation segment file, suitable as
// a map key for the page map and the orchestrator's file sink.
type Key struct {
	Node    Node
	Fork    Fork
	Segment uint32
}

// String renders the key the way it appears in diagnostics, e.g.
// "1663/16384/16401_vm.2".
func (k Key) String() string {
	s := fmt.Sprintf("%d/%d/%d", k.Node.Tablespace, k.Node.Database, k.Node.RelNode)
	if suffix := k.Fork.String(); suffix != "" {
		s += "_" + suffix
	}
	if k.Segment > 0 {
		s += "." + strconv.FormatUint(uint64(k.Segment), 10)
	}
	return s
}

// ParseSegmentFileName splits a relation segment's on-disk basename
// (e.g. "16401_vm.2" or "16401") into its relfilenode, fork, and segment
// number. It does not know the relation's tablespace or database; the
// caller supplies those from the directory the file was found in.
func ParseSegmentFileName(name string) (relNode uint32, fork Fork, segment uint32, ok bool) {
	base := name
	if dot := strings.LastIndexByte(base, '.'); dot >= 0 {
		segStr := base[dot+1:]
		n, err := strconv.ParseUint(segStr, 10, 32)
		if err != nil {
			return 0, 0, 0, false
		}
		segment = uint32(n)
		base = base[:dot]
	}

	fork = ForkMain
	if us := strings.LastIndexByte(base, '_'); us >= 0 {
		if f, recognized := ParseFork(base[us+1:]); recognized {
			fork = f
			base = base[:us]
		}
	}

	n, err := strconv.ParseUint(base, 10, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint32(n), fork, segment, true
}

// KeyFromRelPath derives a segment Key from a data-directory-relative
// path. "global/<file>" implies database 0, tablespace 0 (pg_default).
// "base/<dbOid>/<file>" implies the named database, tablespace 0.
// "pg_tblspc/<tsOid>/.../<dbOid>/<file>" implies the named tablespace
// and database; the server interposes a catalog-version-named
// directory between tsOid and dbOid (added in PG 9.0's per-version
// tablespace layout), so only the first and last-two path segments are
// fixed rather than a particular depth. ok is false for anything that
// doesn't look like a relation segment file.
func KeyFromRelPath(rel string) (Key, bool) {
	parts := strings.Split(rel, "/")

	var tsOid, dbOid uint32
	var file string
	switch {
	case len(parts) == 2 && parts[0] == "global":
		file = parts[1]
	case len(parts) == 3 && parts[0] == "base":
		n, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return Key{}, false
		}
		dbOid = uint32(n)
		file = parts[2]
	case len(parts) >= 4 && parts[0] == "pg_tblspc":
		ts, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return Key{}, false
		}
		db, err := strconv.ParseUint(parts[len(parts)-2], 10, 32)
		if err != nil {
			return Key{}, false
		}
		tsOid = uint32(ts)
		dbOid = uint32(db)
		file = parts[len(parts)-1]
	default:
		return Key{}, false
	}

	relNode, fork, segment, ok := ParseSegmentFileName(file)
	if !ok {
		return Key{}, false
	}
	return Key{Node: Node{Tablespace: tsOid, Database: dbOid, RelNode: relNode}, Fork: fork, Segment: segment}, true
}

// SegmentFileName returns the on-disk basename for (relNode, fork, segment).
func SegmentFileName(relNode uint32, fork Fork, segment uint32) string {
	name := strconv.FormatUint(uint64(relNode), 10)
	if suffix := fork.String(); suffix != "" {
		name += "_" + suffix
	}
	if segment > 0 {
		name += "." + strconv.FormatUint(uint64(segment), 10)
	}
	return name
}
