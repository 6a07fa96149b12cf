package scanner

// excludeList is the set of data-directory entries, relative to the
// data directory root, that a backup must never copy: runtime-only
// state that is either regenerated on startup or meaningless once
// detached from the running server that wrote it.
//
// Keyed by server major version because the WAL subdirectory name and
// the statistics temp file location have changed across releases. The
// engine is built against one version; a second version's row is a
// pure data addition to this table, not a code change.
type excludeList struct {
	majorVersion int
	dirs         []string
	files        []string
}

var excludeTables = []excludeList{
	{
		majorVersion: 10, // covers the engine's supported 10.x-and-later line
		dirs: []string{
			"pg_wal",
			"pg_xlog", // pre-10 name, kept for a server that was upgraded in place
			"pg_stat_tmp",
			"pg_replslot",
			"pg_dynshmem",
			"pg_notify",
			"pg_serial",
			"pg_snapshots",
			"pg_subtrans",
		},
		files: []string{
			"postmaster.pid",
			"postmaster.opts",
			"backup_label",
			"backup_label.old",
			"tablespace_map",
			"pg_internal.init",
		},
	},
}

// excludeFor returns the exclusion table for majorVersion, or the
// highest-numbered table at or below it. There is exactly one row
// today; this fallback is what lets a second row be added later
// without touching the scanner itself.
func excludeFor(majorVersion int) excludeList {
	best := excludeTables[0]
	for _, t := range excludeTables {
		if t.majorVersion <= majorVersion && t.majorVersion > best.majorVersion {
			best = t
		}
	}
	return best
}

func (e excludeList) excludesDir(name string) bool {
	for _, d := range e.dirs {
		if name == d {
			return true
		}
	}
	return false
}

func (e excludeList) excludesFile(name string) bool {
	for _, f := range e.files {
		if name == f {
			return true
		}
	}
	return false
}
