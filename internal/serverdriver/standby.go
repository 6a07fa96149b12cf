package serverdriver

import (
	"os"
	"path/filepath"
)

// standbySignalFiles are the data-directory sentinels that mean "this
// cluster is running as a standby", checked without ever connecting
// to the server: a standby in recovery should never be backed up by
// this engine.
var standbySignalFiles = []string{"standby.signal", "recovery.signal", "recovery.conf"}

// IsStandby reports whether pgData looks like a standby's data
// directory. It never touches the network; the presence of any of
// these files is itself the answer.
func IsStandby(pgData string) (bool, error) {
	for _, name := range standbySignalFiles {
		_, err := os.Stat(filepath.Join(pgData, name))
		if err == nil {
			return true, nil
		}
		if !os.IsNotExist(err) {
			return false, err
		}
	}
	return false, nil
}
