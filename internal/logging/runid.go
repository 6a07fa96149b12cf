// Package logging provides structured logging for the backup engine.
package logging

import (
	"crypto/rand"
	"encoding/hex"
	"sync/atomic"
	"time"
)

// runIDCounter is used for generating sequential run IDs.
var runIDCounter uint64

// GenerateRunID generates a unique ID for tagging one invocation's log
// lines before a catalog record exists to tag them with instead (a
// failed backup can die before step 4 writes the initial manifest, a
// --check dry run never writes one at all).
// The format is: timestamp-counter-random (e.g., "65d48180-0001-a1b2c3d4": the Unix time 1708425600 in hex, the counter as four hex digits, then eight random hex digits)
func GenerateRunID() string {
	// Get timestamp in seconds
	ts := time.Now().Unix()

	// Increment counter
	counter := atomic.AddUint64(&runIDCounter, 1)

	// Generate random suffix
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		// Fallback to counter-only if random fails
		return formatRunID(ts, counter, "0000")
	}

	return formatRunID(ts, counter, hex.EncodeToString(randomBytes))
}

// formatRunID formats the run ID components.
func formatRunID(ts int64, counter uint64, random string) string {
	// Use a simple format: hex timestamp + counter + random
	return hex.EncodeToString([]byte{
		byte(ts >> 24), byte(ts >> 16), byte(ts >> 8), byte(ts),
	}) + "-" + formatCounter(counter) + "-" + random
}

// formatCounter formats the counter as a hex string.
func formatCounter(counter uint64) string {
	return hex.EncodeToString([]byte{
		byte(counter >> 8), byte(counter),
	})
}
