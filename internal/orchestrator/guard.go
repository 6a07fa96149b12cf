package orchestrator

import "sync/atomic"

// cleanupGuard is a scoped acquisition guard: armed on creation,
// disarmed on the orchestrator's normal return path. If it is still
// armed when Fire is called — from a deferred call that runs during a
// panic, a fatal-error return, or a signal — it runs the cleanup
// function exactly once. Fire is safe to call more than once and from
// more than one call site; only the first call does anything.
type cleanupGuard struct {
	fired atomic.Bool
	fn    func()
}

func newCleanupGuard(fn func()) *cleanupGuard {
	return &cleanupGuard{fn: fn}
}

// Disarm marks the guard as having completed normally, so a later
// Fire from a deferred call is a no-op.
func (g *cleanupGuard) Disarm() {
	g.fired.Store(true)
}

// Fire runs the cleanup function if it has not already run or been
// disarmed. It is idempotent: a signal arriving while cleanup is
// itself running cannot cause stopBackup or the manifest write to run
// twice.
func (g *cleanupGuard) Fire() {
	if g.fired.CompareAndSwap(false, true) {
		g.fn()
	}
}
