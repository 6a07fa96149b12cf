package walparser

import "github.com/KilimcininKorOglu/pgarman/internal/relfile"

// BlockSink receives one call per block a WAL record dirties. The
// reader never imports the page map directly; the orchestrator adapts
// a *pagemap.Map into this interface, which keeps the dependency
// pointing one way (orchestrator depends on both; neither depends on
// the other).
type BlockSink interface {
	ProcessBlockChange(node relfile.Node, fork relfile.Fork, blockNo uint32)
}

// BlockSinkFunc adapts a plain function to BlockSink, mainly for tests.
type BlockSinkFunc func(node relfile.Node, fork relfile.Fork, blockNo uint32)

func (f BlockSinkFunc) ProcessBlockChange(node relfile.Node, fork relfile.Fork, blockNo uint32) {
	f(node, fork, blockNo)
}
