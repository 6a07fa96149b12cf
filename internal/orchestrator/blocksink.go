package orchestrator

import (
	"github.com/KilimcininKorOglu/pgarman/internal/pagemap"
	"github.com/KilimcininKorOglu/pgarman/internal/relfile"
)

// pagemapSink adapts a *pagemap.Map into walparser.BlockSink. It is
// the "shared reference held for the duration of one scan" the design
// note calls for: the WAL reader never imports pagemap, and pagemap
// never imports walparser — only this type, owned by the orchestrator,
// depends on both.
type pagemapSink struct {
	m *pagemap.Map
}

// ProcessBlockChange converts a WAL record's absolute block number
// into the (segment key, block-within-segment) pair the page map
// indexes by, splitting on relfile.RELSEGSize exactly the way the
// server shards a relation fork across numbered segment files.
func (s pagemapSink) ProcessBlockChange(node relfile.Node, fork relfile.Fork, blockNo uint32) {
	segment := blockNo / relfile.RELSEGSize
	blockInSegment := blockNo % relfile.RELSEGSize
	key := relfile.Key{Node: node, Fork: fork, Segment: segment}
	s.m.Add(key, blockInSegment)
}
