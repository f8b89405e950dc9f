// Package heap provides the byte-granular allocate/free primitive that
// spec.md §6 describes as an external collaborator ("From the
// allocator: alloc(tag, size, flags) and free(tag, ptr)"). Real kernel
// callers would plug in the kernel's own heap; this module needs a
// concrete, usable implementation to run standalone, so it is backed
// by cloudwego/gopkg's size-bucketed pooling allocator rather than a
// hand-rolled one — the same idea the teacher repo hand-rolled in its
// own buffer pool, reused here from the ecosystem package directly.
package heap

import (
	"sync"
	"sync/atomic"

	"github.com/cloudwego/gopkg/cache/mempool"
)

// Flag controls allocation behavior.
type Flag uint8

const (
	// Zero requests the returned buffer be zero-filled. mempool.Malloc
	// does not guarantee this (buffers are reused from a sync.Pool), so
	// callers that need zeroed memory must request it explicitly.
	Zero Flag = 1 << iota

	// NoWait documents that this allocation must not block. It is
	// always honored: mempool.Malloc never blocks, so the flag is
	// purely informational here, preserved for fidelity to the
	// external-interface contract rather than because it changes
	// behavior.
	NoWait
)

// tagCounts tracks per-tag allocation counts for diagnostics, mirroring
// the kernel's M_* malloc-type accounting.
var tagCounts sync.Map

// Alloc returns a buffer of exactly size bytes, accounted under tag.
func Alloc(tag string, size int, flags Flag) []byte {
	buf := mempool.Malloc(size)
	if flags&Zero != 0 {
		clear(buf)
	}
	counterFor(tag).Add(1)
	return buf
}

// Free returns buf to the pool. buf must have been obtained from Alloc.
func Free(tag string, buf []byte) {
	mempool.Free(buf)
	counterFor(tag).Add(-1)
}

// Outstanding returns the number of buffers allocated under tag that
// have not yet been freed. Negative values indicate a double-free and
// are surfaced as-is for diagnostics rather than clamped.
func Outstanding(tag string) int64 {
	return counterFor(tag).Load()
}

func counterFor(tag string) *atomic.Int64 {
	v, _ := tagCounts.LoadOrStore(tag, new(atomic.Int64))
	return v.(*atomic.Int64)
}
