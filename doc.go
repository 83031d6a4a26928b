// Package fheap is a persistent, file-backed heap: a pre-sized regular
// file is memory-mapped read-write with process-shared semantics, and a
// general-purpose allocator hands out byte spans inside the mapping.
// Allocations survive process restarts and are visible to every process
// that maps the same file.
//
// Key features:
//   - Fixed-offset superblock describing heap geometry, written exactly
//     once at the first open of a file
//   - Chunk bitmap tracking which parts of the mapping are committed to
//     the allocator, grown on demand
//   - Segregated free-list allocator whose state lives inside the mapping
//     as offsets, so reopened heaps resume where they left off
//   - Memory-mapped I/O, no reads or writes after the initial mapping
//
// Basic usage:
//
//	h, fresh, err := fheap.Open("/path/to/heap.dat")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if fresh {
//	    // first open of this file: the superblock was just written
//	}
//
//	buf := h.Allocate(1024)
//	if buf == nil {
//	    // arena exhausted; the file size is fixed at open time
//	}
//	copy(buf, payload)
//
//	h.Free(buf)
//
// The file must exist and be sized by the caller before Open; fheap never
// creates, grows, or shrinks it. Concurrent use of one heap from multiple
// processes requires external serialization: fheap provides no
// cross-process lock, and assumes a single writer at a time.
package fheap
