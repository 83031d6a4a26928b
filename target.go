package fheap

import "sync/atomic"

// activeHeap is the process-wide target for the ambient Allocate/Free
// functions. Go offers no per-thread storage, so unlike the classic
// thread-local rebasing scheme this target is shared by every goroutine;
// the explicit Heap methods are the safe form when more than one heap is
// open.
var activeHeap atomic.Pointer[Heap]

// SetTarget records h as the active heap for the package-level Allocate
// and Free. Open calls this for each newly mapped heap, so single-heap
// programs never need it; programs juggling multiple heaps must call it
// before each heap-scoped call sequence, or use the Heap methods
// directly. Allocating from heap A while the target is heap B is a
// silent correctness hazard, not a caught error.
func SetTarget(h *Heap) {
	activeHeap.Store(h)
}

// Target returns the current active heap, or nil.
func Target() *Heap {
	return activeHeap.Load()
}

// Allocate allocates from the active heap. Returns nil when no target is
// set or the target's arena is exhausted.
func Allocate(size int) []byte {
	if h := activeHeap.Load(); h != nil {
		return h.Allocate(size)
	}
	return nil
}

// Free returns a span to the active heap. The span must have come from
// Allocate while the same heap was the target; freeing under the wrong
// target is undefined behavior. Free of nil is a no-op.
func Free(buf []byte) {
	if h := activeHeap.Load(); h != nil {
		h.Free(buf)
	}
}
