package fheap

import (
	"os"
	"sync"
	"unsafe"

	"github.com/filemem/fheap/mmap"
)

// Heap is an open handle to a memory-mapped heap file. It bundles the
// file descriptor, the mapping, and codec access to the superblock.
//
// Methods serialize through an internal mutex, so a Heap is safe for
// concurrent use within one process. Across processes there is no lock:
// callers mutating one heap from several processes must serialize
// externally (single writer at a time).
type Heap struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	m     *mmap.Map
	data  []byte
	sb    super
	fresh bool
}

// Open maps the heap file at path and returns a handle plus a boolean
// reporting whether this open performed first-time initialization.
//
// The file must already exist and be pre-sized by the caller: Open never
// creates or grows files, and the mapped length becomes the heap's
// totalSize forever on the first open. Stat, open, and map failures are
// returned as ErrEnv — the environment is expected to be validated
// before calling in, there is no recovery path here.
//
// Open also records the new heap as the package-level active target for
// the ambient Allocate/Free functions.
func Open(path string) (*Heap, bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, false, WrapError(ErrEnv, err)
	}
	size := uint64(fi.Size())

	// The header plus one full chunk must fit, otherwise the superblock
	// accessors would run off the mapping.
	if size < arenaStart(size, DefaultChunkSize)+DefaultChunkSize {
		return nil, false, NewError(ErrTooSmall)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, false, WrapError(ErrEnv, err)
	}

	m, err := mmap.New(int(f.Fd()), 0, int(size), true)
	if err != nil {
		f.Close()
		return nil, false, WrapError(ErrEnv, err)
	}

	h := &Heap{
		path: path,
		file: f,
		m:    m,
		data: m.Data(),
		sb:   super{m.Data()},
	}

	switch raw := h.sb.rawMagic(); {
	case raw == DataMagic:
		// Existing heap: geometry is read-only from here on.
		if err := h.sb.attach(size); err != nil {
			h.teardown()
			return nil, false, err
		}
	case raw>>8 == Magic:
		h.teardown()
		return nil, false, NewError(ErrVersionMismatch)
	default:
		h.fresh = true
		h.sb.initialize(size)
	}

	// Second-stage allocator setup, consumed exactly once per heap file.
	h.arena().bootstrap()

	SetTarget(h)
	return h, h.fresh, nil
}

func (h *Heap) arena() arena {
	return arena{data: h.data, sb: h.sb}
}

func (h *Heap) valid() bool {
	return h != nil && h.data != nil
}

// Allocate returns a size-byte span inside the mapping, or nil if the
// arena cannot satisfy the request. The heap never grows; on nil the
// caller decides whether to re-size the backing file out-of-band and
// reopen, or report failure upward.
func (h *Heap) Allocate(size int) []byte {
	if !h.valid() || size <= 0 {
		return nil
	}

	h.mu.Lock()
	off := h.arena().allocate(uint64(size))
	h.mu.Unlock()

	if off == 0 {
		return nil
	}
	end := off + uint64(size)
	return h.data[off:end:end]
}

// Free returns a span obtained from Allocate on this heap to the arena.
// Free of nil is a no-op. Passing a slice that did not originate from
// this heap's Allocate is undefined behavior, not a checked error.
func (h *Heap) Free(buf []byte) {
	if !h.valid() || buf == nil {
		return
	}
	h.FreeOffset(h.Offset(buf))
}

// AllocateOffset is Allocate returning a stable offset instead of a
// slice. Offsets are the durable form of a heap reference: they stay
// meaningful across process restarts and across mappings at different
// base addresses. Returns (0, false) on exhaustion.
func (h *Heap) AllocateOffset(size int) (uint64, bool) {
	if !h.valid() || size <= 0 {
		return 0, false
	}

	h.mu.Lock()
	off := h.arena().allocate(uint64(size))
	h.mu.Unlock()

	return off, off != 0
}

// FreeOffset returns the allocation at off to the arena. Freeing offset
// zero is a no-op.
func (h *Heap) FreeOffset(off uint64) {
	if !h.valid() {
		return
	}
	h.mu.Lock()
	h.arena().free(off)
	h.mu.Unlock()
}

// Bytes returns the full payload span of the allocation at off, sized
// from its block header. off must come from AllocateOffset or Offset on
// this heap.
func (h *Heap) Bytes(off uint64) []byte {
	if !h.valid() || off == 0 {
		return nil
	}
	size := h.arena().blockSize(off - blockHeaderSize)
	end := off + size
	return h.data[off:end:end]
}

// Offset converts a span returned by Allocate into its stable offset.
func (h *Heap) Offset(buf []byte) uint64 {
	if !h.valid() || len(buf) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&buf[0])) - uintptr(unsafe.Pointer(&h.data[0])))
}

// Base returns the mapped region. The slice aliases the heap file.
func (h *Heap) Base() []byte {
	if !h.valid() {
		return nil
	}
	return h.data
}

// TotalSize returns the heap length in bytes, fixed at first open.
func (h *Heap) TotalSize() uint64 {
	if !h.valid() {
		return 0
	}
	return h.sb.totalSize()
}

// ChunkSize returns the commit granularity of this heap.
func (h *Heap) ChunkSize() uint64 {
	if !h.valid() {
		return 0
	}
	return h.sb.chunkSize()
}

// Path returns the heap file path.
func (h *Heap) Path() string {
	return h.path
}

// Sync flushes the mapping to disk. If force is false the flush is
// asynchronous.
func (h *Heap) Sync(force bool) error {
	if !h.valid() {
		return NewError(ErrInvalid)
	}
	if force {
		return h.m.Sync()
	}
	return h.m.SyncAsync()
}

// Stat describes the current state of a heap.
type Stat struct {
	TotalSize       uint64 // heap length in bytes
	ChunkSize       uint64 // commit granularity
	Chunks          uint64 // total chunks
	CommittedChunks uint64 // chunks handed to the allocator or header
	ArenaStart      uint64 // first allocator-managed offset
	NextFree        uint64 // wilderness pointer
	FreeBytes       uint64 // binned payload bytes plus wilderness
}

// Stat returns a point-in-time snapshot of the heap's state.
func (h *Heap) Stat() (*Stat, error) {
	if !h.valid() {
		return nil, NewError(ErrInvalid)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	bm := h.sb.bitmap()
	return &Stat{
		TotalSize:       h.sb.totalSize(),
		ChunkSize:       h.sb.chunkSize(),
		Chunks:          bm.len(),
		CommittedChunks: bm.committed(),
		ArenaStart:      arenaStart(h.sb.totalSize(), h.sb.chunkSize()),
		NextFree:        h.sb.nextFree(),
		FreeBytes:       h.arena().freeBytes(),
	}, nil
}

// Close unmaps the heap and closes the file. Optional: the heap state is
// entirely inside the mapping, so letting process teardown drop the
// mapping is equally safe. Close clears the ambient target if it still
// points at this heap.
func (h *Heap) Close() error {
	if !h.valid() {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	activeHeap.CompareAndSwap(h, nil)
	return h.teardown()
}

func (h *Heap) teardown() error {
	var firstErr error
	if h.m != nil {
		if err := h.m.Close(); err != nil {
			firstErr = err
		}
		h.m = nil
	}
	if h.file != nil {
		if err := h.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		h.file = nil
	}
	h.data = nil
	h.sb = super{}
	return firstErr
}
