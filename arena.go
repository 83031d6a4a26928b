package fheap

import "encoding/binary"

// arena is the general-purpose allocator over the committed region of a
// mapped heap. All allocator state — bin heads, free-list links, the
// wilderness pointer — is stored inside the mapping as offsets from the
// mapped base, never as absolute addresses. Offsets rebase for free when
// the same file is mapped at a different address, and the free structures
// survive process restarts.
//
// Block format: an 8-byte little-endian header holding the payload size,
// followed by the payload. Payload sizes are multiples of allocAlign with
// a minimum of minPayload. A free block stores the offset of the next
// block in its bin in the first 8 payload bytes (0 terminates the list).
//
// Placement is deterministic: small classes are exact-fit LIFO bins,
// large requests are first-fit over the large bin, and misses carve from
// a bump-pointer wilderness, committing chunks on demand through the
// bitmap. Small-class hits and wilderness carves are O(1).
type arena struct {
	data []byte
	sb   super
}

// bootstrap is the one-shot second-stage setup signaled by the init flag.
// It runs when the flag is still the pending sentinel: immediately after
// superblock initialization, or again after a crash that interrupted it.
func (a arena) bootstrap() {
	if a.sb.initFlag() != pendingInitFlag {
		return
	}
	a.sb.setNextFree(arenaStart(a.sb.totalSize(), a.sb.chunkSize()))
	for i := 0; i < binCount; i++ {
		a.sb.setBinHead(i, 0)
	}
	a.sb.setInitFlag(0)
}

// roundPayload rounds a request up to the payload granularity.
func roundPayload(n uint64) uint64 {
	if n < minPayload {
		return minPayload
	}
	return (n + allocAlign - 1) &^ (allocAlign - 1)
}

// binIndex maps a rounded payload size to its bin.
func binIndex(size uint64) int {
	if size <= smallMax {
		return int(size/allocAlign) - 1
	}
	return largeBin
}

// blockSize reads the payload size from a block header.
func (a arena) blockSize(blockOff uint64) uint64 {
	return binary.LittleEndian.Uint64(a.data[blockOff:])
}

func (a arena) setBlockSize(blockOff, size uint64) {
	binary.LittleEndian.PutUint64(a.data[blockOff:], size)
}

// nextLink reads the bin link stored in a free block's payload.
func (a arena) nextLink(blockOff uint64) uint64 {
	return binary.LittleEndian.Uint64(a.data[blockOff+blockHeaderSize:])
}

func (a arena) setNextLink(blockOff, next uint64) {
	binary.LittleEndian.PutUint64(a.data[blockOff+blockHeaderSize:], next)
}

// allocate returns the payload offset of a block of at least n bytes,
// or 0 if the arena cannot satisfy the request. The heap never grows:
// exhaustion is a recoverable, caller-visible condition.
func (a arena) allocate(n uint64) uint64 {
	size := roundPayload(n)

	idx := binIndex(size)
	if idx != largeBin {
		if off := a.popBin(idx); off != 0 {
			return off + blockHeaderSize
		}
	} else if off := a.firstFit(size); off != 0 {
		return off + blockHeaderSize
	}

	return a.carve(size)
}

// free returns the block owning payloadOff to its bin for reuse.
// Freeing offset 0 is a no-op.
func (a arena) free(payloadOff uint64) {
	if payloadOff == 0 {
		return
	}
	blockOff := payloadOff - blockHeaderSize
	a.pushBin(blockOff, a.blockSize(blockOff))
}

// popBin removes and returns the head block of an exact-fit bin,
// or 0 if the bin is empty.
func (a arena) popBin(idx int) uint64 {
	head := a.sb.binHead(idx)
	if head == 0 {
		return 0
	}
	a.sb.setBinHead(idx, a.nextLink(head))
	return head
}

// pushBin links a block onto the head of its bin.
func (a arena) pushBin(blockOff, size uint64) {
	idx := binIndex(size)
	a.setNextLink(blockOff, a.sb.binHead(idx))
	a.sb.setBinHead(idx, blockOff)
}

// firstFit scans the large bin for the first block of at least size
// bytes, unlinks it, and splits off any usable remainder.
func (a arena) firstFit(size uint64) uint64 {
	var prev uint64
	for off := a.sb.binHead(largeBin); off != 0; {
		next := a.nextLink(off)
		bsz := a.blockSize(off)
		if bsz >= size {
			if prev == 0 {
				a.sb.setBinHead(largeBin, next)
			} else {
				a.setNextLink(prev, next)
			}
			a.split(off, bsz, size)
			return off
		}
		prev, off = off, next
	}
	return 0
}

// split trims a block to size and re-bins the remainder when it is big
// enough to stand alone; otherwise the block keeps its full size.
func (a arena) split(blockOff, bsz, size uint64) {
	rem := bsz - size
	if rem < blockHeaderSize+minPayload {
		return
	}
	a.setBlockSize(blockOff, size)
	restOff := blockOff + blockHeaderSize + size
	restSize := rem - blockHeaderSize
	a.setBlockSize(restOff, restSize)
	a.pushBin(restOff, restSize)
}

// carve takes a fresh block from the wilderness, committing every chunk
// the block touches. Returns the payload offset, or 0 on exhaustion.
func (a arena) carve(size uint64) uint64 {
	blockOff := a.sb.nextFree()
	end := blockOff + blockHeaderSize + size
	if end > a.sb.totalSize() {
		return 0
	}

	cs := a.sb.chunkSize()
	bm := a.sb.bitmap()
	for c := blockOff / cs; c <= (end-1)/cs; c++ {
		if !bm.isSet(c) {
			bm.set(c)
		}
	}

	a.setBlockSize(blockOff, size)
	a.sb.setNextFree(end)
	return blockOff + blockHeaderSize
}

// freeBytes sums the payload bytes parked in the bins plus the untouched
// wilderness. Used for introspection only.
func (a arena) freeBytes() uint64 {
	var total uint64
	for i := 0; i < binCount; i++ {
		for off := a.sb.binHead(i); off != 0; off = a.nextLink(off) {
			total += a.blockSize(off)
		}
	}
	return total + a.sb.totalSize() - a.sb.nextFree()
}
