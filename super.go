package fheap

import "encoding/binary"

// super is the codec for the fixed-offset superblock at the start of the
// mapping. Every field is read and written through these accessors in
// little-endian byte order; the header is never overlaid with a Go struct,
// which keeps the format portable across architectures and avoids
// alignment and aliasing hazards.
type super struct {
	data []byte
}

func (s super) rawMagic() uint64 {
	return binary.LittleEndian.Uint64(s.data[offMagic:])
}

func (s super) setMagic(v uint64) {
	binary.LittleEndian.PutUint64(s.data[offMagic:], v)
}

func (s super) totalSize() uint64 {
	return binary.LittleEndian.Uint64(s.data[offTotalSize:])
}

func (s super) setTotalSize(v uint64) {
	binary.LittleEndian.PutUint64(s.data[offTotalSize:], v)
}

func (s super) chunkSize() uint64 {
	return binary.LittleEndian.Uint64(s.data[offChunkSize:])
}

func (s super) setChunkSize(v uint64) {
	binary.LittleEndian.PutUint64(s.data[offChunkSize:], v)
}

func (s super) initFlag() int32 {
	return int32(binary.LittleEndian.Uint32(s.data[InitFlagOffset:]))
}

func (s super) setInitFlag(v int32) {
	binary.LittleEndian.PutUint32(s.data[InitFlagOffset:], uint32(v))
}

func (s super) nextFree() uint64 {
	return binary.LittleEndian.Uint64(s.data[offNextFree:])
}

func (s super) setNextFree(v uint64) {
	binary.LittleEndian.PutUint64(s.data[offNextFree:], v)
}

func (s super) binHead(i int) uint64 {
	return binary.LittleEndian.Uint64(s.data[offBinHeads+8*i:])
}

func (s super) setBinHead(i int, v uint64) {
	binary.LittleEndian.PutUint64(s.data[offBinHeads+8*i:], v)
}

// bitmap returns the chunk bitmap embedded after the bin head array.
func (s super) bitmap() chunkBitmap {
	chunks := s.totalSize() / s.chunkSize()
	return chunkBitmap{
		bits: s.data[offBitmap : offBitmap+int(bitmapBytes(chunks))],
		n:    chunks,
	}
}

// bitmapBytes returns the byte length of a bitmap tracking n chunks.
func bitmapBytes(chunks uint64) uint64 {
	return (chunks + 7) / 8
}

// headerEnd returns the offset of the first byte past the superblock,
// bin heads and bitmap for the given geometry.
func headerEnd(totalSize, chunkSize uint64) uint64 {
	return offBitmap + bitmapBytes(totalSize/chunkSize)
}

// arenaStart returns the offset of the first allocator-managed byte:
// the header end rounded up to arenaAlign.
func arenaStart(totalSize, chunkSize uint64) uint64 {
	end := headerEnd(totalSize, chunkSize)
	return (end + arenaAlign - 1) &^ (arenaAlign - 1)
}

// initialize writes a fresh superblock. Called only when the leading
// 8 bytes of the mapping are not the magic sentinel. totalSize comes from
// the mapped file's length, never from the caller. The magic is written
// last so a torn initialization is simply redone on the next open.
func (s super) initialize(totalSize uint64) {
	s.setTotalSize(totalSize)
	s.setChunkSize(DefaultChunkSize)
	s.setInitFlag(pendingInitFlag)

	// Every chunk overlapping the header region is committed up front.
	// Chunk 0 holds the superblock itself, so bit 0 is always set.
	bm := s.bitmap()
	start := arenaStart(totalSize, DefaultChunkSize)
	for c := uint64(0); c*DefaultChunkSize < start && c < bm.n; c++ {
		bm.set(c)
	}

	s.setMagic(DataMagic)
}

// attach validates an existing superblock without writing anything.
// The caller has already established that the magic sentinel matches.
func (s super) attach(mappedLen uint64) error {
	ts := s.totalSize()
	cs := s.chunkSize()
	if ts == 0 || cs < MinChunkSize || ts > mappedLen {
		return NewError(ErrCorrupted)
	}
	if s.nextFree() > ts {
		return NewError(ErrCorrupted)
	}
	if !s.bitmap().isSet(0) {
		return NewError(ErrCorrupted)
	}
	return nil
}
