package fheap

// Heap file format constants
const (
	// Magic is a 56-bit sentinel that identifies fheap files
	Magic uint64 = 0x464D68656170 // "FMheap"

	// DataVersion is the heap file format version
	DataVersion = 1

	// DataMagic combines magic and version for validation
	DataMagic = (Magic << 8) + DataVersion
)

// Chunk size constraints
const (
	// MinChunkSize is the minimum allowed commit granularity (4KB)
	MinChunkSize = 4096

	// DefaultChunkSize is the commit granularity written into fresh heaps (64KB)
	DefaultChunkSize = 64 * 1024
)

// Superblock layout. All fields are little-endian and accessed through the
// codec in super.go; the struct is never cast onto the mapping.
const (
	// offMagic is the offset of the 8-byte magic/version sentinel
	offMagic = 0

	// offTotalSize is the offset of the heap length in bytes
	offTotalSize = 8

	// offChunkSize is the offset of the commit granularity
	offChunkSize = 16

	// InitFlagOffset is the offset of the 4-byte one-shot secondary-init
	// marker: -1 while the allocator bootstrap is pending, 0 once done.
	InitFlagOffset = 24

	// offNextFree is the offset of the arena wilderness pointer
	offNextFree = 32

	// offBinHeads is the offset of the free-list bin head array
	offBinHeads = 40

	// offBitmap is the offset of the chunk bitmap
	offBitmap = offBinHeads + 8*binCount
)

// Allocator geometry
const (
	// binCount is the number of free-list bins: 31 exact-fit small
	// classes plus one large bin
	binCount = 32

	// largeBin is the index of the first-fit bin for large blocks
	largeBin = binCount - 1

	// smallMax is the largest payload served by an exact-fit bin
	smallMax = largeBin * allocAlign

	// allocAlign is the payload size granularity
	allocAlign = 8

	// blockHeaderSize is the per-block header holding the payload size
	blockHeaderSize = 8

	// minPayload is the smallest payload a block may carry; free blocks
	// store their bin link in the first 8 payload bytes
	minPayload = 16

	// arenaAlign is the alignment of the arena start after the header
	arenaAlign = 4096
)

// pendingInitFlag is the initFlag value written by superblock
// initialization to signal that allocator bootstrap has not run yet.
const pendingInitFlag = int32(-1)
