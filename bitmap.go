package fheap

import "math/bits"

// chunkBitmap tracks chunk commitment with one bit per chunk. The bits
// live inside the mapped region, so commitment state is shared with every
// process mapping the heap and survives restarts. Bits only ever
// transition free to committed; there is no decommit path.
type chunkBitmap struct {
	bits []byte
	n    uint64 // number of tracked chunks
}

// set marks chunk i committed.
func (b chunkBitmap) set(i uint64) {
	if i >= b.n {
		return
	}
	b.bits[i/8] |= 1 << (i % 8)
}

// isSet returns true if chunk i is committed.
func (b chunkBitmap) isSet(i uint64) bool {
	if i >= b.n {
		return false
	}
	return b.bits[i/8]&(1<<(i%8)) != 0
}

// committed returns the number of committed chunks.
func (b chunkBitmap) committed() uint64 {
	var count uint64
	for _, w := range b.bits {
		count += uint64(bits.OnesCount8(w))
	}
	return count
}

// len returns the total number of tracked chunks.
func (b chunkBitmap) len() uint64 {
	return b.n
}
