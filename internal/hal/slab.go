package hal

import "errors"

// ErrOutOfMemory is returned by Slab.Alloc when the free list is empty.
var ErrOutOfMemory = errors.New("hal: slab out of memory")

// Slab is a fixed-block-size memory pool with an O(1) LIFO free list and no
// fragmentation (spec §3, §4.6). It is the allocator the H:4 pipeline uses
// for EVT/ACL/ISO packet buffers, so that a burst of traffic is bounded by
// the pool size rather than the Go heap.
//
// This is grounded on the teacher's dma.Region (_examples/usbarmory-tamago/dma/dma.go):
// same mutex-guarded bookkeeping style, but restructured around fixed-size
// blocks (spec §3's "block
// size, block count, free-list head, used count" rather than dma.Region's
// general first-fit allocator, since a packet-buffer pool never needs
// variable-size blocks or alignment.
type Slab struct {
	lock Spinlock

	blockSize int
	free      [][]byte
	used      int
	total     int
}

// NewSlab creates a slab of count blocks of blockSize bytes each, backed by
// a caller-provided buffer. The free list is built here, at construction,
// not on the first Alloc call.
func NewSlab(blockSize, count int, backing []byte) *Slab {
	if len(backing) < blockSize*count {
		// Misconfigured at construction time, not a runtime condition a
		// caller can recover from: spec §7's Fatal kind.
		Panic(nil, "hal: slab backing buffer too small", "blockSize", blockSize, "count", count, "backing", len(backing))
	}

	s := &Slab{blockSize: blockSize, total: count}
	s.free = make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		s.free = append(s.free, backing[i*blockSize:(i+1)*blockSize])
	}

	return s
}

// Alloc pops a block off the free list. The timeout argument exists only
// for interface compatibility with the host's allocation API and never
// blocks (spec §4.6).
func (s *Slab) Alloc(Timepoint) ([]byte, error) {
	key := s.lock.Lock()
	defer s.lock.Unlock(key)

	n := len(s.free)
	if n == 0 {
		return nil, ErrOutOfMemory
	}

	b := s.free[n-1]
	s.free = s.free[:n-1]
	s.used++

	return b, nil
}

// Free pushes block back onto the free list.
func (s *Slab) Free(block []byte) {
	key := s.lock.Lock()
	defer s.lock.Unlock(key)

	s.free = append(s.free, block)
	s.used--
}

// Used returns the number of currently allocated blocks.
func (s *Slab) Used() int {
	key := s.lock.Lock()
	defer s.lock.Unlock(key)
	return s.used
}

// Available returns the number of free blocks.
func (s *Slab) Available() int {
	key := s.lock.Lock()
	defer s.lock.Unlock(key)
	return len(s.free)
}

// BlockSize returns the fixed size of each block in the slab.
func (s *Slab) BlockSize() int {
	return s.blockSize
}
