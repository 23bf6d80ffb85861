// Package arena is a block allocator for ir user objects.
//
// Fresh allocations bump an offset through fixed size blocks, freed
// allocations go to power-of-two buckets and are handed out again without
// touching the blocks. The arena is installed for a scope and consulted
// implicitly; with no arena installed allocations fall back to the heap.
//
// Memory handed out here is carved from plain byte buffers, so pointers
// stored into it are invisible to the garbage collector. The arena keeps its
// blocks and standalone buffers reachable, but whatever those pointers refer
// to must be kept alive by the client for as long as edges to it exist.
package arena

import (
	"math/bits"
	"sync"
	"sync/atomic"
	"unsafe"
)

const (
	BlockSize                = 1 << 16
	LargeAllocationThreshold = 1 << 12

	AllocationBits = 5
	InvalidBucket  = 1 << (AllocationBits - 1)

	// fallbackBucket marks allocations made with no arena installed.
	// Bucketed lookups never produce it, so Free can tell them apart.
	fallbackBucket = InvalidBucket + 1

	headerSize = unsafe.Sizeof(uintptr(0))
	ptrAlign   = unsafe.Alignof(uintptr(0))
)

type (
	Arena struct {
		blocks  []block
		buckets [][]unsafe.Pointer
	}

	block struct {
		blob []byte
		off  uintptr
	}

	// Scope installs an Arena for its lifetime.
	Scope struct {
		a *Arena
	}
)

var current atomic.Pointer[Arena]

var (
	standaloneMu sync.Mutex

	// standalone anchors large and fallback allocations until they are freed.
	standalone = map[unsafe.Pointer][]byte{}
)

// NewScope creates an arena and installs it. The slot must be empty.
func NewScope() *Scope {
	a := &Arena{}

	if !current.CompareAndSwap(nil, a) {
		panic("arena: already installed")
	}

	return &Scope{a: a}
}

// Close releases the arena and every block it owns.
// Allocations still referencing the arena must be freed before Close.
func (s *Scope) Close() {
	if current.Load() != s.a {
		panic("arena: closing scope that is not installed")
	}

	s.a.blocks = nil
	s.a.buckets = nil

	current.Store(nil)
}

// Alloc returns size bytes of pointer-aligned storage. Contents are
// unspecified when the request is served from a free bucket.
func Alloc(size uintptr) unsafe.Pointer {
	if size == 0 {
		panic("arena: zero size allocation")
	}

	a := current.Load()
	if a == nil {
		return standaloneAlloc(size, fallbackBucket)
	}

	return a.alloc(size)
}

// AllocRaw returns size bytes that never come from and never return to the
// bump blocks or the buckets. It backs buffers that are reallocated on their
// own schedule, such as hung-off operand arrays.
func AllocRaw(size uintptr) unsafe.Pointer {
	return standaloneAlloc(size, fallbackBucket)
}

// Free returns an allocation obtained from Alloc or AllocRaw.
func Free(p unsafe.Pointer) {
	tag := *(*uintptr)(unsafe.Add(p, -int(headerSize)))

	if tag == InvalidBucket || tag == fallbackBucket {
		standaloneMu.Lock()
		delete(standalone, p)
		standaloneMu.Unlock()

		return
	}

	a := current.Load()
	if a == nil {
		panic("arena: free with no arena installed")
	}

	a.push(int(tag), p)
}

// Owns reports whether p lies within one of the installed arena's blocks.
func Owns(p unsafe.Pointer) bool {
	a := current.Load()
	if a == nil {
		return false
	}

	addr := uintptr(p)

	for _, b := range a.blocks {
		base := uintptr(unsafe.Pointer(&b.blob[0]))

		if addr >= base && addr < base+BlockSize {
			return true
		}
	}

	return false
}

func (a *Arena) alloc(size uintptr) unsafe.Pointer {
	if size > LargeAllocationThreshold {
		return standaloneAlloc(size, InvalidBucket)
	}

	// Check for a freed slot first. The reuse bucket is the nearest
	// accommodating power of two.
	if p := a.pop(reuseBucketIndex(size)); p != nil {
		return p
	}

	b := a.blockFor(headerSize + size)

	p := unsafe.Pointer(&b.blob[b.off])
	*(*uintptr)(p) = uintptr(freeBucketIndex(size))

	b.off += (headerSize + size + ptrAlign - 1) &^ (ptrAlign - 1)

	return unsafe.Add(p, headerSize)
}

func (a *Arena) blockFor(size uintptr) *block {
	// Sequential user allocations are likely in the same bb,
	// so always carve from the last block.

	if l := len(a.blocks); l != 0 && BlockSize-a.blocks[l-1].off >= size {
		return &a.blocks[l-1]
	}

	a.blocks = append(a.blocks, block{blob: make([]byte, BlockSize)})

	return &a.blocks[len(a.blocks)-1]
}

func (a *Arena) push(bucket int, p unsafe.Pointer) {
	if bucket >= len(a.buckets) {
		a.buckets = append(a.buckets, make([][]unsafe.Pointer, bucket+1-len(a.buckets))...)
	}

	a.buckets[bucket] = append(a.buckets[bucket], p)
}

func (a *Arena) pop(bucket int) unsafe.Pointer {
	if bucket >= len(a.buckets) || len(a.buckets[bucket]) == 0 {
		return nil
	}

	b := a.buckets[bucket]
	p := b[len(b)-1]
	a.buckets[bucket] = b[:len(b)-1]

	return p
}

// freeBucketIndex is the floored power of two of size. The slot holds
// exactly size bytes, so it must never be promoted to a greater class.
func freeBucketIndex(size uintptr) int {
	i := bits.Len64(uint64(size)) - 1

	if i >= InvalidBucket {
		panic("arena: allocation size exceeds allotted tag bits")
	}

	return i
}

// reuseBucketIndex is the smallest class whose cached slots can hold size.
func reuseBucketIndex(size uintptr) int {
	return bits.Len64(uint64(size - 1))
}

func standaloneAlloc(size uintptr, tag uintptr) unsafe.Pointer {
	if size == 0 {
		// zero-length arrays still get a unique, addressable base
		size = 1
	}

	buf := make([]byte, headerSize+size)

	p := unsafe.Pointer(&buf[0])
	*(*uintptr)(p) = tag

	q := unsafe.Add(p, headerSize)

	standaloneMu.Lock()
	standalone[q] = buf
	standaloneMu.Unlock()

	return q
}
