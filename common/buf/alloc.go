package buf

// Inspired by https://github.com/xtaci/smux/blob/master/alloc.go

import (
	"math/bits"
	"sync"

	E "github.com/sagernet/sing-slist/common/exceptions"
)

const MaxSize = 1 << 16

var DefaultAllocator = newDefaultAllocator()

// Allocator hands out byte slices and takes them back. Get returns nil when
// the request cannot be served. The default allocator's Put only rejects
// slices whose capacity is not one of its size classes; wrap it in a
// TrackedAllocator to reject slices it never handed out.
type Allocator interface {
	Get(size int) []byte
	Put(buf []byte) error
}

func Get(size int) []byte {
	return DefaultAllocator.Get(size)
}

func Put(buf []byte) error {
	return DefaultAllocator.Put(buf)
}

// defaultAllocator for header strings, size classes 64B -> 64K
type defaultAllocator struct {
	buffers [11]sync.Pool
}

// newDefaultAllocator initiates a []byte allocator for buffers up to 65536 bytes,
// the waste(memory fragmentation) of space allocation is guaranteed to be
// no more than 50%.
func newDefaultAllocator() Allocator {
	alloc := new(defaultAllocator)
	for index := range alloc.buffers {
		size := 1 << (index + 6)
		alloc.buffers[index].New = func() any {
			buffer := make([]byte, size)
			return &buffer
		}
	}
	return alloc
}

// Get a []byte from pool with most appropriate cap
func (alloc *defaultAllocator) Get(size int) []byte {
	if size <= 0 || size > MaxSize {
		return nil
	}

	var index uint16
	if size > 64 {
		index = msb(size)
		if size != 1<<index {
			index += 1
		}
		index -= 6
	}

	buffer := alloc.buffers[index].Get().(*[]byte)
	return (*buffer)[:size]
}

// Put returns a []byte to pool for future use,
// which the cap must be exactly 2^n
func (alloc *defaultAllocator) Put(buf []byte) error {
	bits := msb(cap(buf))
	if cap(buf) < 64 || cap(buf) > MaxSize || cap(buf) != 1<<bits {
		return E.New("allocator Put() incorrect buffer size: ", cap(buf))
	}
	buf = buf[:cap(buf)]
	alloc.buffers[bits-6].Put(&buf)
	return nil
}

// msb return the pos of most significant bit
func msb(size int) uint16 {
	return uint16(bits.Len32(uint32(size)) - 1)
}
