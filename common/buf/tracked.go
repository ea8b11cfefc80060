package buf

import (
	"sync"

	E "github.com/sagernet/sing-slist/common/exceptions"
)

var ErrUntracked = E.New("release of untracked buffer")

const poisonByte = 0xdd

// TrackedAllocator records every live allocation of its upstream allocator.
// Releasing a buffer twice, or one it never handed out, fails with
// ErrUntracked instead of corrupting the upstream pool.
type TrackedAllocator struct {
	upstream Allocator
	access   sync.Mutex
	live     map[*byte]struct{}
	gets     int
	puts     int
	limit    int
	poison   bool
}

type TrackedOptions struct {
	// Limit caps the number of live allocations, zero means unlimited.
	Limit int
	// Poison overwrites released buffers so that readers holding a stale
	// slice observe garbage instead of the old contents.
	Poison bool
}

func NewTrackedAllocator(upstream Allocator, options TrackedOptions) *TrackedAllocator {
	if upstream == nil {
		upstream = DefaultAllocator
	}
	return &TrackedAllocator{
		upstream: upstream,
		live:     make(map[*byte]struct{}),
		limit:    options.Limit,
		poison:   options.Poison,
	}
}

func (a *TrackedAllocator) Get(size int) []byte {
	a.access.Lock()
	defer a.access.Unlock()
	if a.limit > 0 && len(a.live) >= a.limit {
		return nil
	}
	buffer := a.upstream.Get(size)
	if buffer == nil {
		return nil
	}
	a.live[key(buffer)] = struct{}{}
	a.gets++
	return buffer
}

func (a *TrackedAllocator) Put(buf []byte) error {
	a.access.Lock()
	defer a.access.Unlock()
	if cap(buf) == 0 {
		return ErrUntracked
	}
	bufKey := key(buf)
	if _, loaded := a.live[bufKey]; !loaded {
		return ErrUntracked
	}
	delete(a.live, bufKey)
	a.puts++
	if a.poison {
		full := buf[:cap(buf)]
		for i := range full {
			full[i] = poisonByte
		}
	}
	return a.upstream.Put(buf)
}

// Gets returns the number of successful allocations.
func (a *TrackedAllocator) Gets() int {
	a.access.Lock()
	defer a.access.Unlock()
	return a.gets
}

// Puts returns the number of successful releases.
func (a *TrackedAllocator) Puts() int {
	a.access.Lock()
	defer a.access.Unlock()
	return a.puts
}

// Outstanding returns the number of allocations not yet released.
func (a *TrackedAllocator) Outstanding() int {
	a.access.Lock()
	defer a.access.Unlock()
	return len(a.live)
}

func key(buf []byte) *byte {
	return &buf[:cap(buf)][0]
}
