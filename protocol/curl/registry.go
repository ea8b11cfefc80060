package curl

import (
	"github.com/sagernet/sing-slist/common"
	"github.com/sagernet/sing-slist/common/buf"
	"github.com/sagernet/sing-slist/common/debug"
	E "github.com/sagernet/sing-slist/common/exceptions"
)

// StringRegistry owns the NUL terminated header strings of one request and
// keeps them alive until ReleaseAll, whatever the foreign list does with the
// pointers it was given.
type StringRegistry struct {
	allocator buf.Allocator
	buffers   [][]byte
	limit     int
}

// NewStringRegistry creates a registry releasing into allocator, or the
// default allocator if nil. A positive limit bounds the number of buffers the
// registry will hold.
func NewStringRegistry(allocator buf.Allocator, limit int) *StringRegistry {
	if allocator == nil {
		allocator = buf.DefaultAllocator
	}
	return &StringRegistry{
		allocator: allocator,
		limit:     limit,
	}
}

func (r *StringRegistry) Allocator() buf.Allocator {
	return r.allocator
}

// Register takes ownership of buffer, which must come from the registry's
// allocator. On error the caller still owns buffer. Registering a buffer
// without storage panics.
func (r *StringRegistry) Register(buffer []byte) error {
	if r.limit > 0 && len(r.buffers) >= r.limit {
		return E.Extend(ErrOutOfMemory, "registry full at ", r.limit, " buffers")
	}
	if cap(buffer) == 0 {
		panic(E.New("register buffer without storage"))
	}
	if debug.Enabled {
		for _, registered := range r.buffers {
			if &registered[:cap(registered)][0] == &buffer[:cap(buffer)][0] {
				panic("buffer registered twice")
			}
		}
	}
	r.buffers = append(r.buffers, buffer)
	return nil
}

// RegisterString allocates a NUL terminated copy of s and registers it.
func (r *StringRegistry) RegisterString(s string) ([]byte, error) {
	buffer := buf.CString(r.allocator, s)
	if buffer == nil {
		return nil, E.Extend(ErrOutOfMemory, "allocate ", len(s)+1, " bytes")
	}
	err := r.Register(buffer)
	if err != nil {
		common.Must(r.allocator.Put(buffer))
		return nil, err
	}
	return buffer, nil
}

func (r *StringRegistry) Len() int {
	return len(r.buffers)
}

// Buffers returns the owned buffers in registration order. The slices stay
// owned by the registry.
func (r *StringRegistry) Buffers() [][]byte {
	return r.buffers
}

// ReleaseAll returns every owned buffer to the allocator and empties the
// registry. A failing release is a broken allocator and panics.
func (r *StringRegistry) ReleaseAll() {
	for index, buffer := range r.buffers {
		common.Must(r.allocator.Put(buffer))
		r.buffers[index] = nil
	}
	r.buffers = r.buffers[:0]
}
