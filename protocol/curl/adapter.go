package curl

import (
	"github.com/sagernet/sing-slist/common"
	"github.com/sagernet/sing-slist/common/buf"
	E "github.com/sagernet/sing-slist/common/exceptions"
	"github.com/sagernet/sing-slist/protocol/curl/slist"
)

// Library is the list half of a C-style transfer library. Append reports
// failure through its second result; the returned list is only meaningful
// when it is true.
type Library interface {
	Append(list *slist.List, data []byte) (*slist.List, bool)
	FreeAll(list *slist.List)
}

var _ Library = (*slist.Library)(nil)

type State uint8

const (
	StateEmpty State = iota
	StateBuilding
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilding:
		return "building"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// ListAdapter builds a foreign header list. It owns the list nodes; the
// strings the nodes point at belong to the StringRegistry passed to each
// append.
type ListAdapter struct {
	library  Library
	list     *slist.List
	nodes    int
	released bool
}

func NewListAdapter(library Library) *ListAdapter {
	return &ListAdapter{library: library}
}

// AppendHeader formats "key: value" into a registered buffer and appends it to
// the foreign list. Appending after Release panics.
func (a *ListAdapter) AppendHeader(registry *StringRegistry, key string, value string) error {
	a.checkReleased(key)
	buffer := buf.CString(registry.Allocator(), key, ": ", value)
	if buffer == nil {
		return E.Extend(ErrOutOfMemory, "format header ", key)
	}
	return a.append(registry, buffer)
}

// AppendLine appends a preformatted header line.
func (a *ListAdapter) AppendLine(registry *StringRegistry, line string) error {
	a.checkReleased(line)
	buffer := buf.CString(registry.Allocator(), line)
	if buffer == nil {
		return E.Extend(ErrOutOfMemory, "format header line")
	}
	return a.append(registry, buffer)
}

func (a *ListAdapter) append(registry *StringRegistry, buffer []byte) error {
	err := registry.Register(buffer)
	if err != nil {
		common.Must(registry.Allocator().Put(buffer))
		return err
	}
	list, ok := a.library.Append(a.list, buffer)
	if !ok {
		return E.Extend(ErrForeignAppendFailed, buf.GoString(buffer))
	}
	a.list = list
	a.nodes++
	return nil
}

func (a *ListAdapter) checkReleased(what string) {
	if a.released {
		panic(E.Extend(ErrUseAfterRelease, "append ", what))
	}
}

// CurrentList returns the list for the transfer call to borrow. It is nil
// while no header has been appended.
func (a *ListAdapter) CurrentList() *slist.List {
	return a.list
}

func (a *ListAdapter) Len() int {
	return a.nodes
}

func (a *ListAdapter) State() State {
	switch {
	case a.released:
		return StateReleased
	case a.list != nil:
		return StateBuilding
	default:
		return StateEmpty
	}
}

// Release frees the foreign list nodes. Calling it again is a no-op.
func (a *ListAdapter) Release() {
	if a.list != nil {
		a.library.FreeAll(a.list)
		a.list = nil
	}
	a.nodes = 0
	a.released = true
}
