// Package slist is an in-process rendition of the string list a C-style HTTP
// transfer library takes as its header argument: a nil terminated singly
// linked list of NUL terminated strings, appended at the tail and released in
// one call.
package slist

import (
	"sync"
	"sync/atomic"

	"github.com/sagernet/sing-slist/common/buf"
)

type List struct {
	Data []byte
	Next *List
}

type Mode uint8

const (
	// Copy duplicates every appended string into node owned memory.
	Copy Mode = iota
	// Retain stores the caller's slice as is; the caller must keep it alive
	// until the list is freed.
	Retain
)

func (m Mode) String() string {
	switch m {
	case Copy:
		return "copy"
	case Retain:
		return "retain"
	default:
		return "unknown"
	}
}

type Options struct {
	Mode Mode
	// MaxNodes bounds the nodes live at once across all lists of the
	// library, zero means unlimited.
	MaxNodes int
	// FailAppend, when set, is consulted before each append; returning true
	// makes the append fail.
	FailAppend func(data []byte) bool
}

type Library struct {
	mode        Mode
	maxNodes    int64
	failAppend  func(data []byte) bool
	outstanding atomic.Int64
	frees       atomic.Int64
}

var nodePool = sync.Pool{
	New: func() any { return new(List) },
}

func New(options Options) *Library {
	return &Library{
		mode:       options.Mode,
		maxNodes:   int64(options.MaxNodes),
		failAppend: options.FailAppend,
	}
}

func (l *Library) Mode() Mode {
	return l.mode
}

// Append adds data at the tail of list and returns the head of the result.
// It reports false, leaving list untouched and still owned by the caller, if
// data is not a single NUL terminated string or no node can be allocated.
func (l *Library) Append(list *List, data []byte) (*List, bool) {
	if !buf.IsCString(data) {
		return nil, false
	}
	if l.failAppend != nil && l.failAppend(data) {
		return nil, false
	}
	if l.outstanding.Add(1) > l.maxNodes && l.maxNodes > 0 {
		l.outstanding.Add(-1)
		return nil, false
	}
	node := nodePool.Get().(*List)
	if l.mode == Copy {
		node.Data = append(make([]byte, 0, len(data)), data...)
	} else {
		node.Data = data
	}
	node.Next = nil
	if list == nil {
		return node, true
	}
	last := list
	for last.Next != nil {
		last = last.Next
	}
	last.Next = node
	return list, true
}

// FreeAll releases every node of list. Strings appended in Retain mode stay
// owned by the caller.
func (l *Library) FreeAll(list *List) {
	if list == nil {
		return
	}
	l.frees.Add(1)
	for list != nil {
		next := list.Next
		*list = List{}
		nodePool.Put(list)
		l.outstanding.Add(-1)
		list = next
	}
}

// Outstanding returns the number of nodes allocated and not yet freed.
func (l *Library) Outstanding() int {
	return int(l.outstanding.Load())
}

// Frees returns the number of FreeAll calls that released a non-empty list.
func (l *Library) Frees() int {
	return int(l.frees.Load())
}

// Strings reads each node up to its terminator.
func Strings(list *List) []string {
	var lines []string
	for ; list != nil; list = list.Next {
		lines = append(lines, buf.GoString(list.Data))
	}
	return lines
}

func Len(list *List) int {
	var n int
	for ; list != nil; list = list.Next {
		n++
	}
	return n
}
