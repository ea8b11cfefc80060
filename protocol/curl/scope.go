package curl

import (
	"github.com/sagernet/sing-slist/common/buf"
	E "github.com/sagernet/sing-slist/common/exceptions"
	"github.com/sagernet/sing-slist/common/header"
	"github.com/sagernet/sing-slist/common/log"
	"github.com/sagernet/sing-slist/protocol/curl/slist"
)

var logger = log.NewLogger("curl")

// Scope pairs a StringRegistry with the ListAdapter built from it. Close tears
// down the list before the strings it points at.
type Scope struct {
	registry *StringRegistry
	adapter  *ListAdapter
	closed   bool
}

type ScopeOptions struct {
	Allocator  buf.Allocator
	MaxHeaders int
}

func NewScope(library Library, options ScopeOptions) *Scope {
	return &Scope{
		registry: NewStringRegistry(options.Allocator, options.MaxHeaders),
		adapter:  NewListAdapter(library),
	}
}

// Build appends every entry to a new scope. If an append fails the partial
// scope is closed before the error is returned.
func Build(library Library, options ScopeOptions, entries []header.Entry) (*Scope, error) {
	scope := NewScope(library, options)
	for index, entry := range entries {
		err := scope.Append(entry)
		if err != nil {
			logger.Debug("abort header list at entry ", index+1, " of ", len(entries), ": ", err)
			scope.Close()
			return nil, E.Cause(err, "append header ", entry.Key)
		}
	}
	return scope, nil
}

// WithHeaders builds the header list, lends it to transfer and tears it down
// after transfer returns, also when transfer fails or panics.
func WithHeaders(library Library, options ScopeOptions, entries []header.Entry, transfer func(list *slist.List) error) error {
	scope, err := Build(library, options, entries)
	if err != nil {
		return err
	}
	defer scope.Close()
	return transfer(scope.List())
}

func (s *Scope) Append(entry header.Entry) error {
	if entry.Empty {
		return s.adapter.AppendLine(s.registry, entry.Line())
	}
	return s.adapter.AppendHeader(s.registry, entry.Key, entry.Value)
}

func (s *Scope) List() *slist.List {
	return s.adapter.CurrentList()
}

func (s *Scope) Registry() *StringRegistry {
	return s.registry
}

func (s *Scope) Adapter() *ListAdapter {
	return s.adapter
}

// Close releases the list nodes, then the header strings. It is idempotent.
func (s *Scope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	nodes, buffers := s.adapter.Len(), s.registry.Len()
	defer s.registry.ReleaseAll()
	s.adapter.Release()
	logger.Trace("release ", nodes, " list nodes and ", buffers, " header buffers")
}
