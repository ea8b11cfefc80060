// Package header holds the key/value pairs a front-end collects before they are
// formatted into transfer header lines.
package header

import (
	"strings"

	E "github.com/sagernet/sing-slist/common/exceptions"

	"golang.org/x/net/http/httpguts"
)

var ErrInvalidFormat = E.New("invalid header format")

type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
	// Empty sends the header with no value instead of removing it.
	Empty bool `json:"empty,omitempty"`
}

// Line returns the entry as a transfer header line.
func (e Entry) Line() string {
	if e.Empty {
		return e.Key + ";"
	}
	return e.Key + ": " + e.Value
}

// IsRemoval reports whether the line removes a default header.
func (e Entry) IsRemoval() bool {
	return !e.Empty && e.Value == ""
}

func (e Entry) String() string {
	return e.Line()
}

// Parse reads a command line style header. "Key: Value" sets a header,
// "Key:" removes a default header and "Key;" sends the header with an empty
// value.
func Parse(line string) (Entry, error) {
	separator := strings.IndexAny(line, ":;")
	if separator <= 0 {
		return Entry{}, E.Extend(ErrInvalidFormat, line)
	}
	key := strings.TrimSpace(line[:separator])
	if !httpguts.ValidHeaderFieldName(key) {
		return Entry{}, E.Extend(ErrInvalidFormat, "bad name ", key)
	}
	if line[separator] == ';' {
		if strings.TrimSpace(line[separator+1:]) != "" {
			return Entry{}, E.Extend(ErrInvalidFormat, line)
		}
		return Entry{Key: key, Empty: true}, nil
	}
	value := strings.TrimSpace(line[separator+1:])
	if !httpguts.ValidHeaderFieldValue(value) {
		return Entry{}, E.Extend(ErrInvalidFormat, "bad value for ", key)
	}
	return Entry{Key: key, Value: value}, nil
}

// ParseAll parses every line, reporting all malformed lines together.
func ParseAll(lines []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(lines))
	var errors []error
	for _, line := range lines {
		entry, err := Parse(line)
		if err != nil {
			errors = append(errors, err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := E.Errors(errors...); err != nil {
		return nil, err
	}
	return entries, nil
}
