// Package headerlist contains an ordered list of RTSP headers.
package headerlist

import (
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a header is not present in the list.
var ErrNotFound = errors.New("header not found")

type entry struct {
	name  string
	value string
}

// HeaderList is an ordered mapping from header names to header values.
// Names are case sensitive and each name appears at most once.
// The zero value is an empty list ready to use.
type HeaderList struct {
	entries []entry
}

// New allocates a HeaderList.
func New() *HeaderList {
	return &HeaderList{}
}

func (h *HeaderList) find(name string) int {
	for i, e := range h.entries {
		if e.name == name {
			return i
		}
	}
	return -1
}

// Put inserts a header or replaces the value of an existing one.
func (h *HeaderList) Put(name string, value string) {
	if i := h.find(name); i >= 0 {
		h.entries[i].value = value
		return
	}
	h.entries = append(h.entries, entry{name: name, value: value})
}

// Append inserts a header or concatenates value to the existing one, without separator.
func (h *HeaderList) Append(name string, value string) {
	if i := h.find(name); i >= 0 {
		h.entries[i].value += value
		return
	}
	h.entries = append(h.entries, entry{name: name, value: value})
}

// Get returns the value of a header.
// A value holding a NUL byte is considered corrupted and is reported as missing.
func (h *HeaderList) Get(name string) (string, bool) {
	i := h.find(name)
	if i < 0 {
		return "", false
	}

	v := h.entries[i].value
	if strings.IndexByte(v, 0) >= 0 {
		return "", false
	}

	return v, true
}

// Contains checks whether a header is present.
func (h *HeaderList) Contains(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Remove removes a header.
func (h *HeaderList) Remove(name string) error {
	i := h.find(name)
	if i < 0 {
		return ErrNotFound
	}
	h.entries = append(h.entries[:i], h.entries[i+1:]...)
	return nil
}

// Len returns the number of headers.
func (h *HeaderList) Len() int {
	return len(h.entries)
}

// Keys returns the header names in insertion order.
// Every call produces a new sequence.
func (h *HeaderList) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, e := range h.entries {
			if !yield(e.name) {
				return
			}
		}
	}
}

// Clone returns a copy of the list.
func (h *HeaderList) Clone() *HeaderList {
	return &HeaderList{
		entries: append([]entry(nil), h.entries...),
	}
}

// Merge puts all headers of other into the list, in order.
func (h *HeaderList) Merge(other *HeaderList) {
	if other == nil {
		return
	}
	for _, e := range other.entries {
		h.Put(e.name, e.value)
	}
}

// MarshalSize returns the size of the serialized list.
func (h *HeaderList) MarshalSize() int {
	n := 0
	for _, e := range h.entries {
		n += len(e.name) + 2 + len(e.value) + 2
	}
	return n
}

// MarshalTo writes the list into buf, one "Name: value\r\n" line per header.
func (h *HeaderList) MarshalTo(buf []byte) int {
	pos := 0
	for _, e := range h.entries {
		pos += copy(buf[pos:], e.name)
		pos += copy(buf[pos:], ": ")
		pos += copy(buf[pos:], e.value)
		pos += copy(buf[pos:], "\r\n")
	}
	return pos
}

// Marshal serializes the list.
func (h *HeaderList) Marshal() []byte {
	buf := make([]byte, h.MarshalSize())
	h.MarshalTo(buf)
	return buf
}

// String implements fmt.Stringer.
func (h *HeaderList) String() string {
	return string(h.Marshal())
}
