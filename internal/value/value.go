// Package value implements the ordered value tree shared by every on-disk
// artifact: chunk files, the properties file, the table index, and
// field-index files. A value is one of a string, an int64, a float64, a
// bool, nil, an ordered Map, or an ordered List. Encoding is delegated to
// msgpack, with custom marshalers on Map and List so that key and element
// order survive a round trip — native msgpack map encoding does not
// guarantee Go map iteration order.
package value

import "fmt"

// entry is one key/value pair in an ordered Map.
type entry struct {
	key string
	val any
}

// Map is an ordered string-keyed mapping of values. Unlike a plain Go map,
// insertion order is preserved across Set/Delete and across an encode/decode
// round trip.
type Map struct {
	entries []entry
	index   map[string]int
}

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

// Get returns the value stored under key and whether it was present.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.entries[i].val, true
}

// Set inserts or overwrites the value under key. Overwriting an existing
// key does not change its position.
func (m *Map) Set(key string, val any) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.entries[i].val = val
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, entry{key: key, val: val})
}

// Delete removes key, if present, shifting later entries down to preserve
// order.
func (m *Map) Delete(key string) {
	i, ok := m.index[key]
	if !ok {
		return
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	delete(m.index, key)
	for k, idx := range m.index {
		if idx > i {
			m.index[k] = idx - 1
		}
	}
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.key
	}
	return keys
}

// Range calls fn for each entry in insertion order, stopping early if fn
// returns false.
func (m *Map) Range(fn func(key string, val any) bool) {
	if m == nil {
		return
	}
	for _, e := range m.entries {
		if !fn(e.key, e.val) {
			return
		}
	}
}

// Clone returns a shallow copy: nested Map/List values are not deep-copied.
func (m *Map) Clone() *Map {
	out := NewMap()
	if m == nil {
		return out
	}
	out.entries = make([]entry, len(m.entries))
	copy(out.entries, m.entries)
	out.index = make(map[string]int, len(m.index))
	for k, v := range m.index {
		out.index[k] = v
	}
	return out
}

// List is an ordered sequence of values.
type List struct {
	items []any
}

// NewList returns an empty ordered list.
func NewList() *List {
	return &List{}
}

// Append adds one or more values to the end of the list.
func (l *List) Append(vals ...any) {
	l.items = append(l.items, vals...)
}

// Get returns the value at index i.
func (l *List) Get(i int) any {
	return l.items[i]
}

// Len returns the number of items.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Items returns the underlying slice. Callers must not retain a mutable
// reference past the list's lifetime without copying.
func (l *List) Items() []any {
	if l == nil {
		return nil
	}
	return l.items
}

// CodecError reports a value that cannot be represented in the codec: a
// type other than string, int64, float64, bool, nil, *Map, or *List.
type CodecError struct {
	Value any
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("value: unencodable type %T", e.Value)
}

// Validate recursively checks that v is composed only of codec-supported
// types, returning a *CodecError on the first violation found.
func Validate(v any) error {
	switch t := v.(type) {
	case nil, string, int64, float64, bool:
		return nil
	case int:
		return nil
	case *Map:
		var err error
		t.Range(func(_ string, val any) bool {
			if e := Validate(val); e != nil {
				err = e
				return false
			}
			return true
		})
		return err
	case *List:
		for _, item := range t.Items() {
			if err := Validate(item); err != nil {
				return err
			}
		}
		return nil
	default:
		return &CodecError{Value: v}
	}
}
