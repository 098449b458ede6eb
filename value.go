package tashodb

import "tashodb/internal/value"

// Map is an ordered string-keyed mapping of field values. Field values may
// be a string, an int64, a float64, a bool, nil, a *Map, or a *List.
type Map = value.Map

// List is an ordered sequence of values.
type List = value.List

// NewMap returns an empty ordered map, suitable as the value half of a
// record.
func NewMap() *Map {
	return value.NewMap()
}

// NewList returns an empty ordered list.
func NewList() *List {
	return value.NewList()
}
