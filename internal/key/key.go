// Package key implements the record identifier sum type: a key is either a
// caller-supplied string, a caller-supplied integer, or the auto-generate
// sentinel that Table.Insert replaces with a freshly minted token before it
// ever reaches a chunk.
package key

import (
	"fmt"
	"strconv"
)

type kind int8

const (
	kindString kind = iota
	kindInt
	kindAuto
)

// Key is a comparable record identifier, usable directly as a map key.
type Key struct {
	kind kind
	s    string
	i    int64
}

// String returns a Key wrapping a caller-supplied string id.
func String(s string) Key {
	return Key{kind: kindString, s: s}
}

// Int returns a Key wrapping a caller-supplied integer id.
func Int(i int64) Key {
	return Key{kind: kindInt, i: i}
}

// Auto returns the sentinel Key that Table.Insert recognizes as "generate an
// id for me". It must never be used to address a stored record.
func Auto() Key {
	return Key{kind: kindAuto}
}

// IsAuto reports whether k is the auto-generate sentinel.
func (k Key) IsAuto() bool {
	return k.kind == kindAuto
}

// IsString reports whether k wraps a string id.
func (k Key) IsString() bool {
	return k.kind == kindString
}

// IsInt reports whether k wraps an integer id.
func (k Key) IsInt() bool {
	return k.kind == kindInt
}

// StringValue returns the wrapped string and true, or "" and false if k does
// not wrap a string.
func (k Key) StringValue() (string, bool) {
	if k.kind != kindString {
		return "", false
	}
	return k.s, true
}

// IntValue returns the wrapped integer and true, or 0 and false if k does
// not wrap an integer.
func (k Key) IntValue() (int64, bool) {
	if k.kind != kindInt {
		return 0, false
	}
	return k.i, true
}

// String renders k for logging and display. It is not meant to be parsed
// back.
func (k Key) String() string {
	switch k.kind {
	case kindString:
		return k.s
	case kindInt:
		return strconv.FormatInt(k.i, 10)
	default:
		return "<auto>"
	}
}

// Leaf converts k to the value-codec leaf representation used when encoding
// a chunk file: a string or an int64. Auto must never reach this point.
func (k Key) Leaf() (any, error) {
	switch k.kind {
	case kindString:
		return k.s, nil
	case kindInt:
		return k.i, nil
	default:
		return nil, fmt.Errorf("key: cannot encode the auto-generate sentinel")
	}
}

// FromLeaf builds a Key from a decoded value-codec leaf (string or int64).
func FromLeaf(v any) (Key, error) {
	switch t := v.(type) {
	case string:
		return String(t), nil
	case int64:
		return Int(t), nil
	case int:
		return Int(int64(t)), nil
	default:
		return Key{}, fmt.Errorf("key: unsupported id representation %T", v)
	}
}
