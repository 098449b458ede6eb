package tashodb

import "tashodb/internal/key"

// Key is a record identifier: either a caller-supplied string, a
// caller-supplied integer, or the AutoKey sentinel.
type Key = key.Key

// StringKey wraps a caller-supplied string id.
func StringKey(s string) Key {
	return key.String(s)
}

// IntKey wraps a caller-supplied integer id.
func IntKey(i int64) Key {
	return key.Int(i)
}

// AutoKey returns the sentinel that Table.Insert recognizes as "generate an
// id for me". Passing it to any other operation is a programming error.
func AutoKey() Key {
	return key.Auto()
}
