// Package dberrors defines the sentinel error kinds shared by the chunk,
// table, and database layers. They live in their own package, rather than
// in the root package, so that internal/chunk can return them without
// importing the root package and creating an import cycle; the root
// package re-exports each one under its public name.
package dberrors

import "errors"

var (
	// ErrConfig reports an invalid option value, such as a non-positive
	// chunk size.
	ErrConfig = errors.New("invalid configuration")

	// ErrNotFound reports an open on a missing directory with
	// create_if_missing disabled, or a drop of a missing table.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists reports a create on an existing directory without
	// open_if_exists, or new_table on a name already registered.
	ErrAlreadyExists = errors.New("already exists")

	// ErrAuthorization reports a drop_table call with the wrong drop key.
	ErrAuthorization = errors.New("authorization failed")

	// ErrTableDropped reports any operation attempted through a stale
	// table handle after its table has been dropped.
	ErrTableDropped = errors.New("table has been dropped")

	// ErrIO reports an underlying filesystem failure.
	ErrIO = errors.New("io error")

	// ErrCorruptChunk reports a decoder failure reading a chunk,
	// field-index, table-index, or properties file.
	ErrCorruptChunk = errors.New("corrupt chunk")

	// ErrNoSuchIndex reports get_indexed against a field with no loaded
	// index.
	ErrNoSuchIndex = errors.New("no such index")

	// ErrEmptyTable reports active_chunk called on a table with no
	// chunks, an internal invariant violation.
	ErrEmptyTable = errors.New("table has no chunks")
)
