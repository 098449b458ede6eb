package tashodb

import (
	"tashodb/internal/dberrors"
	"tashodb/internal/value"
)

// Sentinel error kinds. Use errors.Is to check for these; operations that
// fail return an error that wraps one of them together with context.
var (
	// ErrConfig reports an invalid option value, such as a non-positive
	// chunk size.
	ErrConfig = dberrors.ErrConfig

	// ErrNotFound reports an open on a missing directory with
	// create_if_missing disabled, or a drop of a missing table.
	ErrNotFound = dberrors.ErrNotFound

	// ErrAlreadyExists reports a create on an existing directory without
	// open_if_exists, or NewTable on a name already registered.
	ErrAlreadyExists = dberrors.ErrAlreadyExists

	// ErrAuthorization reports DropTable called with the wrong drop key.
	ErrAuthorization = dberrors.ErrAuthorization

	// ErrTableDropped reports any operation attempted through a stale
	// table handle after its table has been dropped.
	ErrTableDropped = dberrors.ErrTableDropped

	// ErrIO reports an underlying filesystem failure.
	ErrIO = dberrors.ErrIO

	// ErrCorruptChunk reports a decoder failure reading a chunk,
	// field-index, table-index, or properties file.
	ErrCorruptChunk = dberrors.ErrCorruptChunk

	// ErrNoSuchIndex reports GetIndexed against a field with no loaded
	// index.
	ErrNoSuchIndex = dberrors.ErrNoSuchIndex

	// ErrEmptyTable reports ActiveChunk called on a table with no chunks,
	// an internal invariant violation.
	ErrEmptyTable = dberrors.ErrEmptyTable
)

// CodecError reports a value that cannot be represented by the value codec.
type CodecError = value.CodecError
