// Package layout centralizes path computation for a database directory.
//
// A database owns one directory on disk:
//
//	<root>/
//	  <properties-name>             (database properties, see internal/format TypeProperties)
//	  <table-index-name>            (table registry, see internal/format TypeTableIndex)
//	  <chunk-name>                  (one file per chunk, see internal/format TypeChunk)
//	  <table>-<field>.index         (field index, see internal/format TypeFieldIndex)
//
// Centralizing these paths in one place avoids ad hoc filepath.Join calls
// scattered across the table and database layers, and gives a single spot
// to reject table/field names that could escape the directory.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dir represents a database directory.
type Dir struct {
	root string
}

// New creates a Dir rooted at the given path.
func New(root string) Dir {
	return Dir{root: root}
}

// Root returns the database directory path.
func (d Dir) Root() string {
	return d.root
}

// PropertiesPath returns the path to the properties file, given its
// configured name.
func (d Dir) PropertiesPath(name string) string {
	return filepath.Join(d.root, name)
}

// TableIndexPath returns the path to the table index file, given its
// configured name.
func (d Dir) TableIndexPath(name string) string {
	return filepath.Join(d.root, name)
}

// ChunkPath returns the path to a chunk's backing file, given its name.
func (d Dir) ChunkPath(chunkName string) (string, error) {
	if err := validateSegment(chunkName); err != nil {
		return "", fmt.Errorf("chunk name %q: %w", chunkName, err)
	}
	return filepath.Join(d.root, chunkName), nil
}

// FieldIndexPath returns the path to a field-index file, given the owning
// table name and the indexed field name.
func (d Dir) FieldIndexPath(tableName, fieldName string) (string, error) {
	if err := validateSegment(tableName); err != nil {
		return "", fmt.Errorf("table name %q: %w", tableName, err)
	}
	if err := validateSegment(fieldName); err != nil {
		return "", fmt.Errorf("field name %q: %w", fieldName, err)
	}
	return filepath.Join(d.root, tableName+"-"+fieldName+".index"), nil
}

// EnsureExists creates the database directory (and parents) if it doesn't
// already exist.
func (d Dir) EnsureExists() error {
	if err := os.MkdirAll(d.root, 0o750); err != nil {
		return fmt.Errorf("create database directory %s: %w", d.root, err)
	}
	return nil
}

// validateSegment rejects names that could escape the directory through a
// path separator or relative-path component.
func validateSegment(name string) error {
	if name == "" {
		return fmt.Errorf("empty name")
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("contains a path separator")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("relative path component")
	}
	return nil
}
