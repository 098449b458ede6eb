package format

import (
	"fmt"
	"os"
	"path/filepath"
)

const fileMode = 0o640

// WriteAtomic writes header followed by payload to path using a
// write-to-temp-then-rename sequence: a crash mid-write leaves whatever
// version of path existed before intact, rather than a half-written file.
// The orphaned temp file left by a crash is never referenced by name and is
// simply ignored by future reads.
func WriteAtomic(path string, header Header, payload []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	buf := header.Encode()
	if _, err := tmp.Write(buf[:]); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// ReadAndValidate reads path, validates its header against expectedType and
// expectedVersion, and returns the payload that follows the header.
func ReadAndValidate(path string, expectedType, expectedVersion byte) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if _, err := DecodeAndValidate(data, expectedType, expectedVersion); err != nil {
		return nil, err
	}
	return data[HeaderSize:], nil
}
