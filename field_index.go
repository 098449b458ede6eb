package tashodb

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"tashodb/internal/dberrors"
	"tashodb/internal/format"
	"tashodb/internal/key"
	"tashodb/internal/layout"
	"tashodb/internal/value"
)

// fieldIndexVersion is the on-disk format version for field-index files.
const fieldIndexVersion = 1

// The spec describes a field index's wire content as a mapping from field
// name to a mapping from field value to [chunk, id] locations. The field
// name is already encoded in the file's name (<table>-<field>.index), so
// the file itself stores only the inner value-to-locations mapping,
// omitting the redundant outer wrapper.
//
// That inner mapping is stored as an ordered list of [value, locations]
// pairs rather than a value.Map, because an indexed field's values may be
// any scalar leaf type, not just strings.
func encodeFieldIndex(idx fieldIndex) ([]byte, error) {
	pairs := value.NewList()
	for fv, entries := range idx {
		if err := value.Validate(fv); err != nil {
			return nil, err
		}
		locations := value.NewList()
		for _, e := range entries {
			idLeaf, err := e.ID.Leaf()
			if err != nil {
				return nil, &value.CodecError{Value: e.ID}
			}
			loc := value.NewList()
			loc.Append(e.ChunkName, idLeaf)
			locations.Append(loc)
		}
		pair := value.NewList()
		pair.Append(fv, locations)
		pairs.Append(pair)
	}
	return msgpack.Marshal(pairs)
}

func decodeFieldIndex(data []byte) (fieldIndex, error) {
	var pairs value.List
	if err := msgpack.Unmarshal(data, &pairs); err != nil {
		return nil, err
	}

	idx := make(fieldIndex, pairs.Len())
	for _, item := range pairs.Items() {
		pair, ok := item.(*value.List)
		if !ok || pair.Len() != 2 {
			return nil, fmt.Errorf("field index: malformed entry")
		}
		fv := pair.Get(0)
		locations, ok := pair.Get(1).(*value.List)
		if !ok {
			return nil, fmt.Errorf("field index: locations is not a list")
		}
		entries := make([]indexEntry, 0, locations.Len())
		for _, locItem := range locations.Items() {
			loc, ok := locItem.(*value.List)
			if !ok || loc.Len() != 2 {
				return nil, fmt.Errorf("field index: malformed location entry")
			}
			chunkName, ok := loc.Get(0).(string)
			if !ok {
				return nil, fmt.Errorf("field index: chunk name is not a string")
			}
			id, err := key.FromLeaf(loc.Get(1))
			if err != nil {
				return nil, err
			}
			entries = append(entries, indexEntry{ChunkName: chunkName, ID: id})
		}
		idx[fv] = entries
	}
	return idx, nil
}

func writeFieldIndex(dir layout.Dir, tableName, field string, idx fieldIndex) error {
	path, err := dir.FieldIndexPath(tableName, field)
	if err != nil {
		return err
	}
	payload, err := encodeFieldIndex(idx)
	if err != nil {
		return err
	}
	header := format.Header{Type: format.TypeFieldIndex, Version: fieldIndexVersion}
	if err := format.WriteAtomic(path, header, payload); err != nil {
		return fmt.Errorf("%w: %v", dberrors.ErrIO, err)
	}
	return nil
}

func readFieldIndex(path string) (fieldIndex, error) {
	payload, err := format.ReadAndValidate(path, format.TypeFieldIndex, fieldIndexVersion)
	if err != nil {
		return nil, err
	}
	idx, err := decodeFieldIndex(payload)
	if err != nil {
		return nil, fmt.Errorf("field index %s: %w", path, err)
	}
	return idx, nil
}
