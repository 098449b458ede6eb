package chunk

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"tashodb/internal/dberrors"
	"tashodb/internal/format"
	"tashodb/internal/key"
	"tashodb/internal/value"
)

// currentVersion is the on-disk format version for chunk files.
const currentVersion = 1

// encodeItems serializes a chunk's in-memory mapping as an ordered list of
// [id, record] pairs, rather than a value.Map, because ids may be strings
// or integers and value.Map keys are strings only. Both id representations
// are supported directly as value-codec leaf types.
func encodeItems(items map[key.Key]*value.Map) ([]byte, error) {
	pairs := value.NewList()
	for k, v := range items {
		leaf, err := k.Leaf()
		if err != nil {
			return nil, &value.CodecError{Value: k}
		}
		pair := value.NewList()
		pair.Append(leaf, v)
		pairs.Append(pair)
	}
	return msgpack.Marshal(pairs)
}

// decodeItems reverses encodeItems.
func decodeItems(data []byte) (map[key.Key]*value.Map, error) {
	var pairs value.List
	if err := msgpack.Unmarshal(data, &pairs); err != nil {
		return nil, err
	}

	items := make(map[key.Key]*value.Map, pairs.Len())
	for _, item := range pairs.Items() {
		pair, ok := item.(*value.List)
		if !ok || pair.Len() != 2 {
			return nil, fmt.Errorf("chunk: malformed record entry")
		}
		k, err := key.FromLeaf(pair.Get(0))
		if err != nil {
			return nil, err
		}
		v, ok := pair.Get(1).(*value.Map)
		if !ok {
			return nil, fmt.Errorf("chunk: record value is not a map")
		}
		items[k] = v
	}
	return items, nil
}

func writeChunkFile(path string, items map[key.Key]*value.Map) error {
	payload, err := encodeItems(items)
	if err != nil {
		return err
	}
	header := format.Header{Type: format.TypeChunk, Version: currentVersion}
	if err := format.WriteAtomic(path, header, payload); err != nil {
		return fmt.Errorf("%w: %v", dberrors.ErrIO, err)
	}
	return nil
}

func readChunkFile(path string) (map[key.Key]*value.Map, error) {
	payload, err := format.ReadAndValidate(path, format.TypeChunk, currentVersion)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", dberrors.ErrCorruptChunk, err)
	}
	items, err := decodeItems(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dberrors.ErrCorruptChunk, err)
	}
	return items, nil
}
