package value

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	_ msgpack.CustomEncoder = (*Map)(nil)
	_ msgpack.CustomDecoder = (*Map)(nil)
	_ msgpack.CustomEncoder = (*List)(nil)
	_ msgpack.CustomDecoder = (*List)(nil)
)

// EncodeMsgpack writes m as a msgpack map, preserving key order by encoding
// entries in insertion order rather than delegating to the library's native
// (unordered) map support.
func (m *Map) EncodeMsgpack(enc *msgpack.Encoder) error {
	if m == nil {
		return enc.EncodeMapLen(0)
	}
	if err := enc.EncodeMapLen(len(m.entries)); err != nil {
		return err
	}
	for _, e := range m.entries {
		if err := enc.EncodeString(e.key); err != nil {
			return err
		}
		if err := encodeValue(enc, e.val); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsgpack reads a msgpack map into m, preserving the order in which
// keys appear on the wire.
func (m *Map) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	m.entries = nil
	m.index = make(map[string]int, n)
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return err
		}
		val, err := decodeValue(dec)
		if err != nil {
			return err
		}
		m.index[key] = len(m.entries)
		m.entries = append(m.entries, entry{key: key, val: val})
	}
	return nil
}

// EncodeMsgpack writes l as a msgpack array.
func (l *List) EncodeMsgpack(enc *msgpack.Encoder) error {
	if l == nil {
		return enc.EncodeArrayLen(0)
	}
	if err := enc.EncodeArrayLen(len(l.items)); err != nil {
		return err
	}
	for _, item := range l.items {
		if err := encodeValue(enc, item); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsgpack reads a msgpack array into l.
func (l *List) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	l.items = make([]any, 0, n)
	for i := 0; i < n; i++ {
		val, err := decodeValue(dec)
		if err != nil {
			return err
		}
		l.items = append(l.items, val)
	}
	return nil
}

// encodeValue writes a single codec-supported leaf or container value.
func encodeValue(enc *msgpack.Encoder, v any) error {
	switch t := v.(type) {
	case nil:
		return enc.EncodeNil()
	case string:
		return enc.EncodeString(t)
	case int64:
		return enc.EncodeInt64(t)
	case int:
		return enc.EncodeInt64(int64(t))
	case float64:
		return enc.EncodeFloat64(t)
	case bool:
		return enc.EncodeBool(t)
	case *Map:
		return enc.Encode(t)
	case *List:
		return enc.Encode(t)
	default:
		return &CodecError{Value: v}
	}
}

// decodeValue reads a single leaf or container value, dispatching on the
// next msgpack wire type. Code ranges below are the fixed format codes
// defined by the msgpack specification, not this library's internals.
func decodeValue(dec *msgpack.Decoder) (any, error) {
	code, err := dec.PeekCode()
	if err != nil {
		return nil, err
	}

	switch {
	case code == 0xc0: // nil
		return nil, dec.DecodeNil()
	case code == 0xc2 || code == 0xc3: // false, true
		return dec.DecodeBool()
	case code == 0xca || code == 0xcb: // float32, float64
		return dec.DecodeFloat64()
	case code>>4 == 0x8 || code == 0xde || code == 0xdf: // fixmap, map16, map32
		m := NewMap()
		if err := m.DecodeMsgpack(dec); err != nil {
			return nil, err
		}
		return m, nil
	case code>>4 == 0x9 || code == 0xdc || code == 0xdd: // fixarray, array16, array32
		l := NewList()
		if err := l.DecodeMsgpack(dec); err != nil {
			return nil, err
		}
		return l, nil
	case code>>5 == 0x5 || code == 0xd9 || code == 0xda || code == 0xdb: // fixstr, str8/16/32
		return dec.DecodeString()
	case code>>7 == 0x0 || code>>5 == 0x7 || (code >= 0xcc && code <= 0xcf) || (code >= 0xd0 && code <= 0xd3):
		// positive fixint, negative fixint, uint8-64, int8-64
		return dec.DecodeInt64()
	default:
		return nil, fmt.Errorf("value: unsupported wire type 0x%02x", code)
	}
}
