package value

import (
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestMapRoundTripPreservesOrder(t *testing.T) {
	m := NewMap()
	keys := []string{"z", "a", "m", "b"}
	for i, k := range keys {
		m.Set(k, int64(i))
	}

	buf, err := msgpack.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Map
	if err := msgpack.Unmarshal(buf, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.Len() != len(keys) {
		t.Fatalf("expected %d entries, got %d", len(keys), got.Len())
	}
	if gotKeys := got.Keys(); !equalStrings(gotKeys, keys) {
		t.Errorf("order not preserved: got %v, want %v", gotKeys, keys)
	}
	for i, k := range keys {
		v, ok := got.Get(k)
		if !ok {
			t.Fatalf("missing key %q", k)
		}
		if v != int64(i) {
			t.Errorf("key %q: got %v, want %d", k, v, i)
		}
	}
}

func TestListRoundTrip(t *testing.T) {
	l := NewList()
	l.Append("first", int64(2), 3.5, true, nil)

	buf, err := msgpack.Marshal(l)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got List
	if err := msgpack.Unmarshal(buf, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Len() != l.Len() {
		t.Fatalf("expected %d items, got %d", l.Len(), got.Len())
	}
	if got.Get(0) != "first" {
		t.Errorf("item 0: got %v", got.Get(0))
	}
	if got.Get(1) != int64(2) {
		t.Errorf("item 1: got %v", got.Get(1))
	}
	if got.Get(2) != 3.5 {
		t.Errorf("item 2: got %v", got.Get(2))
	}
	if got.Get(3) != true {
		t.Errorf("item 3: got %v", got.Get(3))
	}
	if got.Get(4) != nil {
		t.Errorf("item 4: got %v", got.Get(4))
	}
}

func TestNestedRoundTrip(t *testing.T) {
	inner := NewMap()
	inner.Set("x", int64(1))
	inner.Set("y", int64(2))

	tags := NewList()
	tags.Append("a", "b")

	outer := NewMap()
	outer.Set("name", "widget")
	outer.Set("point", inner)
	outer.Set("tags", tags)

	buf, err := msgpack.Marshal(outer)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Map
	if err := msgpack.Unmarshal(buf, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	name, _ := got.Get("name")
	if name != "widget" {
		t.Errorf("name: got %v", name)
	}

	pointVal, ok := got.Get("point")
	if !ok {
		t.Fatal("missing point")
	}
	point, ok := pointVal.(*Map)
	if !ok {
		t.Fatalf("point: expected *Map, got %T", pointVal)
	}
	if x, _ := point.Get("x"); x != int64(1) {
		t.Errorf("point.x: got %v", x)
	}

	tagsVal, ok := got.Get("tags")
	if !ok {
		t.Fatal("missing tags")
	}
	gotTags, ok := tagsVal.(*List)
	if !ok {
		t.Fatalf("tags: expected *List, got %T", tagsVal)
	}
	if gotTags.Len() != 2 || gotTags.Get(0) != "a" || gotTags.Get(1) != "b" {
		t.Errorf("tags: got %v", gotTags.Items())
	}
}

func TestMapSetOverwritePreservesPosition(t *testing.T) {
	m := NewMap()
	m.Set("a", int64(1))
	m.Set("b", int64(2))
	m.Set("a", int64(99))

	if got := m.Keys(); !equalStrings(got, []string{"a", "b"}) {
		t.Errorf("expected order [a b], got %v", got)
	}
	v, _ := m.Get("a")
	if v != int64(99) {
		t.Errorf("expected overwritten value 99, got %v", v)
	}
}

func TestMapDelete(t *testing.T) {
	m := NewMap()
	m.Set("a", int64(1))
	m.Set("b", int64(2))
	m.Set("c", int64(3))

	m.Delete("b")

	if got := m.Keys(); !equalStrings(got, []string{"a", "c"}) {
		t.Errorf("expected order [a c], got %v", got)
	}
	if _, ok := m.Get("b"); ok {
		t.Error("expected b to be deleted")
	}
	// Remaining entries' positions must still resolve correctly.
	v, ok := m.Get("c")
	if !ok || v != int64(3) {
		t.Errorf("expected c=3, got %v, %v", v, ok)
	}
}

func TestValidateRejectsUnsupportedType(t *testing.T) {
	type unsupported struct{ A int }
	err := Validate(unsupported{A: 1})
	if err == nil {
		t.Fatal("expected error for unsupported type")
	}
	var codecErr *CodecError
	if !asCodecError(err, &codecErr) {
		t.Errorf("expected *CodecError, got %T", err)
	}
}

func TestValidateAcceptsContainers(t *testing.T) {
	l := NewList()
	l.Append(int64(1), "two", 3.0, false, nil)
	m := NewMap()
	m.Set("list", l)
	m.Set("str", "ok")

	if err := Validate(m); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func asCodecError(err error, target **CodecError) bool {
	if ce, ok := err.(*CodecError); ok {
		*target = ce
		return true
	}
	return false
}
