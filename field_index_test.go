package tashodb

import (
	"testing"

	"tashodb/internal/layout"
)

func TestFieldIndexWriteReadRoundTrip(t *testing.T) {
	dir := layout.New(t.TempDir())

	idx := fieldIndex{
		"red":  {{ChunkName: "t-aaa", ID: StringKey("a")}, {ChunkName: "t-bbb", ID: StringKey("b")}},
		"blue": {{ChunkName: "t-aaa", ID: IntKey(7)}},
	}

	if err := writeFieldIndex(dir, "t", "color", idx); err != nil {
		t.Fatalf("write field index: %v", err)
	}

	path, err := dir.FieldIndexPath("t", "color")
	if err != nil {
		t.Fatalf("field index path: %v", err)
	}
	got, err := readFieldIndex(path)
	if err != nil {
		t.Fatalf("read field index: %v", err)
	}

	if len(got["red"]) != 2 {
		t.Fatalf("expected 2 entries for red, got %d", len(got["red"]))
	}
	if len(got["blue"]) != 1 {
		t.Fatalf("expected 1 entry for blue, got %d", len(got["blue"]))
	}
	if got["blue"][0].ChunkName != "t-aaa" {
		t.Fatalf("expected chunk t-aaa, got %s", got["blue"][0].ChunkName)
	}
	n, ok := got["blue"][0].ID.IntValue()
	if !ok || n != 7 {
		t.Fatalf("expected int id 7, got %v ok=%v", n, ok)
	}
}
