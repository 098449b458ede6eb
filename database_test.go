package tashodb

import (
	"errors"
	"strconv"
	"testing"
)

func testOptions(chunkSize int) Options {
	opts := DefaultOptions()
	opts.ChunkSize = chunkSize
	return opts
}

func TestCreateThenOpen(t *testing.T) {
	dir := t.TempDir()

	db, err := Create(dir, testOptions(2))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.NewTable("t"); err != nil {
		t.Fatalf("new table: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(dir, testOptions(2))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer reopened.Close()

	tbl := reopened.Table("t")
	if tbl == nil {
		t.Fatalf("table %q did not survive reopen", "t")
	}
}

func TestCreateFailsIfExistsWithoutOpenIfExists(t *testing.T) {
	dir := t.TempDir()
	db, err := Create(dir, testOptions(8))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer db.Close()

	_, err = Create(dir, testOptions(8))
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateWithOpenIfExistsDelegatesToOpen(t *testing.T) {
	dir := t.TempDir()
	db, err := Create(dir, testOptions(8))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.NewTable("t"); err != nil {
		t.Fatalf("new table: %v", err)
	}
	db.Close()

	opts := testOptions(8)
	opts.OpenIfExists = true
	reopened, err := Create(dir, opts)
	if err != nil {
		t.Fatalf("create with open_if_exists: %v", err)
	}
	defer reopened.Close()
	if reopened.Table("t") == nil {
		t.Fatalf("expected table %q to survive", "t")
	}
}

func TestOpenFailsIfMissingWithoutCreateIfMissing(t *testing.T) {
	dir := t.TempDir() + "/missing"
	opts := testOptions(8)
	opts.CreateIfMissing = false
	_, err := Open(dir, opts)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenWithCreateIfMissingDelegatesToCreate(t *testing.T) {
	dir := t.TempDir() + "/fresh"
	db, err := Open(dir, testOptions(8))
	if err != nil {
		t.Fatalf("open with create_if_missing: %v", err)
	}
	defer db.Close()
	if db.Table("anything") == nil {
		t.Fatalf("expected Table to materialize a new table")
	}
}

func TestNewTableRejectsDuplicateName(t *testing.T) {
	db, err := Create(t.TempDir(), testOptions(8))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer db.Close()

	if _, err := db.NewTable("t"); err != nil {
		t.Fatalf("new table: %v", err)
	}
	if _, err := db.NewTable("t"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestDropTableRequiresCorrectKey(t *testing.T) {
	db, err := Create(t.TempDir(), testOptions(8))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer db.Close()

	tbl, err := db.NewTable("t")
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	if _, err := tbl.Insert(StringKey("a"), NewMap()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := db.DropTable("t", "wrong-key"); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization, got %v", err)
	}

	if err := db.DropTable("t", tbl.DropKey()); err != nil {
		t.Fatalf("drop table with correct key: %v", err)
	}

	if _, err := tbl.Insert(StringKey("b"), NewMap()); !errors.Is(err, ErrTableDropped) {
		t.Fatalf("expected ErrTableDropped on the dropped handle, got %v", err)
	}

	fresh := db.Table("t")
	if fresh == nil {
		t.Fatalf("expected Table to recreate a fresh table named %q", "t")
	}
	if fresh.DropKey() != tbl.DropKey() {
		t.Fatalf("recreated table should derive the same deterministic drop key: got %q, dropped table had %q", fresh.DropKey(), tbl.DropKey())
	}
	if _, ok, err := fresh.RawGet(StringKey("a")); err != nil || ok {
		t.Fatalf("expected recreated table to be empty, got ok=%v err=%v", ok, err)
	}
}

// S1: three inserts into a chunk_size=2 table produce two chunk files, and
// a reopened database returns all three records via a scan.
func TestScenarioChunkRolloverAndReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Create(dir, testOptions(2))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tbl, err := db.NewTable("t")
	if err != nil {
		t.Fatalf("new table: %v", err)
	}

	for k, n := range map[string]int64{"a": 1, "b": 2, "c": 3} {
		v := NewMap()
		v.Set("v", n)
		if _, err := tbl.Insert(StringKey(k), v); err != nil {
			t.Fatalf("insert %s: %v", k, err)
		}
	}
	if err := tbl.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(tbl.chunkNames()) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(tbl.chunkNames()))
	}

	reopened, err := Open(dir, testOptions(2))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got := make(map[string]int64)
	for id, v := range reopened.Table("t").Items() {
		n, _ := v.Get("v")
		s, _ := id.StringValue()
		got[s] = n.(int64)
	}
	want := map[string]int64{"a": 1, "b": 2, "c": 3}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("key %s: expected %d, got %d", k, v, got[k])
		}
	}
}

// S3: bulk inserting 10000 records with chunk_size=1000 produces exactly
// 10 chunks after close, each with 1000 entries, and a query by field finds
// exactly one matching record.
func TestScenarioBulkInsertExactChunkCount(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large bulk insert in short mode")
	}
	dir := t.TempDir()
	db, err := Create(dir, testOptions(1000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tbl, err := db.NewTable("t")
	if err != nil {
		t.Fatalf("new table: %v", err)
	}

	items := make(map[Key]*Map, 10000)
	for i := 0; i < 10000; i++ {
		v := NewMap()
		v.Set("n", int64(i))
		items[StringKey(strconv.Itoa(i))] = v
	}
	if err := tbl.BulkInsert(items); err != nil {
		t.Fatalf("bulk insert: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	names := tbl.chunkNames()
	if len(names) != 10 {
		t.Fatalf("expected 10 chunks, got %d", len(names))
	}

	matches := tbl.Query(Field{Name: "n", Op: Eq, Literal: int64(4242)})
	if len(matches) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(matches))
	}
}

