package tashodb

import (
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"tashodb/internal/callgroup"
	"tashodb/internal/chunk"
	"tashodb/internal/dberrors"
	"tashodb/internal/idgen"
	"tashodb/internal/layout"
	"tashodb/internal/logging"
	"tashodb/internal/value"
)

// tableOwner is the subset of *Database a Table needs to persist the table
// index after a chunk rollover or a commit. Modeled as an interface so a
// Table holds a non-owning handle rather than a literal *Database
// back-reference.
type tableOwner interface {
	commitTableIndex() error
}

// indexEntry is one (chunk, id) location recorded by a field index.
type indexEntry struct {
	ChunkName string
	ID        Key
}

// fieldIndex maps an observed field value to every record that has it, as
// of the last CreateIndex build.
type fieldIndex map[any][]indexEntry

// Table is an ordered collection of chunks, routed by key, with on-demand
// field indexing.
type Table struct {
	name      string
	dir       layout.Dir
	chunkSize int
	logger    *slog.Logger
	owner     tableOwner

	mu         sync.Mutex
	chunks     []*chunk.Chunk
	autoCommit bool
	indexes    map[string]fieldIndex
	dropped    bool

	indexGroup callgroup.Group[string]
}

func newTable(name string, dir layout.Dir, chunkNames []string, chunkSize int, autoCommit bool, owner tableOwner, logger *slog.Logger) (*Table, error) {
	logger = logging.Default(logger).With("component", "table", "table", name)
	t := &Table{
		name:       name,
		dir:        dir,
		chunkSize:  chunkSize,
		autoCommit: autoCommit,
		owner:      owner,
		logger:     logger,
		indexes:    make(map[string]fieldIndex),
	}
	for _, cn := range chunkNames {
		path, err := dir.ChunkPath(cn)
		if err != nil {
			return nil, err
		}
		c, err := chunk.Open(cn, path, chunkSize, logger)
		if err != nil {
			return nil, err
		}
		t.chunks = append(t.chunks, c)
	}
	return t, nil
}

// Name returns the table's name.
func (t *Table) Name() string {
	return t.name
}

// newChunkName derives a fresh chunk name of the form <table>-<16-hex-char
// token>, matching the id generator's contract.
func (t *Table) newChunkName() (string, error) {
	suffix, err := idgen.Token()
	if err != nil {
		return "", err
	}
	return t.name + "-" + suffix, nil
}

// createFirstChunk creates a table's initial, empty active chunk. Called
// once by Database.NewTable.
func (t *Table) createFirstChunk() error {
	name, err := t.newChunkName()
	if err != nil {
		return err
	}
	path, err := t.dir.ChunkPath(name)
	if err != nil {
		return err
	}
	c, err := chunk.Open(name, path, t.chunkSize, t.logger)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.chunks = append(t.chunks, c)
	t.mu.Unlock()
	return nil
}

// chunkNames returns the table's chunk names in creation order, for
// persisting the table index.
func (t *Table) chunkNames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, len(t.chunks))
	for i, c := range t.chunks {
		names[i] = c.Name()
	}
	return names
}

// snapshotChunks returns a copy of the table's current chunk list, safe to
// range over without holding the table lock.
func (t *Table) snapshotChunks() []*chunk.Chunk {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*chunk.Chunk(nil), t.chunks...)
}

// activeChunk returns the last chunk, the only target of new-key inserts.
func (t *Table) activeChunk() (*chunk.Chunk, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.chunks) == 0 {
		return nil, fmt.Errorf("table %q: %w", t.name, dberrors.ErrEmptyTable)
	}
	return t.chunks[len(t.chunks)-1], nil
}

func (t *Table) checkDropped() error {
	t.mu.Lock()
	dropped := t.dropped
	t.mu.Unlock()
	if dropped {
		return fmt.Errorf("table %q: %w", t.name, dberrors.ErrTableDropped)
	}
	return nil
}

// findChunk returns the first chunk (in creation order) containing key, or
// nil if none does.
func (t *Table) findChunk(k Key) (*chunk.Chunk, error) {
	for _, c := range t.snapshotChunks() {
		_, ok, err := c.Get(k)
		if err != nil {
			return nil, err
		}
		if ok {
			return c, nil
		}
	}
	return nil, nil
}

// chunkByName returns the chunk with the given name, or nil if none
// matches (a field index may reference a chunk later dropped by a table
// drop and recreate, which is treated as a stale-index miss, not an error).
func (t *Table) chunkByName(name string) *chunk.Chunk {
	for _, c := range t.snapshotChunks() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// Insert writes value under key, replacing key with a freshly generated
// token first if key is AutoKey(). It locates an existing chunk containing
// the key if one exists; otherwise it writes to the active chunk, rolling
// over to a new chunk first if the active one is full.
func (t *Table) Insert(k Key, v *Map) (*Document, error) {
	if err := t.checkDropped(); err != nil {
		return nil, err
	}
	if err := value.Validate(v); err != nil {
		return nil, err
	}
	if k.IsAuto() {
		tok, err := idgen.Token()
		if err != nil {
			return nil, err
		}
		k = StringKey(tok)
	}

	target, err := t.findChunk(k)
	if err != nil {
		return nil, err
	}
	if target == nil {
		target, err = t.writeTarget()
		if err != nil {
			return nil, err
		}
	}

	t.mu.Lock()
	autoCommit := t.autoCommit
	t.mu.Unlock()

	if err := target.Write(k, v, autoCommit); err != nil {
		return nil, err
	}
	return newDocument(k, v, t), nil
}

// rawInsert is the write path used by Document.Save. It goes through Insert,
// so the value is validated for codec support again on every save; a
// Document's ID is never the auto-generate sentinel, since Insert replaced
// it before the Document was created.
func (t *Table) rawInsert(k Key, v *Map) error {
	_, err := t.Insert(k, v)
	return err
}

// writeTarget returns the chunk a new key should be written to: the active
// chunk, or a freshly rolled-over one if the active chunk is full.
func (t *Table) writeTarget() (*chunk.Chunk, error) {
	active, err := t.activeChunk()
	if err != nil {
		return nil, err
	}
	full, err := active.IsFull()
	if err != nil {
		return nil, err
	}
	if !full {
		return active, nil
	}

	name, err := t.newChunkName()
	if err != nil {
		return nil, err
	}
	path, err := t.dir.ChunkPath(name)
	if err != nil {
		return nil, err
	}
	next, err := chunk.Open(name, path, t.chunkSize, t.logger)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.chunks = append(t.chunks, next)
	t.mu.Unlock()

	if err := t.owner.commitTableIndex(); err != nil {
		return nil, err
	}
	return next, nil
}

// delete removes key's record, if present, and reports whether anything
// was removed.
func (t *Table) delete(k Key) (bool, error) {
	if err := t.checkDropped(); err != nil {
		return false, err
	}
	c, err := t.findChunk(k)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, nil
	}
	return c.Delete(k)
}

// Delete removes key's record, if present.
func (t *Table) Delete(k Key) (bool, error) {
	return t.delete(k)
}

// RawGet returns the value stored under key, without a Document wrapper.
func (t *Table) RawGet(k Key) (*Map, bool, error) {
	if err := t.checkDropped(); err != nil {
		return nil, false, err
	}
	c, err := t.findChunk(k)
	if err != nil {
		return nil, false, err
	}
	if c == nil {
		return nil, false, nil
	}
	v, ok, err := c.Get(k)
	if err != nil {
		return nil, false, err
	}
	return v, ok, nil
}

// Get returns a Document view of the record stored under key.
func (t *Table) Get(k Key) (*Document, bool, error) {
	v, ok, err := t.RawGet(k)
	if err != nil || !ok {
		return nil, ok, err
	}
	return newDocument(k, v, t), true, nil
}

// Items returns a finite, restartable sequence over every (id, value) pair
// in the table, iterating chunks in reverse creation order (newest first).
// Iterating while concurrently mutating the table has unspecified
// behavior, per the engine's single-foreground-writer contract.
func (t *Table) Items() iter.Seq2[Key, *Map] {
	return func(yield func(Key, *Map) bool) {
		chunks := t.snapshotChunks()

		for i := len(chunks) - 1; i >= 0; i-- {
			items, err := chunks[i].Items()
			if err != nil {
				t.logger.Error("scan failed reading chunk", "chunk", chunks[i].Name(), "error", err)
				return
			}
			for k, v := range items {
				if !yield(k, v) {
					return
				}
			}
		}
	}
}

// scanWithChunkName iterates every (chunk-name, id, value) triple across
// all chunks in creation order. Used by CreateIndex, which needs the
// owning chunk's name alongside each record.
func (t *Table) scanWithChunkName(fn func(chunkName string, id Key, v *Map) error) error {
	for _, c := range t.snapshotChunks() {
		items, err := c.Items()
		if err != nil {
			return err
		}
		for id, v := range items {
			if err := fn(c.Name(), id, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// BulkInsert inserts every pair in items, forcing auto_commit off for the
// duration and issuing a single commit afterward. This is the fast path
// for large loads.
func (t *Table) BulkInsert(items map[Key]*Map) error {
	if err := t.checkDropped(); err != nil {
		return err
	}

	t.mu.Lock()
	saved := t.autoCommit
	t.autoCommit = false
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.autoCommit = saved
		t.mu.Unlock()
	}()

	for k, v := range items {
		if _, err := t.Insert(k, v); err != nil {
			return err
		}
	}
	return t.Commit()
}

// Query returns every record matching predicate.
func (t *Table) Query(predicate Predicate) []*Document {
	var docs []*Document
	for id, v := range t.Items() {
		if predicate.Match(id, v) {
			docs = append(docs, newDocument(id, v, t))
		}
	}
	return docs
}

// QueryOne returns the first record matching predicate.
func (t *Table) QueryOne(predicate Predicate) (*Document, bool) {
	for id, v := range t.Items() {
		if predicate.Match(id, v) {
			return newDocument(id, v, t), true
		}
	}
	return nil, false
}

// isFalsy reports whether a field value is considered absent for indexing
// purposes: empty string, zero number, false, nil, or an empty container.
func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case int64:
		return t == 0
	case float64:
		return t == 0
	case bool:
		return !t
	case *value.Map:
		return t.Len() == 0
	case *value.List:
		return t.Len() == 0
	default:
		return false
	}
}

// isScalar reports whether v is a leaf value usable as a field-index key.
// Container values are skipped: comparing them by Go equality would be
// pointer identity, which would never match an equivalent container built
// independently, making an index on such a field useless.
func isScalar(v any) bool {
	switch v.(type) {
	case string, int64, float64, bool:
		return true
	default:
		return false
	}
}

// CreateIndex scans every chunk and builds a mapping from observed field
// value to the (chunk, id) pairs that hold it, skipping records where the
// field is absent, falsy, or not a scalar. Concurrent callers requesting
// the same field share one build rather than scanning twice.
func (t *Table) CreateIndex(field string) error {
	if err := t.checkDropped(); err != nil {
		return err
	}
	errCh := t.indexGroup.DoChan(field, func() error {
		return t.buildIndex(field)
	})
	return <-errCh
}

func (t *Table) buildIndex(field string) error {
	idx := make(fieldIndex)
	err := t.scanWithChunkName(func(chunkName string, id Key, v *Map) error {
		fv, ok := v.Get(field)
		if !ok || isFalsy(fv) || !isScalar(fv) {
			return nil
		}
		idx[fv] = append(idx[fv], indexEntry{ChunkName: chunkName, ID: id})
		return nil
	})
	if err != nil {
		return err
	}

	if err := writeFieldIndex(t.dir, t.name, field, idx); err != nil {
		return err
	}

	t.mu.Lock()
	t.indexes[field] = idx
	t.mu.Unlock()
	return nil
}

// LoadIndexes reads every persisted field-index file for this table and
// merges them into the in-memory index set. A single field's decode
// failure is logged and skipped rather than failing the whole load.
func (t *Table) LoadIndexes() error {
	pattern := filepath.Join(t.dir.Root(), t.name+"-*.index")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("table %q: %w", t.name, fmt.Errorf("%w: %v", dberrors.ErrIO, err))
	}
	for _, path := range matches {
		base := filepath.Base(path)
		field := strings.TrimSuffix(strings.TrimPrefix(base, t.name+"-"), ".index")
		idx, err := readFieldIndex(path)
		if err != nil {
			t.logger.Warn("failed to load field index", "field", field, "error", err)
			continue
		}
		t.mu.Lock()
		t.indexes[field] = idx
		t.mu.Unlock()
	}
	return nil
}

// GetIndexed returns every record whose field equals matchValue, as of the
// last CreateIndex(field) call. It fails with ErrNoSuchIndex if field has
// no loaded index.
func (t *Table) GetIndexed(field string, matchValue any) ([]*Document, error) {
	t.mu.Lock()
	idx, ok := t.indexes[field]
	t.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("table %q: field %q: %w", t.name, field, dberrors.ErrNoSuchIndex)
	}

	var docs []*Document
	for _, e := range idx[matchValue] {
		c := t.chunkByName(e.ChunkName)
		if c == nil {
			continue
		}
		v, ok, err := c.Get(e.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, newDocument(e.ID, v, t))
		}
	}
	return docs, nil
}

// Dirty returns every chunk with uncommitted modifications.
func (t *Table) Dirty() []*chunk.Chunk {
	var dirty []*chunk.Chunk
	for _, c := range t.snapshotChunks() {
		if c.Dirty() {
			dirty = append(dirty, c)
		}
	}
	return dirty
}

// Commit enqueues a commit on every dirty chunk, then persists the table
// index.
func (t *Table) Commit() error {
	for _, c := range t.Dirty() {
		if err := c.Commit(); err != nil {
			return err
		}
	}
	return t.owner.commitTableIndex()
}

// DropKey returns the deterministic confirmation token required by
// Database.DropTable. It is reproducible from the table's name, chunk
// size, and directory, and is not a security boundary.
func (t *Table) DropKey() string {
	return fmt.Sprintf("DROP%s%d%s", t.name, t.chunkSize, t.dir.Root())
}

// markDropped marks the table handle dropped; further operations through
// it fail with ErrTableDropped.
func (t *Table) markDropped() {
	t.mu.Lock()
	t.dropped = true
	t.mu.Unlock()
}

// removeAllChunks deletes every chunk's backing file. Used by
// Database.DropTable.
func (t *Table) removeAllChunks() error {
	for _, c := range t.snapshotChunks() {
		if err := c.Remove(); err != nil {
			return err
		}
	}
	return nil
}
