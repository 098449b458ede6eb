package tashodb

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"tashodb/internal/dberrors"
	"tashodb/internal/format"
	"tashodb/internal/layout"
	"tashodb/internal/logging"
	"tashodb/internal/value"
)

const propertiesFileName = "properties"

const (
	propertiesVersion = 1
	tableIndexVersion = 1
)

// Options configures Database.Create and Database.Open.
type Options struct {
	// ChunkSize is the initial capacity of a newly created table's chunks.
	// Zero substitutes the default; a negative value fails with ErrConfig
	// when a new database is created.
	ChunkSize int
	// TableIndexName is the filename of the persistent table registry.
	// Empty substitutes the default. Only meaningful on Create; Open reads
	// the name back from the properties file.
	TableIndexName string
	// AutoCommit enqueues a commit on every write when true. Only
	// meaningful on Create; Open reads the value back from the properties
	// file.
	AutoCommit bool
	// OpenIfExists makes Create idempotent: if the directory already
	// exists, Create behaves like Open instead of failing.
	OpenIfExists bool
	// CreateIfMissing makes Open idempotent: if the directory does not
	// exist, Open behaves like Create instead of failing.
	CreateIfMissing bool
	// CommitOnExit controls whether Close collects every dirty chunk
	// across all tables and enqueues a commit on each before draining.
	// When false, Close still drains whatever has already been enqueued
	// (by AutoCommit or an explicit Table.Commit) but does not flush
	// chunks left dirty by uncommitted writes. Not persisted; it applies
	// only to the Database handle it was passed to.
	CommitOnExit bool

	// Logger scopes every log line emitted by the database and the tables
	// and chunks it owns. A nil Logger discards output.
	Logger *slog.Logger
}

// DefaultOptions returns the option set documented for Create and Open: a
// zero-value Options is not meant to be passed directly, since it cannot
// distinguish "auto_commit off" from "unset".
func DefaultOptions() Options {
	return Options{
		ChunkSize:       8192,
		TableIndexName:  "tables",
		AutoCommit:      false,
		OpenIfExists:    false,
		CreateIfMissing: true,
		CommitOnExit:    true,
	}
}

func normalizeOptions(opts Options) Options {
	if opts.ChunkSize == 0 {
		opts.ChunkSize = 8192
	}
	if opts.TableIndexName == "" {
		opts.TableIndexName = "tables"
	}
	return opts
}

// Database is an open handle to one database directory: a properties file,
// a table registry, and the tables materialized from it.
type Database struct {
	dir            layout.Dir
	logger         *slog.Logger
	chunkSize      int
	tableIndexName string
	autoCommit     bool
	commitOnExit   bool

	mu     sync.Mutex
	tables map[string]*Table
}

func dirExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", dberrors.ErrIO, err)
}

// Create opens a new database at directory, failing with ErrAlreadyExists
// if it already exists and options.OpenIfExists is false.
func Create(directory string, opts Options) (*Database, error) {
	opts = normalizeOptions(opts)
	exists, err := dirExists(directory)
	if err != nil {
		return nil, err
	}
	if exists {
		if !opts.OpenIfExists {
			return nil, fmt.Errorf("database %q: %w", directory, dberrors.ErrAlreadyExists)
		}
		return openExisting(directory, opts)
	}
	return createNew(directory, opts)
}

// Open opens an existing database at directory, failing with ErrNotFound
// if it does not exist and options.CreateIfMissing is false.
func Open(directory string, opts Options) (*Database, error) {
	opts = normalizeOptions(opts)
	exists, err := dirExists(directory)
	if err != nil {
		return nil, err
	}
	if !exists {
		if !opts.CreateIfMissing {
			return nil, fmt.Errorf("database %q: %w", directory, dberrors.ErrNotFound)
		}
		return createNew(directory, opts)
	}
	return openExisting(directory, opts)
}

func createNew(directory string, opts Options) (*Database, error) {
	if opts.ChunkSize <= 0 {
		return nil, fmt.Errorf("database %q: chunk_size %d must be positive: %w", directory, opts.ChunkSize, dberrors.ErrConfig)
	}
	dir := layout.New(directory)
	if err := dir.EnsureExists(); err != nil {
		return nil, err
	}

	props := value.NewMap()
	props.Set("chunk_size", int64(opts.ChunkSize))
	props.Set("table_index", opts.TableIndexName)
	props.Set("auto_commit", opts.AutoCommit)
	if err := writeArtifact(dir.PropertiesPath(propertiesFileName), format.TypeProperties, propertiesVersion, props); err != nil {
		return nil, err
	}

	if err := writeArtifact(dir.TableIndexPath(opts.TableIndexName), format.TypeTableIndex, tableIndexVersion, value.NewMap()); err != nil {
		return nil, err
	}

	logger := logging.Default(opts.Logger).With("component", "database", "path", directory)
	return &Database{
		dir:            dir,
		logger:         logger,
		chunkSize:      opts.ChunkSize,
		tableIndexName: opts.TableIndexName,
		autoCommit:     opts.AutoCommit,
		commitOnExit:   opts.CommitOnExit,
		tables:         make(map[string]*Table),
	}, nil
}

func openExisting(directory string, opts Options) (*Database, error) {
	dir := layout.New(directory)

	var props value.Map
	if err := readArtifact(dir.PropertiesPath(propertiesFileName), format.TypeProperties, propertiesVersion, &props); err != nil {
		return nil, fmt.Errorf("database %q: properties: %w", directory, err)
	}
	chunkSize, tableIndexName, autoCommit, err := decodeProperties(&props)
	if err != nil {
		return nil, fmt.Errorf("database %q: %w", directory, err)
	}

	var index value.Map
	if err := readArtifact(dir.TableIndexPath(tableIndexName), format.TypeTableIndex, tableIndexVersion, &index); err != nil {
		return nil, fmt.Errorf("database %q: table index: %w", directory, err)
	}

	logger := logging.Default(opts.Logger).With("component", "database", "path", directory)
	db := &Database{
		dir:            dir,
		logger:         logger,
		chunkSize:      chunkSize,
		tableIndexName: tableIndexName,
		autoCommit:     autoCommit,
		commitOnExit:   opts.CommitOnExit,
		tables:         make(map[string]*Table),
	}

	var buildErr error
	index.Range(func(name string, v any) bool {
		names, ok := v.(*value.List)
		if !ok {
			buildErr = fmt.Errorf("database %q: table %q: %w", directory, name, dberrors.ErrCorruptChunk)
			return false
		}
		chunkNames := make([]string, 0, names.Len())
		for _, item := range names.Items() {
			cn, ok := item.(string)
			if !ok {
				buildErr = fmt.Errorf("database %q: table %q: %w", directory, name, dberrors.ErrCorruptChunk)
				return false
			}
			chunkNames = append(chunkNames, cn)
		}
		t, err := newTable(name, dir, chunkNames, chunkSize, autoCommit, db, logger)
		if err != nil {
			buildErr = err
			return false
		}
		db.tables[name] = t
		return true
	})
	if buildErr != nil {
		return nil, buildErr
	}

	return db, nil
}

func decodeProperties(props *value.Map) (chunkSize int, tableIndexName string, autoCommit bool, err error) {
	csRaw, ok := props.Get("chunk_size")
	if !ok {
		return 0, "", false, fmt.Errorf("missing chunk_size: %w", dberrors.ErrCorruptChunk)
	}
	cs, ok := csRaw.(int64)
	if !ok || cs <= 0 {
		return 0, "", false, fmt.Errorf("invalid chunk_size: %w", dberrors.ErrConfig)
	}

	tiRaw, ok := props.Get("table_index")
	if !ok {
		return 0, "", false, fmt.Errorf("missing table_index: %w", dberrors.ErrCorruptChunk)
	}
	ti, ok := tiRaw.(string)
	if !ok || ti == "" {
		return 0, "", false, fmt.Errorf("invalid table_index: %w", dberrors.ErrCorruptChunk)
	}

	acRaw, _ := props.Get("auto_commit")
	ac, _ := acRaw.(bool)

	return int(cs), ti, ac, nil
}

// Table returns the table named name, creating it with default settings if
// it does not already exist. Errors from the creation path are logged and
// result in a nil return; callers that need the error should call NewTable
// directly.
func (db *Database) Table(name string) *Table {
	db.mu.Lock()
	t, ok := db.tables[name]
	db.mu.Unlock()
	if ok {
		return t
	}

	t, err := db.NewTable(name)
	if err == nil {
		return t
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if existing, ok := db.tables[name]; ok {
		return existing
	}
	db.logger.Error("failed to create table", "table", name, "error", err)
	return nil
}

// NewTable registers a new, empty table, failing with ErrAlreadyExists if
// name is already registered.
func (db *Database) NewTable(name string) (*Table, error) {
	db.mu.Lock()
	if _, exists := db.tables[name]; exists {
		db.mu.Unlock()
		return nil, fmt.Errorf("table %q: %w", name, dberrors.ErrAlreadyExists)
	}
	db.mu.Unlock()

	t, err := newTable(name, db.dir, nil, db.chunkSize, db.autoCommit, db, db.logger)
	if err != nil {
		return nil, err
	}
	if err := t.createFirstChunk(); err != nil {
		return nil, err
	}

	db.mu.Lock()
	if _, exists := db.tables[name]; exists {
		db.mu.Unlock()
		return nil, fmt.Errorf("table %q: %w", name, dberrors.ErrAlreadyExists)
	}
	db.tables[name] = t
	db.mu.Unlock()

	if err := db.commitTableIndex(); err != nil {
		return nil, err
	}
	return t, nil
}

// DropTable validates dropKey against the table's derived drop key,
// failing with ErrAuthorization on mismatch. On success, it deletes every
// chunk file belonging to the table, removes it from the registry, and
// marks the table handle dropped.
func (db *Database) DropTable(name, dropKey string) error {
	db.mu.Lock()
	t, ok := db.tables[name]
	db.mu.Unlock()
	if !ok {
		return fmt.Errorf("table %q: %w", name, dberrors.ErrNotFound)
	}
	if dropKey != t.DropKey() {
		return fmt.Errorf("table %q: %w", name, dberrors.ErrAuthorization)
	}

	if err := t.removeAllChunks(); err != nil {
		return err
	}
	t.markDropped()

	db.mu.Lock()
	delete(db.tables, name)
	db.mu.Unlock()

	return db.commitTableIndex()
}

// commitTableIndex rewrites the persisted table index from the live table
// set. It implements tableOwner.
func (db *Database) commitTableIndex() error {
	db.mu.Lock()
	index := value.NewMap()
	for name, t := range db.tables {
		names := value.NewList()
		for _, cn := range t.chunkNames() {
			names.Append(cn)
		}
		index.Set(name, names)
	}
	tableIndexName := db.tableIndexName
	db.mu.Unlock()

	return writeArtifact(db.dir.TableIndexPath(tableIndexName), format.TypeTableIndex, tableIndexVersion, index)
}

// Close flushes and drains every table. If CommitOnExit is set (the
// default), it first collects every dirty chunk across all tables and
// enqueues a commit on each, mirroring Table.Commit's own dirty-then-enqueue
// pattern; this is what makes writes from Table.Insert and Table.Delete
// durable even when AutoCommit is off and Table.Commit was never called. It then
// drains every chunk concurrently, one goroutine per chunk joined with an
// error-group, blocking until all enqueued commits (from CommitOnExit,
// AutoCommit, or an explicit Table.Commit) have been written to disk, and
// reports the first error encountered, if any.
func (db *Database) Close() error {
	db.mu.Lock()
	tables := make([]*Table, 0, len(db.tables))
	for _, t := range db.tables {
		tables = append(tables, t)
	}
	commitOnExit := db.commitOnExit
	db.mu.Unlock()

	if commitOnExit {
		for _, t := range tables {
			for _, c := range t.Dirty() {
				if err := c.Commit(); err != nil {
					return err
				}
			}
		}
	}

	var g errgroup.Group
	for _, t := range tables {
		for _, c := range t.snapshotChunks() {
			c := c
			g.Go(c.Drain)
		}
	}
	return g.Wait()
}

func writeArtifact(path string, typ byte, version byte, v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	header := format.Header{Type: typ, Version: version}
	if err := format.WriteAtomic(path, header, payload); err != nil {
		return fmt.Errorf("%w: %v", dberrors.ErrIO, err)
	}
	return nil
}

func readArtifact(path string, typ byte, version byte, out any) error {
	payload, err := format.ReadAndValidate(path, typ, version)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %v", dberrors.ErrNotFound, err)
		}
		return fmt.Errorf("%w: %v", dberrors.ErrCorruptChunk, err)
	}
	if err := msgpack.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %v", dberrors.ErrCorruptChunk, err)
	}
	return nil
}
