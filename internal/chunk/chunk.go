// Package chunk implements one shard of a table: a bounded in-memory
// mapping lazily loaded from a single file, with an asynchronous,
// coalescing commit pipeline that owns the file on disk.
package chunk

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"tashodb/internal/dberrors"
	"tashodb/internal/key"
	"tashodb/internal/logging"
	"tashodb/internal/value"
)

// Chunk owns one shard's in-memory data and its durability pipeline. All
// exported methods are safe for concurrent use, but the engine's contract
// assumes a single foreground caller; the only concurrency introduced here
// is the chunk's own background commit worker.
type Chunk struct {
	name    string
	path    string
	maxSize int
	logger  *slog.Logger

	mu     sync.Mutex
	items  map[key.Key]*value.Map
	loaded bool
	dirty  bool

	pipeline *pipeline
}

// Open constructs a chunk handle without touching the filesystem. The
// backing file, if any, is read lazily on first access.
func Open(name, path string, maxSize int, logger *slog.Logger) (*Chunk, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("chunk %q: max_size must be positive: %w", name, dberrors.ErrConfig)
	}
	logger = logging.Default(logger).With("component", "chunk", "chunk", name)

	c := &Chunk{
		name:    name,
		path:    path,
		maxSize: maxSize,
		logger:  logger,
	}
	c.pipeline = newPipeline(func(snap snapshot) error {
		return writeChunkFile(c.path, snap)
	}, logger)
	return c, nil
}

// Name returns the chunk's name.
func (c *Chunk) Name() string { return c.name }

// Path returns the chunk's backing file path.
func (c *Chunk) Path() string { return c.path }

// ensureLoaded reads and decodes the backing file on first access. Must be
// called with c.mu held.
func (c *Chunk) ensureLoaded() error {
	if c.loaded {
		return nil
	}
	items, err := readChunkFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			c.items = make(map[key.Key]*value.Map)
			c.loaded = true
			return nil
		}
		return fmt.Errorf("chunk %q: %w", c.name, err)
	}
	c.items = items
	c.loaded = true
	return nil
}

// Items returns the in-memory mapping, triggering a lazy load if needed.
// Callers must not retain the returned map past a subsequent mutation.
func (c *Chunk) Items() (map[key.Key]*value.Map, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	return c.items, nil
}

// IsFull reports whether the chunk holds at least max_size distinct ids.
func (c *Chunk) IsFull() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return false, err
	}
	return len(c.items) >= c.maxSize, nil
}

// Get returns the value stored under k, if present.
func (c *Chunk) Get(k key.Key) (*value.Map, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return nil, false, err
	}
	v, ok := c.items[k]
	return v, ok, nil
}

// Write sets items[k] = v and marks the chunk dirty. If commitNow is true,
// a commit snapshot is enqueued before Write returns.
func (c *Chunk) Write(k key.Key, v *value.Map, commitNow bool) error {
	c.mu.Lock()
	if err := c.ensureLoaded(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.items[k] = v
	c.dirty = true
	c.mu.Unlock()

	if commitNow {
		return c.Commit()
	}
	return nil
}

// Delete removes k if present, marking the chunk dirty on success, and
// reports whether anything was removed.
func (c *Chunk) Delete(k key.Key) (bool, error) {
	c.mu.Lock()
	if err := c.ensureLoaded(); err != nil {
		c.mu.Unlock()
		return false, err
	}
	_, existed := c.items[k]
	if existed {
		delete(c.items, k)
		c.dirty = true
	}
	c.mu.Unlock()
	return existed, nil
}

// Dirty reports whether the chunk has uncommitted modifications.
func (c *Chunk) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Commit enqueues a snapshot of the current in-memory mapping to the
// commit pipeline and clears dirty synchronously. The on-disk state is not
// guaranteed until Drain returns.
func (c *Chunk) Commit() error {
	c.mu.Lock()
	if err := c.ensureLoaded(); err != nil {
		c.mu.Unlock()
		return err
	}
	snap := make(map[key.Key]*value.Map, len(c.items))
	for k, v := range c.items {
		snap[k] = v
	}
	c.dirty = false
	c.mu.Unlock()

	c.pipeline.enqueue(snap)
	return nil
}

// Drain blocks until the commit pipeline has written every enqueued
// snapshot and gone idle, returning the last write error, if any.
func (c *Chunk) Drain() error {
	return c.pipeline.drain()
}

// Find linearly scans items for matches, triggering a lazy load.
func (c *Chunk) Find(predicate func(key.Key, *value.Map) bool) ([]key.Key, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	var matches []key.Key
	for k, v := range c.items {
		if predicate(k, v) {
			matches = append(matches, k)
		}
	}
	return matches, nil
}

// Remove deletes the chunk's backing file, if it exists. Used when the
// owning table is dropped.
func (c *Chunk) Remove() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("chunk %q: remove: %w", c.name, fmt.Errorf("%w: %v", dberrors.ErrIO, err))
	}
	return nil
}
