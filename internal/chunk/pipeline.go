package chunk

import (
	"log/slog"
	"sync"
	"time"

	"tashodb/internal/key"
	"tashodb/internal/value"
)

// idleTimeout is how long the commit worker waits for a new snapshot before
// exiting. The next Commit call respawns it.
const idleTimeout = 15 * time.Second

type snapshot = map[key.Key]*value.Map

// pipeline is a chunk's single-consumer commit queue and the lazily-started
// background worker that drains it. A snapshot is a full copy of a chunk's
// in-memory mapping at the time Commit was called; multiple snapshots
// enqueued between drains are merged by key, later overriding earlier, so
// a burst of writes costs one file write instead of many.
type pipeline struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []snapshot
	running bool
	lastErr error

	write  func(snapshot) error
	logger *slog.Logger

	notify chan struct{}
}

func newPipeline(write func(snapshot) error, logger *slog.Logger) *pipeline {
	p := &pipeline{
		write:  write,
		logger: logger,
		notify: make(chan struct{}, 1),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// enqueue adds snap to the pending queue and starts the worker if it is not
// already running. Never blocks.
func (p *pipeline) enqueue(snap snapshot) {
	p.mu.Lock()
	p.pending = append(p.pending, snap)
	start := !p.running
	if start {
		p.running = true
	}
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}

	if start {
		go p.run()
	}
}

// drain blocks until the pipeline has no pending snapshots and the worker
// has gone idle, returning the most recent write error, if any.
func (p *pipeline) drain() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.pending) > 0 || p.running {
		p.cond.Wait()
	}
	return p.lastErr
}

func (p *pipeline) run() {
	for {
		snaps, exit := p.awaitSnapshots()
		if exit {
			return
		}

		merged := mergeSnapshots(snaps)
		err := p.write(merged)

		p.mu.Lock()
		p.lastErr = err
		p.cond.Broadcast()
		p.mu.Unlock()

		if err != nil {
			p.logger.Error("chunk commit failed", "error", err)
		}
	}
}

// awaitSnapshots blocks until at least one snapshot is pending, returning
// the full queue with the queue cleared. If idleTimeout elapses with
// nothing pending, it marks the pipeline stopped and returns exit=true;
// the queue is guaranteed empty at that point, so no snapshot is lost.
func (p *pipeline) awaitSnapshots() (snaps []snapshot, exit bool) {
	for {
		p.mu.Lock()
		if len(p.pending) > 0 {
			snaps = p.pending
			p.pending = nil
			p.mu.Unlock()
			return snaps, false
		}
		p.mu.Unlock()

		select {
		case <-p.notify:
		case <-time.After(idleTimeout):
			p.mu.Lock()
			if len(p.pending) == 0 {
				p.running = false
				p.cond.Broadcast()
				p.mu.Unlock()
				return nil, true
			}
			p.mu.Unlock()
		}
	}
}

func mergeSnapshots(snaps []snapshot) snapshot {
	if len(snaps) == 1 {
		return snaps[0]
	}
	merged := make(snapshot)
	for _, s := range snaps {
		for k, v := range s {
			merged[k] = v
		}
	}
	return merged
}
