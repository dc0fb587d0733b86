package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ShayCichocki/beacon/internal/agents"
)

// Store tracks the live session controllers, one per call ID. Lookups and
// creation are cheap map operations; the heavy lifting happens inside each
// controller's own goroutine.
type Store struct {
	cfg     Config
	invoker agents.Invoker
	sink    Sink
	archive Archiver

	mu       sync.RWMutex
	sessions map[string]*Controller

	stopOnce sync.Once
	stop     chan struct{}
}

// NewStore creates a session store. The reaper goroutine starts immediately
// and runs until Close.
func NewStore(cfg Config, invoker agents.Invoker, sink Sink, archive Archiver) *Store {
	s := &Store{
		cfg:      cfg,
		invoker:  invoker,
		sink:     sink,
		archive:  archive,
		sessions: make(map[string]*Controller),
		stop:     make(chan struct{}),
	}
	go s.reap()
	return s
}

// GetOrCreate returns the session for callID, creating and starting it if
// this is the first touch.
func (s *Store) GetOrCreate(callID string) *Controller {
	s.mu.RLock()
	c, ok := s.sessions[callID]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.sessions[callID]; ok {
		return c
	}
	c = NewController(callID, s.cfg, s.invoker, s.sink, s.archive)
	s.sessions[callID] = c
	log.Printf("[store] session created for call %s (%d active)", callID, len(s.sessions))
	return c
}

// Get returns the session for callID, or nil.
func (s *Store) Get(callID string) *Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[callID]
}

// snapshotDropper is implemented by sinks that hold per-call snapshots and
// can release them once a session is gone. The publisher implements it.
type snapshotDropper interface {
	Drop(callID string)
}

// Evict ends and removes the session for callID. No-op if absent. The
// sink's live snapshot is released; terminal records remain reachable
// through the archive.
func (s *Store) Evict(callID string) {
	s.mu.Lock()
	c, ok := s.sessions[callID]
	if ok {
		delete(s.sessions, callID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	c.End()
	<-c.Done()
	if d, ok := s.sink.(snapshotDropper); ok {
		d.Drop(callID)
	}
	log.Printf("[store] session evicted for call %s", callID)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close ends every session and waits for their terminal flushes, bounded
// by ctx.
func (s *Store) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	controllers := make([]*Controller, 0, len(s.sessions))
	for id, c := range s.sessions {
		controllers = append(controllers, c)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, c := range controllers {
		c.End()
	}
	for _, c := range controllers {
		select {
		case <-c.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// reap evicts sessions idle past the inactivity timeout and clears out
// sessions that already finished.
func (s *Store) reap() {
	interval := s.cfg.InactivityTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		cutoff := time.Now().Add(-s.cfg.InactivityTimeout)
		var stale []string
		s.mu.RLock()
		for id, c := range s.sessions {
			if c.State().Terminal() || c.LastActivity().Before(cutoff) {
				stale = append(stale, id)
			}
		}
		s.mu.RUnlock()

		for _, id := range stale {
			log.Printf("[store] reaping idle session %s", id)
			s.Evict(id)
		}
	}
}
