// Package publisher holds the live read model: the latest incident snapshot
// per call, plus a pointer to the most recently updated call. Writers hand
// over already-cloned snapshots, so serving a read is a pointer copy.
package publisher

import (
	"sync"

	"github.com/ShayCichocki/beacon/pkg/models"
)

// Publisher is the snapshot store behind the read API and the console.
// Safe for concurrent use.
type Publisher struct {
	mu     sync.RWMutex
	latest map[string]*models.IncidentRecord
	recent string
}

// New creates an empty publisher.
func New() *Publisher {
	return &Publisher{latest: make(map[string]*models.IncidentRecord)}
}

// Publish replaces the snapshot for rec's call and marks it most recent.
// rec must not be mutated after the call; session controllers publish clones.
func (p *Publisher) Publish(rec *models.IncidentRecord) {
	if rec == nil || rec.CallID == "" {
		return
	}
	p.mu.Lock()
	p.latest[rec.CallID] = rec
	p.recent = rec.CallID
	p.mu.Unlock()
}

// Get returns the latest snapshot for callID, or nil.
func (p *Publisher) Get(callID string) *models.IncidentRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest[callID]
}

// Latest returns the snapshot for the most recently updated call, or nil
// when nothing has been published.
func (p *Publisher) Latest() *models.IncidentRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.recent == "" {
		return nil
	}
	return p.latest[p.recent]
}

// All returns every live snapshot. Order is unspecified.
func (p *Publisher) All() []*models.IncidentRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*models.IncidentRecord, 0, len(p.latest))
	for _, rec := range p.latest {
		out = append(out, rec)
	}
	return out
}

// Drop removes the snapshot for callID. Used when a terminal record has been
// archived and no longer needs to occupy the live set.
func (p *Publisher) Drop(callID string) {
	p.mu.Lock()
	delete(p.latest, callID)
	if p.recent == callID {
		p.recent = ""
	}
	p.mu.Unlock()
}
