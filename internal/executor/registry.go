package executor

import (
	"sync"

	"batchrun/internal/apperrors"
)

// Registry is the thread-safe set of records currently being tracked.
// Records enter on successful submission and leave exactly once: either when
// the reconciler observes a terminal status or when shutdown cancellation
// drains them.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record // keyed by remote job ID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*Record),
	}
}

// Add registers a record. The record must carry a non-empty remote ID.
func (r *Registry) Add(rec *Record) error {
	if rec.RemoteID == "" {
		return apperrors.Validation("remoteId", "record has no remote job ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[rec.RemoteID]; exists {
		return apperrors.Validation("remoteId", "record already registered for "+rec.RemoteID)
	}
	r.records[rec.RemoteID] = rec
	return nil
}

// Remove deletes a record by remote ID. The boolean result is the
// exactly-once guard: only the caller that actually removed the record may
// report its outcome.
func (r *Registry) Remove(remoteID string) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.records[remoteID]
	if exists {
		delete(r.records, remoteID)
	}
	return rec, exists
}

// Get retrieves a record by remote ID.
func (r *Registry) Get(remoteID string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.records[remoteID]
	return rec, exists
}

// Snapshot returns the current set of records. The slice is a copy; the
// registry may change underneath it.
func (r *Registry) Snapshot() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		records = append(records, rec)
	}
	return records
}

// Len returns the number of tracked records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
