package jobs

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the in-memory job record store. All access goes through its
// methods; readers always receive copies, never pointers into the map,
// so an in-flight update can never be observed half-applied.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewStore creates an empty store. Records live until Prune removes
// terminal entries; there is no implicit eviction.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*Job),
	}
}

// Create allocates a new job record in pending state and returns a copy of it.
// Identifiers are UUIDs and are never reused within the process lifetime.
func (s *Store) Create(kind string) Job {
	now := time.Now()
	job := &Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    StatusPending,
		Progress:  0,
		Message:   "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	return *job
}

// Get returns a copy of the record for the given id, or ErrJobNotFound.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return *job, nil
}

// Update merges the supplied fields into the record under the store lock.
// Unknown ids return ErrJobNotFound. Terminal records are immutable:
// updating a completed or failed job returns ErrJobFinished.
func (s *Store) Update(id string, u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.Finished() {
		return ErrJobFinished
	}

	if u.Status != nil {
		job.Status = *u.Status
	}
	if u.Progress != nil {
		job.Progress = *u.Progress
	}
	if u.Message != nil {
		job.Message = *u.Message
	}
	if u.ResultPath != nil {
		job.ResultPath = *u.ResultPath
	}
	if u.Error != nil {
		job.Error = *u.Error
	}
	job.UpdatedAt = time.Now()

	return nil
}

// List returns copies of all records, newest first, optionally filtered
// by status. limit <= 0 means no limit.
func (s *Store) List(status string, limit int) []Job {
	s.mu.RLock()
	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if status != "" && job.Status != status {
			continue
		}
		out = append(out, *job)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Prune removes terminal records whose last update is older than the
// cutoff and returns how many were dropped. Pending and running jobs
// are never pruned.
func (s *Store) Prune(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, job := range s.jobs {
		if job.Finished() && job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}
