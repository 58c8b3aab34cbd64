package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jobboard/dashboard/internal/db"
)

// StorageKey is the single persistence key owned by the dashboard.
const StorageKey = "jobApplicationStatus"

var (
	ErrCorruptStore  = errors.New("corrupt status store")
	ErrUnknownStatus = errors.New("unknown status")
)

// KV is the persistence collaborator. Get must wrap db.ErrKeyNotFound for
// missing keys.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Store maps job identifiers to annotations and writes the whole mapping back
// to its KV on every mutation.
type Store struct {
	mu          sync.RWMutex
	kv          KV
	now         func() time.Time
	annotations map[string]Annotation
}

type Option func(*Store)

// WithClock overrides the clock used to stamp UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:          kv,
		now:         time.Now,
		annotations: make(map[string]Annotation),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory mapping with the persisted one. A missing key
// yields an empty mapping. An unparseable value yields ErrCorruptStore and an
// empty mapping; the persisted value is left untouched.
func (s *Store) Load() (map[string]Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.annotations = make(map[string]Annotation)

	data, err := s.kv.Get(StorageKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return s.copyLocked(), nil
	}
	if err != nil {
		return s.copyLocked(), fmt.Errorf("read %s: %w", StorageKey, err)
	}

	var loaded map[string]Annotation
	if err := json.Unmarshal(data, &loaded); err != nil {
		return s.copyLocked(), fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	for id, a := range loaded {
		s.annotations[id] = a
	}

	return s.copyLocked(), nil
}

// Set records status for jobID, stamped with the current time, and commits
// the full mapping before returning. Setting NotApplied keeps the key.
func (s *Store) Set(jobID string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.annotations[jobID]
	s.annotations[jobID] = Annotation{Status: status, UpdatedAt: s.now().UTC()}

	if err := s.saveLocked(); err != nil {
		if existed {
			s.annotations[jobID] = prev
		} else {
			delete(s.annotations, jobID)
		}
		return err
	}
	return nil
}

// Get returns the effective status of jobID.
func (s *Store) Get(jobID string) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.annotations[jobID]; ok && a.Status.Valid() {
		return a.Status
	}
	return NotApplied
}

// Annotation returns the stored record for jobID, if any.
func (s *Store) Annotation(jobID string) (Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.annotations[jobID]
	return a, ok
}

// Prune drops the annotations of jobs keep rejects and commits the result.
// It returns how many were dropped. Nothing is written when none are.
func (s *Store) Prune(keep func(jobID string) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := make(map[string]Annotation)
	for id, a := range s.annotations {
		if !keep(id) {
			dropped[id] = a
			delete(s.annotations, id)
		}
	}
	if len(dropped) == 0 {
		return 0, nil
	}

	if err := s.saveLocked(); err != nil {
		for id, a := range dropped {
			s.annotations[id] = a
		}
		return 0, err
	}
	return len(dropped), nil
}

// Reset removes the persisted mapping, corrupt or not, and empties the store.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(StorageKey); err != nil {
		return fmt.Errorf("delete %s: %w", StorageKey, err)
	}
	s.annotations = make(map[string]Annotation)
	return nil
}

func (s *Store) Snapshot() map[string]Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// EngagedCount counts stored annotations that are applied or interviewing,
// including those for jobs no longer in the catalog.
func (s *Store) EngagedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.annotations {
		if a.Status.Engaged() {
			n++
		}
	}
	return n
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.annotations)
}

func (s *Store) saveLocked() error {
	data, err := json.Marshal(s.annotations)
	if err != nil {
		return fmt.Errorf("marshal annotations: %w", err)
	}
	if err := s.kv.Set(StorageKey, data); err != nil {
		return fmt.Errorf("store annotations: %w", err)
	}
	return nil
}

func (s *Store) copyLocked() map[string]Annotation {
	out := make(map[string]Annotation, len(s.annotations))
	for id, a := range s.annotations {
		out[id] = a
	}
	return out
}
