// Package audiocache holds synthesized utterances in memory until the
// carrier fetches them.
//
// Artifacts are keyed by (call id, sequence number) and retrievable any
// number of times while their signed token is valid. Growth is bounded by
// a janitor: an artifact is dropped once it is older than the configured
// max age, and a call's artifacts are dropped together when the call ends.
package audiocache

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrArtifactNotFound is reported when no artifact exists for the key.
var ErrArtifactNotFound = errors.New("audio artifact not found")

// DefaultMaxAge bounds artifact lifetime when no age is configured.
const DefaultMaxAge = 10 * time.Minute

// Artifact is one synthesized utterance.
type Artifact struct {
	Audio       []byte
	ContentType string
	storedAt    time.Time
}

// Store is a concurrency-safe ephemeral audio store.
type Store struct {
	mu     sync.Mutex
	byCall map[string]map[int]Artifact
	maxAge time.Duration
	now    func() time.Time
}

// New creates an empty store. A zero maxAge means DefaultMaxAge.
func New(maxAge time.Duration) *Store {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Store{
		byCall: make(map[string]map[int]Artifact),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Put stores the artifact for (callID, seq), replacing any previous entry.
func (s *Store) Put(callID string, seq int, audio []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byCall[callID] == nil {
		s.byCall[callID] = make(map[int]Artifact)
	}
	s.byCall[callID][seq] = Artifact{
		Audio:       audio,
		ContentType: contentType,
		storedAt:    s.now(),
	}
}

// Get returns the artifact for (callID, seq).
func (s *Store) Get(callID string, seq int) (Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byCall[callID][seq]
	if !ok {
		return Artifact{}, fmt.Errorf("%w: %s/%d", ErrArtifactNotFound, callID, seq)
	}
	return a, nil
}

// DropCall removes every artifact belonging to a call. Called when the
// call ends; tokens outlive nothing they could still fetch.
func (s *Store) DropCall(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byCall, callID)
}

// Sweep removes artifacts older than the max age and returns how many
// were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.maxAge)
	dropped := 0
	for callID, artifacts := range s.byCall {
		for seq, a := range artifacts {
			if a.storedAt.Before(cutoff) {
				delete(artifacts, seq)
				dropped++
			}
		}
		if len(artifacts) == 0 {
			delete(s.byCall, callID)
		}
	}
	if dropped > 0 {
		slog.Debug("audio cache sweep", "dropped", dropped)
	}
	return dropped
}

// Len returns the number of stored artifacts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, artifacts := range s.byCall {
		n += len(artifacts)
	}
	return n
}
