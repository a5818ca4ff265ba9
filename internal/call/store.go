package call

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultMaxAge bounds how long an untouched call record is kept.
const DefaultMaxAge = time.Hour

type entry struct {
	mu   sync.Mutex
	call *Call
}

// Store is the keyed call-state store. The map itself is guarded by mu;
// each record carries its own lock so that WithCall serializes per call
// without blocking unrelated calls.
type Store struct {
	mu     sync.Mutex
	calls  map[string]*entry
	maxAge time.Duration
	now    func() time.Time
}

// NewStore creates an empty store. A zero maxAge means DefaultMaxAge.
func NewStore(maxAge time.Duration) *Store {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Store{
		calls:  make(map[string]*entry),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Init registers a freshly placed call with its immutable context. If the
// id already exists (carrier race), the existing record keeps its state
// and only empty context fields are filled in.
func (s *Store) Init(id, toNumber, patientName string, metadata map[string]string, synthesizer string) {
	s.WithCall(id, func(c *Call) {
		if c.ToNumber == "" {
			c.ToNumber = toNumber
		}
		if c.PatientName == "" {
			c.PatientName = patientName
		}
		if c.Metadata == nil {
			c.Metadata = metadata
		}
		if synthesizer != "" {
			c.Synthesizer = synthesizer
		}
	})
}

// WithCall runs fn with exclusive access to the call's record, creating an
// empty record for unknown ids. Auto-creation accommodates carrier
// webhooks that arrive before (or without) an explicit init, such as
// inbound calls.
func (s *Store) WithCall(id string, fn func(c *Call)) {
	e := s.entryFor(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.call.touched = s.now()
	fn(e.call)
}

func (s *Store) entryFor(id string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.calls[id]
	if !ok {
		e = &entry{call: &Call{
			ID:         id,
			State:      StateAwaitingGreeting,
			BookedKeys: make(map[string]string),
			touched:    s.now(),
		}}
		s.calls[id] = e
	}
	return e
}

// Snapshot returns a shallow copy of the record for read-only use
// (handlers, health, logging). History and slots share backing arrays;
// callers must not mutate them.
func (s *Store) Snapshot(id string) (Call, bool) {
	s.mu.Lock()
	e, ok := s.calls[id]
	s.mu.Unlock()
	if !ok {
		return Call{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.call, true
}

// Sweep evicts records untouched for longer than the max age and returns
// the evicted call ids. Ended calls age out the same way; there is no
// explicit end-of-call cleanup requirement, only bounded memory.
func (s *Store) Sweep() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.maxAge)
	var evicted []string
	for id, e := range s.calls {
		e.mu.Lock()
		stale := e.call.touched.Before(cutoff)
		e.mu.Unlock()
		if stale {
			delete(s.calls, id)
			evicted = append(evicted, id)
		}
	}
	if len(evicted) > 0 {
		slog.Debug("call store sweep", "evicted", len(evicted))
	}
	return evicted
}

// Len returns the number of live call records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
