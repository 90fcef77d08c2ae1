// Package logstore implements the in-memory log ring buffer backing the
// logs GET endpoint and its websocket streaming variant (§6, SUPPLEMENTED
// FEATURES). Grounded on the teacher's SessionStore/RateLimiter shape:
// a single mutex-guarded map, no external dependency — the real log
// backend (the sandbox runtime's own log shipper) is a non-goal, so this
// is the gateway-local buffer that tier executors append to.
package logstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Entry is one log line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

const ringSize = 1000

type ring struct {
	mu      sync.RWMutex
	entries []Entry
}

func (r *ring) append(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	if len(r.entries) > ringSize {
		r.entries = r.entries[len(r.entries)-ringSize:]
	}
}

func (r *ring) snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Store is a per-function-id ring buffer of recent log entries.
type Store struct {
	mu   sync.RWMutex
	logs map[string]*ring

	subMu       sync.Mutex
	subscribers map[string][]chan Entry
}

func New() *Store {
	return &Store{logs: make(map[string]*ring), subscribers: make(map[string][]chan Entry)}
}

func (s *Store) ringFor(functionID string) *ring {
	s.mu.RLock()
	r, ok := s.logs[functionID]
	s.mu.RUnlock()
	if ok {
		return r
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.logs[functionID]; ok {
		return r
	}
	r = &ring{}
	s.logs[functionID] = r
	return r
}

// Append records a log line for functionID and fans it out to any live
// subscribers (best-effort, non-blocking).
func (s *Store) Append(functionID string, e Entry) {
	s.ringFor(functionID).append(e)

	s.subMu.Lock()
	subs := s.subscribers[functionID]
	s.subMu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Query implements §6's logs pagination: limit in [1,1000] (default 100),
// optional since/level filters, cursor-based continuation.
type Query struct {
	Since string
	Level string
	Limit int
}

// Page is the paginated response envelope.
type Page struct {
	Logs       []Entry `json:"logs"`
	HasMore    bool    `json:"hasMore"`
	NextCursor string  `json:"nextCursor,omitempty"`
}

func (s *Store) Query(_ context.Context, functionID string, q Query) Page {
	entries := s.ringFor(functionID).snapshot()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })

	if q.Since != "" {
		if since, err := time.Parse(time.RFC3339, q.Since); err == nil {
			filtered := entries[:0:0]
			for _, e := range entries {
				if e.Timestamp.After(since) {
					filtered = append(filtered, e)
				}
			}
			entries = filtered
		}
	}
	if q.Level != "" {
		filtered := entries[:0:0]
		for _, e := range entries {
			if e.Level == q.Level {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}

	page := Page{Logs: entries, HasMore: hasMore}
	if hasMore && len(entries) > 0 {
		page.NextCursor = entries[len(entries)-1].Timestamp.Format(time.RFC3339Nano)
	}
	return page
}

// Subscribe registers ch to receive new entries for functionID as they
// are appended, until unsubscribe is called.
func (s *Store) Subscribe(functionID string, ch chan Entry) (unsubscribe func()) {
	s.subMu.Lock()
	s.subscribers[functionID] = append(s.subscribers[functionID], ch)
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		subs := s.subscribers[functionID]
		for i, c := range subs {
			if c == ch {
				s.subscribers[functionID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Clear empties the store. Test-only.
func (s *Store) Clear() {
	s.mu.Lock()
	s.logs = make(map[string]*ring)
	s.mu.Unlock()
	s.subMu.Lock()
	s.subscribers = make(map[string][]chan Entry)
	s.subMu.Unlock()
}
