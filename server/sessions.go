package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jupark12/fiado/ledger"
)

type registeredSession struct {
	session *ledger.EntrySession
	touched time.Time
}

// SessionRegistry keeps the open entry sessions by id
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*registeredSession
	now      func() time.Time
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[uuid.UUID]*registeredSession),
		now:      time.Now,
	}
}

func (r *SessionRegistry) Add(s *ledger.EntrySession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = &registeredSession{session: s, touched: r.now()}
}

// Get returns the session only when it belongs to merchantID. A hit counts as activity.
func (r *SessionRegistry) Get(merchantID, id uuid.UUID) (*ledger.EntrySession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[id]
	if !ok || entry.session.Merchant().MerchantID != merchantID {
		return nil, false
	}
	entry.touched = r.now()
	return entry.session, true
}

// Remove drops the session and reports whether it was registered
func (r *SessionRegistry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Sweep cancels and drops every session idle for longer than ttl.
// It returns how many were dropped.
func (r *SessionRegistry) Sweep(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-ttl)
	dropped := 0
	for id, entry := range r.sessions {
		if entry.touched.After(cutoff) {
			continue
		}
		entry.session.Cancel()
		delete(r.sessions, id)
		dropped++
	}
	return dropped
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
