package tracker

import (
	"context"
	"sync"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SESSION STORE
// ═══════════════════════════════════════════════════════════════════════════════

// SessionStore maps in-flight session identifiers to the call IDs they
// were opened with. The default implementation is in-memory and
// volatile; swap in a persistent implementation (data.Store satisfies
// this interface) when open sessions must survive a process restart.
type SessionStore interface {
	PutSession(ctx context.Context, sessionID string, callID int64) error
	GetSession(ctx context.Context, sessionID string) (callID int64, ok bool, err error)
	RemoveSession(ctx context.Context, sessionID string) error
}

// MemorySessionStore is the default in-memory session map. Entries are
// lost on process restart; a call left open across a restart can never
// be closed and stays pending in the database.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]int64
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]int64),
	}
}

// PutSession records a session-to-call mapping.
func (m *MemorySessionStore) PutSession(_ context.Context, sessionID string, callID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = callID
	return nil
}

// GetSession looks up the call ID for a session.
func (m *MemorySessionStore) GetSession(_ context.Context, sessionID string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	callID, ok := m.sessions[sessionID]
	return callID, ok, nil
}

// RemoveSession deletes a session mapping.
func (m *MemorySessionStore) RemoveSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// Len returns the number of open sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
