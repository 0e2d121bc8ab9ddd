package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PERSISTENT SESSION MAP
// ═══════════════════════════════════════════════════════════════════════════════
//
// The tracker's default session map is in-memory and lost on restart,
// which permanently orphans any call left open across the restart.
// These methods back the tracker's SessionStore abstraction with the
// active_sessions table for deployments that cannot accept that.

// PutSession records a session-to-call mapping.
func (s *Store) PutSession(ctx context.Context, sessionID string, callID int64) error {
	query := `INSERT INTO active_sessions (session_id, call_id, created_at) VALUES (?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, query, sessionID, callID, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetSession looks up the call ID for a session. The second return
// value is false when the session is unknown.
func (s *Store) GetSession(ctx context.Context, sessionID string) (int64, bool, error) {
	var callID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT call_id FROM active_sessions WHERE session_id = ?`, sessionID,
	).Scan(&callID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query session: %w", err)
	}

	return callID, true, nil
}

// RemoveSession deletes a session mapping. Removing an unknown session
// is a no-op.
func (s *Store) RemoveSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM active_sessions WHERE session_id = ?`, sessionID,
	); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}
