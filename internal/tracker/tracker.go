// Package tracker manages the open/close lifecycle of skill
// invocations, bridging a caller's start and end calls onto the
// data layer's single-shot call and result writes.
package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/normanking/skilltrace/internal/data"
	"github.com/normanking/skilltrace/pkg/types"
)

// ErrUnknownSession is returned by EndTracking for a session ID that
// was never produced by StartTracking or has already been consumed.
// This is a caller-contract violation (double-close or typo), fatal to
// the individual call but not to the process.
var ErrUnknownSession = errors.New("unknown session")

// Collector tracks skill invocations from start to end. Each start
// persists a call row and opens a session; the matching end persists
// the result row and closes the session.
type Collector struct {
	store    *data.Store
	sessions SessionStore
}

// New creates a collector with the default in-memory session store.
func New(store *data.Store) *Collector {
	return &Collector{
		store:    store,
		sessions: NewMemorySessionStore(),
	}
}

// NewWithSessions creates a collector with a custom session store,
// e.g. the SQLite-backed one for restart-safe deployments.
func NewWithSessions(store *data.Store, sessions SessionStore) *Collector {
	return &Collector{
		store:    store,
		sessions: sessions,
	}
}

// StartTracking records a new skill call and returns a freshly
// generated session identifier for the caller to hold until the call
// completes.
func (c *Collector) StartTracking(ctx context.Context, skillName, userQuestion, contextSummary string) (string, error) {
	sessionID := uuid.NewString()

	callID, err := c.store.RecordCall(ctx, &types.SkillCall{
		SkillName:      skillName,
		SessionID:      sessionID,
		ContextSummary: contextSummary,
		UserQuestion:   userQuestion,
	})
	if err != nil {
		return "", fmt.Errorf("record call: %w", err)
	}

	if err := c.sessions.PutSession(ctx, sessionID, callID); err != nil {
		return "", fmt.Errorf("register session: %w", err)
	}

	log.Debug().Str("skill", skillName).Str("session", sessionID).Msg("tracking started")
	return sessionID, nil
}

// EndTracking records the outcome of a tracked call and closes the
// session. The session mapping is removed only after the result write
// completes; a failed write leaves the session open for a retry by the
// caller.
func (c *Collector) EndTracking(ctx context.Context, sessionID string, result types.TrackingResult) error {
	callID, ok, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}

	err = c.store.RecordResult(ctx, &types.SkillResult{
		CallID:              callID,
		SuccessRate:         result.SuccessRate,
		UserRating:          result.UserRating,
		Turns:               result.Turns,
		FollowUpQuestions:   result.FollowUpQuestions,
		AcceptedSuggestions: result.AcceptedSuggestions,
	})
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}

	if err := c.sessions.RemoveSession(ctx, sessionID); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}

	log.Debug().Str("session", sessionID).Int64("call_id", callID).Msg("tracking ended")
	return nil
}

// Store exposes the underlying data store for read-side consumers.
func (c *Collector) Store() *data.Store {
	return c.store
}
