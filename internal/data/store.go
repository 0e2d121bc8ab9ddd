package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/normanking/skilltrace/pkg/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CALL OPERATIONS
// ═══════════════════════════════════════════════════════════════════════════════

// RecordCall inserts a new skill call row and returns its assigned ID.
// The skill name must be non-empty; everything else is free text.
func (s *Store) RecordCall(ctx context.Context, call *types.SkillCall) (int64, error) {
	if call.SkillName == "" {
		return 0, fmt.Errorf("skill name cannot be empty")
	}

	ts := call.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	query := `
		INSERT INTO skill_calls (skill_name, timestamp, session_id, context_summary, user_question)
		VALUES (?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		call.SkillName, ts, call.SessionID, call.ContextSummary, call.UserQuestion,
	)
	if err != nil {
		return 0, fmt.Errorf("insert skill call: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	return id, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// RESULT OPERATIONS
// ═══════════════════════════════════════════════════════════════════════════════

// RecordResult inserts an outcome row for an existing call and
// synchronously recomputes the skill's metrics rollup. The insert and
// the rollup update happen in one transaction so a concurrent reader
// never observes one without the other.
//
// The call ID must reference an existing skill call; passing an unknown
// ID is a caller-contract violation and returns an error.
func (s *Store) RecordResult(ctx context.Context, result *types.SkillResult) error {
	ts := result.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		var skillName string
		err := tx.QueryRowContext(ctx,
			`SELECT skill_name FROM skill_calls WHERE id = ?`, result.CallID,
		).Scan(&skillName)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("skill call not found: %d", result.CallID)
		}
		if err != nil {
			return fmt.Errorf("lookup skill call: %w", err)
		}

		query := `
			INSERT INTO skill_results (call_id, success_rate, user_rating, turns, follow_up_questions, accepted_suggestions, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`

		_, err = tx.ExecContext(ctx, query,
			result.CallID, result.SuccessRate, nullFloat(result.UserRating),
			result.Turns, result.FollowUpQuestions, result.AcceptedSuggestions, ts,
		)
		if err != nil {
			return fmt.Errorf("insert skill result: %w", err)
		}

		if err := updateMetricsTx(ctx, tx, skillName); err != nil {
			return err
		}

		log.Debug().Str("skill", skillName).Int64("call_id", result.CallID).Msg("result recorded")
		return nil
	})
}

// updateMetricsTx recomputes the metrics rollup for a skill from the
// full set of its results. Derive, don't accumulate: the full recompute
// guarantees the rollup never drifts from the underlying rows. If the
// skill has no results the rollup row is left untouched.
func updateMetricsTx(ctx context.Context, tx *sql.Tx, skillName string) error {
	query := `
		SELECT
			COUNT(*) as total_calls,
			AVG(sr.success_rate) as avg_success_rate,
			AVG(sr.user_rating) as avg_rating,
			AVG(sr.turns) as avg_turns
		FROM skill_results sr
		INNER JOIN skill_calls sc ON sr.call_id = sc.id
		WHERE sc.skill_name = ?
	`

	var total int
	var avgSuccess, avgRating, avgTurns sql.NullFloat64

	err := tx.QueryRowContext(ctx, query, skillName).Scan(&total, &avgSuccess, &avgRating, &avgTurns)
	if err != nil {
		return fmt.Errorf("compute metrics: %w", err)
	}

	if total == 0 {
		return nil
	}

	upsert := `
		INSERT INTO skill_metrics (skill_name, total_calls, avg_success_rate, avg_rating, avg_turns, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(skill_name) DO UPDATE SET
			total_calls = excluded.total_calls,
			avg_success_rate = excluded.avg_success_rate,
			avg_rating = excluded.avg_rating,
			avg_turns = excluded.avg_turns,
			last_updated = excluded.last_updated
	`

	// AVG(user_rating) skips NULL ratings; a skill with no rated
	// results rolls up as 0, not NULL.
	_, err = tx.ExecContext(ctx, upsert,
		skillName, total, avgSuccess.Float64, avgRating.Float64, avgTurns.Float64, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert metrics: %w", err)
	}

	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// QUERY OPERATIONS
// ═══════════════════════════════════════════════════════════════════════════════

// GetSkillMetrics returns the metrics rollup for a skill, or (nil, nil)
// when the skill has never recorded a result. Absence is not an error.
func (s *Store) GetSkillMetrics(ctx context.Context, skillName string) (*types.SkillMetrics, error) {
	query := `
		SELECT skill_name, total_calls, avg_success_rate, avg_rating, avg_turns, last_updated
		FROM skill_metrics
		WHERE skill_name = ?
	`

	var m types.SkillMetrics
	var lastUpdated time.Time

	err := s.db.QueryRowContext(ctx, query, skillName).Scan(
		&m.SkillName, &m.TotalCalls, &m.AvgSuccessRate, &m.AvgRating, &m.AvgTurns, &lastUpdated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query skill metrics: %w", err)
	}

	m.LastUpdated = &lastUpdated
	return &m, nil
}

// GetRecentCalls returns up to limit calls for a skill, newest first,
// each left-joined with its result. Calls that have not been ended yet
// carry a nil Result.
func (s *Store) GetRecentCalls(ctx context.Context, skillName string, limit int) ([]*types.CallRecord, error) {
	if limit <= 0 {
		limit = 30
	}

	query := `
		SELECT
			sc.id, sc.skill_name, sc.timestamp, sc.session_id, sc.context_summary, sc.user_question,
			sr.id, sr.success_rate, sr.user_rating, sr.turns, sr.follow_up_questions, sr.accepted_suggestions, sr.timestamp
		FROM skill_calls sc
		LEFT JOIN skill_results sr ON sc.id = sr.call_id
		WHERE sc.skill_name = ?
		ORDER BY sc.timestamp DESC, sc.id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, skillName, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent calls: %w", err)
	}
	defer rows.Close()

	var records []*types.CallRecord
	for rows.Next() {
		var rec types.CallRecord
		var resultID sql.NullInt64
		var successRate, userRating sql.NullFloat64
		var turns, followUps, accepted sql.NullInt64
		var resultTS sql.NullTime

		err := rows.Scan(
			&rec.ID, &rec.SkillName, &rec.Timestamp, &rec.SessionID, &rec.ContextSummary, &rec.UserQuestion,
			&resultID, &successRate, &userRating, &turns, &followUps, &accepted, &resultTS,
		)
		if err != nil {
			return nil, fmt.Errorf("scan call record: %w", err)
		}

		if resultID.Valid {
			res := &types.SkillResult{
				ID:                  resultID.Int64,
				CallID:              rec.ID,
				SuccessRate:         successRate.Float64,
				Turns:               int(turns.Int64),
				FollowUpQuestions:   int(followUps.Int64),
				AcceptedSuggestions: int(accepted.Int64),
				Timestamp:           resultTS.Time,
			}
			if userRating.Valid {
				rating := userRating.Float64
				res.UserRating = &rating
			}
			rec.Result = res
		}

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call records: %w", err)
	}

	return records, nil
}

// GetAllMetrics returns the metrics rollup for every skill that has
// recorded at least one result, ordered by skill name.
func (s *Store) GetAllMetrics(ctx context.Context) ([]*types.SkillMetrics, error) {
	query := `
		SELECT skill_name, total_calls, avg_success_rate, avg_rating, avg_turns, last_updated
		FROM skill_metrics
		ORDER BY skill_name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all metrics: %w", err)
	}
	defer rows.Close()

	var metrics []*types.SkillMetrics
	for rows.Next() {
		var m types.SkillMetrics
		var lastUpdated time.Time

		err := rows.Scan(&m.SkillName, &m.TotalCalls, &m.AvgSuccessRate, &m.AvgRating, &m.AvgTurns, &lastUpdated)
		if err != nil {
			return nil, fmt.Errorf("scan metrics: %w", err)
		}

		m.LastUpdated = &lastUpdated
		metrics = append(metrics, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics: %w", err)
	}

	return metrics, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

// nullFloat converts an optional float to sql.NullFloat64 for proper NULL handling.
func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
