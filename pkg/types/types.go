// Package types defines shared types used across all skilltrace modules.
package types

import "time"

// ═══════════════════════════════════════════════════════════════════════════════
// CALL TRACKING TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// SkillCall represents one invocation attempt of a skill.
// Rows are immutable once written and never deleted.
type SkillCall struct {
	ID             int64     `json:"id"`
	SkillName      string    `json:"skill_name"`
	Timestamp      time.Time `json:"timestamp"`
	SessionID      string    `json:"session_id"`
	ContextSummary string    `json:"context_summary"`
	UserQuestion   string    `json:"user_question"`
}

// SkillResult records the outcome of exactly one SkillCall.
// A call has zero results until it is ended, then exactly one.
type SkillResult struct {
	ID                  int64     `json:"id"`
	CallID              int64     `json:"call_id"`
	SuccessRate         float64   `json:"success_rate"`          // [0, 1]
	UserRating          *float64  `json:"user_rating,omitempty"` // conventional [1, 5], nil when not supplied
	Turns               int       `json:"turns"`
	FollowUpQuestions   int       `json:"follow_up_questions"`
	AcceptedSuggestions int       `json:"accepted_suggestions"`
	Timestamp           time.Time `json:"timestamp"`
}

// CallRecord is a SkillCall left-joined with its SkillResult.
// Result is nil while the call is still open.
type CallRecord struct {
	SkillCall
	Result *SkillResult `json:"result,omitempty"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// AGGREGATE TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// SkillMetrics is the materialized rollup over all results for one skill.
// It is fully recomputed from the result history on every write so it
// can never drift from the underlying rows.
type SkillMetrics struct {
	SkillName      string     `json:"skill_name"`
	TotalCalls     int        `json:"total_calls"`
	AvgSuccessRate float64    `json:"avg_success_rate"`
	AvgRating      float64    `json:"avg_rating"` // mean over rated results only; 0 when none rated
	AvgTurns       float64    `json:"avg_turns"`
	LastUpdated    *time.Time `json:"last_updated,omitempty"`
}

// Trend is the qualitative performance direction of a skill.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// SkillScore is the on-demand composite performance figure for a skill,
// computed from its 30 most recent completed calls. It is derived, not
// persisted.
type SkillScore struct {
	SkillName        string  `json:"skill_name"`
	OverallScore     int     `json:"overall_score"` // roughly [0, 100]
	SuccessRate      float64 `json:"success_rate"`
	UserSatisfaction float64 `json:"user_satisfaction"` // mean rating, absent ratings default to 3.5
	Efficiency       float64 `json:"efficiency"`        // derived from turns, rounded to 2 decimals
	Trend            Trend   `json:"trend"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// ADVISORY TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// SuggestionType classifies the severity of a pre-call suggestion.
type SuggestionType string

const (
	SuggestionWarning      SuggestionType = "warning"
	SuggestionInfo         SuggestionType = "info"
	SuggestionOptimization SuggestionType = "optimization"
)

// Suggestion is the advisory output of a pre-call performance check.
// ShouldSuggest is false when the skill has no data or no concerns.
type Suggestion struct {
	ShouldSuggest bool           `json:"should_suggest"`
	Type          SuggestionType `json:"type,omitempty"`
	Message       string         `json:"message,omitempty"`
	Alternatives  []string       `json:"alternatives,omitempty"`
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONVERSATION ANALYSIS TYPES
// ═══════════════════════════════════════════════════════════════════════════════

// ConversationAnalysis summarizes features extracted from a transcript.
// It is used to estimate tracking metrics when a caller does not supply
// them directly.
type ConversationAnalysis struct {
	TotalTurns        int     `json:"total_turns"`
	UserMessages      int     `json:"user_messages"`
	AssistantMessages int     `json:"assistant_messages"`
	FollowUpQuestions int     `json:"follow_up_questions"`
	QuestionCount     int     `json:"question_count"`
	ComplexityScore   float64 `json:"complexity_score"` // [0, 1], rounded to 2 decimals
}

// TrackingResult carries the outcome metrics a caller supplies when
// ending a tracked session.
type TrackingResult struct {
	SuccessRate         float64  `json:"success_rate"`
	UserRating          *float64 `json:"user_rating,omitempty"`
	Turns               int      `json:"turns"`
	FollowUpQuestions   int      `json:"follow_up_questions"`
	AcceptedSuggestions int      `json:"accepted_suggestions"`
}
