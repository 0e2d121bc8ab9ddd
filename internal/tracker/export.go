package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/normanking/skilltrace/pkg/types"
)

// exportLimit caps how many recent calls an export document carries.
const exportLimit = 50

// exportDocument is the fixed-key JSON shape written by ExportMetrics.
type exportDocument struct {
	SkillName      string       `json:"skill_name"`
	ExportedAt     string       `json:"exported_at"`
	TotalCalls     int          `json:"total_calls"`
	AvgSuccessRate float64      `json:"avg_success_rate"`
	AvgRating      float64      `json:"avg_rating"`
	AvgTurns       float64      `json:"avg_turns"`
	LastUpdated    *string      `json:"last_updated"`
	RecentCalls    []exportCall `json:"recent_calls"`
}

type exportCall struct {
	Timestamp           string   `json:"timestamp"`
	ContextSummary      string   `json:"context_summary"`
	UserQuestion        string   `json:"user_question"`
	SuccessRate         *float64 `json:"success_rate"`
	UserRating          *float64 `json:"user_rating"`
	Turns               *int     `json:"turns"`
	FollowUpQuestions   *int     `json:"follow_up_questions"`
	AcceptedSuggestions *int     `json:"accepted_suggestions"`
}

// ExportMetrics serializes a skill's metrics rollup and its most recent
// calls to a JSON file at outputPath. A skill with no recorded data
// exports zeroed aggregate fields and a null last_updated.
func (c *Collector) ExportMetrics(ctx context.Context, skillName, outputPath string) error {
	metrics, err := c.store.GetSkillMetrics(ctx, skillName)
	if err != nil {
		return fmt.Errorf("load metrics: %w", err)
	}

	recent, err := c.store.GetRecentCalls(ctx, skillName, exportLimit)
	if err != nil {
		return fmt.Errorf("load recent calls: %w", err)
	}

	doc := exportDocument{
		SkillName:   skillName,
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		RecentCalls: make([]exportCall, 0, len(recent)),
	}

	if metrics != nil {
		doc.TotalCalls = metrics.TotalCalls
		doc.AvgSuccessRate = metrics.AvgSuccessRate
		doc.AvgRating = metrics.AvgRating
		doc.AvgTurns = metrics.AvgTurns
		if metrics.LastUpdated != nil {
			lu := metrics.LastUpdated.UTC().Format(time.RFC3339)
			doc.LastUpdated = &lu
		}
	}

	for _, rec := range recent {
		doc.RecentCalls = append(doc.RecentCalls, toExportCall(rec))
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}

	if err := os.WriteFile(outputPath, payload, 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	return nil
}

// toExportCall flattens a call record; result fields stay null for
// calls that have not been closed.
func toExportCall(rec *types.CallRecord) exportCall {
	call := exportCall{
		Timestamp:      rec.Timestamp.UTC().Format(time.RFC3339),
		ContextSummary: rec.ContextSummary,
		UserQuestion:   rec.UserQuestion,
	}

	if rec.Result != nil {
		sr := rec.Result.SuccessRate
		turns := rec.Result.Turns
		followUps := rec.Result.FollowUpQuestions
		accepted := rec.Result.AcceptedSuggestions

		call.SuccessRate = &sr
		call.UserRating = rec.Result.UserRating
		call.Turns = &turns
		call.FollowUpQuestions = &followUps
		call.AcceptedSuggestions = &accepted
	}

	return call
}
