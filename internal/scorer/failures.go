package scorer

import (
	"context"
	"fmt"

	"github.com/normanking/skilltrace/pkg/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// FAILURE PATTERN ANALYSIS
// ═══════════════════════════════════════════════════════════════════════════════

// failureThreshold marks a completed call as a failure.
const failureThreshold = 0.5

// AnalyzeFailurePatterns inspects the failures among a skill's 20 most
// recent completed calls and returns qualitative findings for every
// threshold that trips. No failures yields an empty list; failures with
// no tripped threshold yield a single generic finding.
func (a *Analyzer) AnalyzeFailurePatterns(ctx context.Context, skillName string) ([]string, error) {
	records, err := a.store.GetRecentCalls(ctx, skillName, trendWindow)
	if err != nil {
		return nil, fmt.Errorf("load recent calls: %w", err)
	}

	var failures []*types.SkillResult
	for _, res := range completedOnly(records) {
		if res.SuccessRate < failureThreshold {
			failures = append(failures, res)
		}
	}

	if len(failures) == 0 {
		return nil, nil
	}

	var patterns []string

	avgTurns := meanOf(failures, func(r *types.SkillResult) float64 { return float64(r.Turns) })
	if avgTurns > 7 {
		patterns = append(patterns, "High average conversation turns indicate complexity or unclear responses")
	}

	avgFollowUps := meanOf(failures, func(r *types.SkillResult) float64 { return float64(r.FollowUpQuestions) })
	if avgFollowUps > 3 {
		patterns = append(patterns, "Excessive follow-up questions suggest initial responses are incomplete")
	}

	avgAccepted := meanOf(failures, func(r *types.SkillResult) float64 { return float64(r.AcceptedSuggestions) })
	if avgAccepted < 1 {
		patterns = append(patterns, "Low suggestion acceptance rate indicates recommendations are not helpful")
	}

	avgRating := meanOf(failures, ratingOrDefault)
	if avgRating < 2.5 {
		patterns = append(patterns, "Poor user ratings correlate with failures, indicating user dissatisfaction")
	}

	avgSuccess := meanOf(failures, func(r *types.SkillResult) float64 { return r.SuccessRate })
	if avgSuccess < 0.3 {
		patterns = append(patterns, "Very low success rate suggests fundamental issues with skill implementation")
	}

	if len(patterns) == 0 {
		patterns = append(patterns, "Multiple failures detected but no clear pattern - may need qualitative analysis")
	}

	return patterns, nil
}
