// Package scorer computes composite performance scores, trend
// classifications, and failure-pattern summaries for skills. It is a
// pure read-side consumer of the data layer and holds no state.
package scorer

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/normanking/skilltrace/internal/data"
	"github.com/normanking/skilltrace/pkg/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SCORING CONSTANTS
// ═══════════════════════════════════════════════════════════════════════════════

const (
	// scoreWindow is how many recent completed calls feed the score.
	scoreWindow = 30

	// trendWindow is how many recent completed calls feed the trend.
	trendWindow = 20

	// minTrendSamples is the minimum history for a meaningful trend.
	minTrendSamples = 5

	// defaultRating substitutes for results recorded without a rating.
	defaultRating = 3.5

	// trendThreshold is the success-rate delta that separates a real
	// shift from noise. Boundary values resolve to stable.
	trendThreshold = 0.1
)

// Analyzer computes scores and trends from recorded call history.
type Analyzer struct {
	store *data.Store
}

// New creates an analyzer over the given store.
func New(store *data.Store) *Analyzer {
	return &Analyzer{store: store}
}

// ═══════════════════════════════════════════════════════════════════════════════
// COMPOSITE SCORE
// ═══════════════════════════════════════════════════════════════════════════════

// CalculateSkillScore computes the composite score for a skill from its
// 30 most recent completed calls. Weighting: success rate 40%, user
// satisfaction 35% (rating * 7), efficiency 25%. Returns (nil, nil)
// when the skill has no completed calls; insufficient data is absence,
// not an error.
func (a *Analyzer) CalculateSkillScore(ctx context.Context, skillName string) (*types.SkillScore, error) {
	records, err := a.store.GetRecentCalls(ctx, skillName, scoreWindow)
	if err != nil {
		return nil, fmt.Errorf("load recent calls: %w", err)
	}

	completed := completedOnly(records)
	if len(completed) == 0 {
		return nil, nil
	}

	avgSuccess := meanOf(completed, func(r *types.SkillResult) float64 { return r.SuccessRate })
	successScore := avgSuccess * 40

	avgRating := meanOf(completed, ratingOrDefault)
	satisfactionScore := avgRating * 7

	// More turns means lower efficiency. Clamped at the lower bound
	// only; a turns value below 1 can push this past 1, which is kept
	// as-is rather than silently capped.
	avgTurns := meanOf(completed, func(r *types.SkillResult) float64 { return float64(r.Turns) })
	efficiency := math.Max(0, 1-(avgTurns-1)/10)
	efficiencyScore := efficiency * 25

	trend, err := a.analyzeTrend(ctx, skillName)
	if err != nil {
		return nil, err
	}

	return &types.SkillScore{
		SkillName:        skillName,
		OverallScore:     int(math.Round(successScore + satisfactionScore + efficiencyScore)),
		SuccessRate:      avgSuccess,
		UserSatisfaction: avgRating,
		Efficiency:       math.Round(efficiency*100) / 100,
		Trend:            trend,
	}, nil
}

// analyzeTrend compares the success rate of the newer half of the last
// 20 completed calls against the older half. Fewer than 5 completed
// calls is always stable.
func (a *Analyzer) analyzeTrend(ctx context.Context, skillName string) (types.Trend, error) {
	records, err := a.store.GetRecentCalls(ctx, skillName, trendWindow)
	if err != nil {
		return types.TrendStable, fmt.Errorf("load trend window: %w", err)
	}

	completed := completedOnly(records)
	if len(completed) < minTrendSamples {
		return types.TrendStable, nil
	}

	// Records arrive newest first, so the front half is the recent one.
	mid := len(completed) / 2
	recentAvg := meanOf(completed[:mid], func(r *types.SkillResult) float64 { return r.SuccessRate })
	olderAvg := meanOf(completed[mid:], func(r *types.SkillResult) float64 { return r.SuccessRate })

	diff := recentAvg - olderAvg
	switch {
	case diff > trendThreshold:
		return types.TrendImproving, nil
	case diff < -trendThreshold:
		return types.TrendDeclining, nil
	default:
		return types.TrendStable, nil
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// RANKING
// ═══════════════════════════════════════════════════════════════════════════════

// GetBestSkills scores every skill with a metrics rollup and returns
// the top limit by overall score, descending. The sort is stable, so
// tied skills keep their name order from the rollup listing.
func (a *Analyzer) GetBestSkills(ctx context.Context, limit int) ([]*types.SkillScore, error) {
	allMetrics, err := a.store.GetAllMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("load all metrics: %w", err)
	}

	var scores []*types.SkillScore
	for _, m := range allMetrics {
		score, err := a.CalculateSkillScore(ctx, m.SkillName)
		if err != nil {
			return nil, err
		}
		if score != nil {
			scores = append(scores, score)
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].OverallScore > scores[j].OverallScore
	})

	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}

	return scores, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

// completedOnly drops open calls, keeping only records with a result.
func completedOnly(records []*types.CallRecord) []*types.SkillResult {
	var results []*types.SkillResult
	for _, rec := range records {
		if rec.Result != nil {
			results = append(results, rec.Result)
		}
	}
	return results
}

// ratingOrDefault substitutes the neutral default for unrated results.
func ratingOrDefault(r *types.SkillResult) float64 {
	if r.UserRating == nil {
		return defaultRating
	}
	return *r.UserRating
}

// meanOf averages a field over a result set. Zero-length input yields 0.
func meanOf(results []*types.SkillResult, field func(*types.SkillResult) float64) float64 {
	if len(results) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range results {
		sum += field(r)
	}
	return sum / float64(len(results))
}
