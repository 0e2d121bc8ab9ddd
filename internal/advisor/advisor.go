// Package advisor turns score and metrics data into caller-facing
// guidance: pre-call warnings, alternative-skill suggestions, Markdown
// performance reports, and improvement suggestions.
package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/normanking/skilltrace/internal/data"
	"github.com/normanking/skilltrace/internal/scorer"
	"github.com/normanking/skilltrace/pkg/types"
)

// Suggester evaluates skills before and after use.
type Suggester struct {
	store    *data.Store
	analyzer *scorer.Analyzer
}

// New creates a suggester over the given store and analyzer.
func New(store *data.Store, analyzer *scorer.Analyzer) *Suggester {
	return &Suggester{
		store:    store,
		analyzer: analyzer,
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// PRE-CALL CHECK
// ═══════════════════════════════════════════════════════════════════════════════

// CheckBeforeSkillCall evaluates a skill's track record before it is
// invoked. Checks run in fixed priority order and the first match wins:
// low success rate, declining trend, low overall score. A skill with no
// history produces no suggestion.
//
// Advisory output must never block the underlying skill invocation, so
// a failed alternative lookup degrades to a generic suggestion instead
// of propagating.
func (s *Suggester) CheckBeforeSkillCall(ctx context.Context, skillName string) (types.Suggestion, error) {
	score, err := s.analyzer.CalculateSkillScore(ctx, skillName)
	if err != nil {
		return types.Suggestion{}, fmt.Errorf("score %q: %w", skillName, err)
	}
	if score == nil {
		return types.Suggestion{ShouldSuggest: false}, nil
	}

	if score.SuccessRate < 0.5 {
		return types.Suggestion{
			ShouldSuggest: true,
			Type:          types.SuggestionWarning,
			Message: fmt.Sprintf("⚠️ %q has a low success rate (%.1f%%). Consider alternatives.",
				skillName, score.SuccessRate*100),
			Alternatives: s.alternativeSkills(ctx, skillName),
		}, nil
	}

	if score.Trend == types.TrendDeclining {
		return types.Suggestion{
			ShouldSuggest: true,
			Type:          types.SuggestionWarning,
			Message: fmt.Sprintf("📉 %q is showing a declining performance trend. Consider alternatives.",
				skillName),
			Alternatives: s.alternativeSkills(ctx, skillName),
		}, nil
	}

	if score.OverallScore < 50 {
		return types.Suggestion{
			ShouldSuggest: true,
			Type:          types.SuggestionInfo,
			Message: fmt.Sprintf("ℹ️ %q has a low overall score (%d/100). Better options may exist.",
				skillName, score.OverallScore),
			Alternatives: s.alternativeSkills(ctx, skillName),
		}, nil
	}

	return types.Suggestion{ShouldSuggest: false}, nil
}

// alternativeSkills returns up to 2 better-performing skills, each
// annotated with its overall score. Lookup failures degrade to a
// generic pointer rather than surfacing an error.
func (s *Suggester) alternativeSkills(ctx context.Context, skillName string) []string {
	best, err := s.analyzer.GetBestSkills(ctx, 3)
	if err != nil {
		log.Warn().Err(err).Str("skill", skillName).Msg("alternative lookup failed")
		return []string{"Consider reviewing the available skills"}
	}

	var alternatives []string
	for _, score := range best {
		if score.SkillName == skillName {
			continue
		}
		if len(alternatives) == 2 {
			break
		}
		alternatives = append(alternatives, fmt.Sprintf("%s (score: %d)", score.SkillName, score.OverallScore))
	}

	return alternatives
}

// ═══════════════════════════════════════════════════════════════════════════════
// PERFORMANCE REPORT
// ═══════════════════════════════════════════════════════════════════════════════

// GeneratePerformanceReport renders a Markdown performance report for a
// skill. Skills without score or metrics data get a short notice
// instead of the full section set.
func (s *Suggester) GeneratePerformanceReport(ctx context.Context, skillName string) (string, error) {
	score, err := s.analyzer.CalculateSkillScore(ctx, skillName)
	if err != nil {
		return "", fmt.Errorf("score %q: %w", skillName, err)
	}

	metrics, err := s.store.GetSkillMetrics(ctx, skillName)
	if err != nil {
		return "", fmt.Errorf("metrics %q: %w", skillName, err)
	}

	if score == nil || metrics == nil {
		return fmt.Sprintf("# Performance Report: %s\n\nNo data available for this skill.\n", skillName), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Performance Report: %s\n\n", skillName)

	fmt.Fprintf(&b, "## Overall Score\n\n")
	fmt.Fprintf(&b, "- **Score**: %d/100\n", score.OverallScore)
	fmt.Fprintf(&b, "- **Trend**: %s %s\n\n", trendEmoji(score.Trend), score.Trend)

	fmt.Fprintf(&b, "## Detailed Metrics\n\n")
	fmt.Fprintf(&b, "- **Success Rate**: %.1f%%\n", score.SuccessRate*100)
	fmt.Fprintf(&b, "- **User Satisfaction**: %.1f/5.0\n", score.UserSatisfaction)
	fmt.Fprintf(&b, "- **Efficiency**: %.1f%%\n\n", score.Efficiency*100)

	fmt.Fprintf(&b, "## Call Statistics\n\n")
	fmt.Fprintf(&b, "- **Total Calls**: %d\n", metrics.TotalCalls)
	fmt.Fprintf(&b, "- **Average Turns**: %.1f\n", metrics.AvgTurns)
	fmt.Fprintf(&b, "- **Last Updated**: %s\n\n", lastUpdated(metrics))

	suggestions, err := s.GenerateImprovementSuggestions(ctx, skillName)
	if err != nil {
		return "", err
	}
	if len(suggestions) > 0 {
		fmt.Fprintf(&b, "## Improvement Suggestions\n\n")
		for i, suggestion := range suggestions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, suggestion)
		}
		b.WriteString("\n")
	}

	patterns, err := s.analyzer.AnalyzeFailurePatterns(ctx, skillName)
	if err != nil {
		return "", fmt.Errorf("failure patterns %q: %w", skillName, err)
	}
	if len(patterns) > 0 {
		fmt.Fprintf(&b, "## Failure Patterns\n\n")
		for i, pattern := range patterns {
			fmt.Fprintf(&b, "%d. %s\n", i+1, pattern)
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// IMPROVEMENT SUGGESTIONS
// ═══════════════════════════════════════════════════════════════════════════════

// GenerateImprovementSuggestions builds an ordered list of suggestions
// from score thresholds plus deduplicated failure-pattern findings.
// Skills with no score or metrics yield an empty list.
func (s *Suggester) GenerateImprovementSuggestions(ctx context.Context, skillName string) ([]string, error) {
	score, err := s.analyzer.CalculateSkillScore(ctx, skillName)
	if err != nil {
		return nil, fmt.Errorf("score %q: %w", skillName, err)
	}

	metrics, err := s.store.GetSkillMetrics(ctx, skillName)
	if err != nil {
		return nil, fmt.Errorf("metrics %q: %w", skillName, err)
	}

	if score == nil || metrics == nil {
		return nil, nil
	}

	var suggestions []string

	if score.SuccessRate < 0.5 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Improve success rate (%.1f%%): Review skill implementation for common failure cases",
			score.SuccessRate*100))
	} else if score.SuccessRate < 0.7 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Moderate success rate (%.1f%%): Analyze failure patterns to identify improvement opportunities",
			score.SuccessRate*100))
	}

	if score.UserSatisfaction < 3.0 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Low user satisfaction (%.1f/5.0): Gather user feedback and improve response quality",
			score.UserSatisfaction))
	} else if score.UserSatisfaction < 4.0 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Moderate satisfaction (%.1f/5.0): Consider enhancing response clarity and completeness",
			score.UserSatisfaction))
	}

	if score.Efficiency < 0.5 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Low efficiency (%.1f%%): Reduce average conversation turns (currently %.1f) by providing more comprehensive initial responses",
			score.Efficiency*100, metrics.AvgTurns))
	} else if score.Efficiency < 0.7 {
		suggestions = append(suggestions, fmt.Sprintf(
			"Moderate efficiency (%.1f%%): Aim to reduce follow-up questions and provide more direct answers",
			score.Efficiency*100))
	}

	if score.Trend == types.TrendDeclining {
		suggestions = append(suggestions,
			"Declining performance trend detected: Review recent changes and investigate potential issues")
	}

	patterns, err := s.analyzer.AnalyzeFailurePatterns(ctx, skillName)
	if err != nil {
		return nil, fmt.Errorf("failure patterns %q: %w", skillName, err)
	}
	for _, pattern := range patterns {
		if !contains(suggestions, pattern) {
			suggestions = append(suggestions, pattern)
		}
	}

	return suggestions, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

// trendEmoji maps a trend to its report glyph.
func trendEmoji(trend types.Trend) string {
	switch trend {
	case types.TrendImproving:
		return "📈"
	case types.TrendDeclining:
		return "📉"
	case types.TrendStable:
		return "➡️"
	default:
		return "❓"
	}
}

// lastUpdated formats the rollup timestamp, or "N/A" when unset.
func lastUpdated(metrics *types.SkillMetrics) string {
	if metrics.LastUpdated == nil {
		return "N/A"
	}
	return metrics.LastUpdated.UTC().Format("2006-01-02 15:04:05")
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
