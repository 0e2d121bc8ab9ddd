package tracker

import (
	"math"
	"strings"

	"github.com/normanking/skilltrace/pkg/types"
)

// questionWords are the interrogative lead words that mark a user
// message as a question even without a question mark.
var questionWords = []string{
	"how", "what", "where", "when", "why",
	"can", "could", "would", "should",
	"is", "are", "do", "does",
}

// AnalyzeConversation extracts tracking features from a transcript.
// Each message is expected to be prefixed with its speaker role
// ("user:" or "assistant:", case-insensitive); messages with any other
// prefix count toward turns and length but not toward either speaker.
// An empty transcript yields all-zero output.
func AnalyzeConversation(conversation []string) types.ConversationAnalysis {
	analysis := types.ConversationAnalysis{
		TotalTurns: len(conversation),
	}

	if len(conversation) == 0 {
		return analysis
	}

	totalLength := 0
	for i, message := range conversation {
		lower := strings.ToLower(message)
		totalLength += len(message)

		switch {
		case strings.HasPrefix(lower, "user:"):
			analysis.UserMessages++

			if isQuestion(message, lower) {
				analysis.QuestionCount++
				// Anything after the opening message is a follow-up
				if i > 0 {
					analysis.FollowUpQuestions++
				}
			}
		case strings.HasPrefix(lower, "assistant:"):
			analysis.AssistantMessages++
		}
	}

	// Complexity is the unweighted mean of three normalized sub-scores,
	// each capped at 1.
	avgLength := float64(totalLength) / float64(len(conversation))
	fromLength := math.Min(avgLength/200, 1)
	fromTurns := math.Min(float64(len(conversation))/10, 1)
	fromQuestions := math.Min(float64(analysis.QuestionCount)/5, 1)

	analysis.ComplexityScore = round2((fromLength + fromTurns + fromQuestions) / 3)

	return analysis
}

// isQuestion reports whether a user message reads as a question: it
// either contains a question mark or any of the interrogative lead
// words as a case-insensitive substring.
func isQuestion(message, lower string) bool {
	if strings.Contains(message, "?") {
		return true
	}
	for _, word := range questionWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// round2 rounds to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
