package tracker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/skilltrace/pkg/types"
)

func TestExportMetrics(t *testing.T) {
	_, collector := setupCollector(t)
	ctx := context.Background()

	readExport := func(t *testing.T, path string) map[string]any {
		t.Helper()
		payload, err := os.ReadFile(path)
		require.NoError(t, err)
		var doc map[string]any
		require.NoError(t, json.Unmarshal(payload, &doc))
		return doc
	}

	t.Run("skill with no data exports zeroed placeholder", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.json")
		require.NoError(t, collector.ExportMetrics(ctx, "unseen", path))

		doc := readExport(t, path)
		assert.Equal(t, "unseen", doc["skill_name"])
		assert.NotEmpty(t, doc["exported_at"])
		assert.Equal(t, float64(0), doc["total_calls"])
		assert.Equal(t, float64(0), doc["avg_success_rate"])
		assert.Nil(t, doc["last_updated"])
		assert.Empty(t, doc["recent_calls"])
	})

	t.Run("export carries rollup and recent calls", func(t *testing.T) {
		sessionID, err := collector.StartTracking(ctx, "search", "where is the config?", "repo context")
		require.NoError(t, err)

		rating := 4.0
		require.NoError(t, collector.EndTracking(ctx, sessionID, types.TrackingResult{
			SuccessRate:         0.8,
			UserRating:          &rating,
			Turns:               2,
			FollowUpQuestions:   1,
			AcceptedSuggestions: 1,
		}))

		// A second, still-open call
		_, err = collector.StartTracking(ctx, "search", "follow up", "")
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "search.json")
		require.NoError(t, collector.ExportMetrics(ctx, "search", path))

		doc := readExport(t, path)
		assert.Equal(t, "search", doc["skill_name"])
		assert.Equal(t, float64(1), doc["total_calls"])
		assert.InDelta(t, 0.8, doc["avg_success_rate"], 1e-9)
		assert.InDelta(t, 4.0, doc["avg_rating"], 1e-9)
		assert.NotNil(t, doc["last_updated"])

		calls, ok := doc["recent_calls"].([]any)
		require.True(t, ok)
		require.Len(t, calls, 2)

		// Newest first: the open call leads with null result fields
		open := calls[0].(map[string]any)
		assert.Equal(t, "follow up", open["user_question"])
		assert.Nil(t, open["success_rate"])
		assert.Nil(t, open["user_rating"])

		closed := calls[1].(map[string]any)
		assert.Equal(t, "where is the config?", closed["user_question"])
		assert.InDelta(t, 0.8, closed["success_rate"].(float64), 1e-9)
		assert.InDelta(t, 4.0, closed["user_rating"].(float64), 1e-9)
		assert.Equal(t, float64(2), closed["turns"])
	})
}
