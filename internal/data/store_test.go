// Package data provides tests for Store operations.
package data

import (
	"context"
	"testing"
	"time"

	"github.com/normanking/skilltrace/pkg/types"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

// recordCallAt inserts a call with a controlled timestamp so ordering
// assertions are deterministic.
func recordCallAt(t *testing.T, store *Store, skill string, ts time.Time) int64 {
	t.Helper()

	id, err := store.RecordCall(context.Background(), &types.SkillCall{
		SkillName:      skill,
		SessionID:      "session-" + ts.Format("150405.000000000"),
		ContextSummary: "ctx",
		UserQuestion:   "question",
		Timestamp:      ts,
	})
	if err != nil {
		t.Fatalf("RecordCall failed: %v", err)
	}

	return id
}

// ═══════════════════════════════════════════════════════════════════════════════
// CALL TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestRecordCall(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("assigns increasing ids", func(t *testing.T) {
		first, err := store.RecordCall(ctx, &types.SkillCall{
			SkillName: "search", SessionID: "s1", UserQuestion: "q1",
		})
		if err != nil {
			t.Fatalf("RecordCall failed: %v", err)
		}

		second, err := store.RecordCall(ctx, &types.SkillCall{
			SkillName: "search", SessionID: "s2", UserQuestion: "q2",
		})
		if err != nil {
			t.Fatalf("RecordCall failed: %v", err)
		}

		if second <= first {
			t.Errorf("expected increasing ids, got %d then %d", first, second)
		}
	})

	t.Run("rejects empty skill name", func(t *testing.T) {
		_, err := store.RecordCall(ctx, &types.SkillCall{SessionID: "s3"})
		if err == nil {
			t.Error("expected error for empty skill name")
		}
	})
}

// ═══════════════════════════════════════════════════════════════════════════════
// RESULT AND ROLLUP TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestRecordResult(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("rejects unknown call id", func(t *testing.T) {
		err := store.RecordResult(ctx, &types.SkillResult{CallID: 9999, SuccessRate: 0.5, Turns: 1})
		if err == nil {
			t.Error("expected error for unknown call id")
		}
	})

	t.Run("total calls counts results not calls", func(t *testing.T) {
		base := time.Now().UTC()
		first := recordCallAt(t, store, "summarize", base)
		recordCallAt(t, store, "summarize", base.Add(time.Second)) // left open

		err := store.RecordResult(ctx, &types.SkillResult{CallID: first, SuccessRate: 0.9, Turns: 2})
		if err != nil {
			t.Fatalf("RecordResult failed: %v", err)
		}

		metrics, err := store.GetSkillMetrics(ctx, "summarize")
		if err != nil {
			t.Fatalf("GetSkillMetrics failed: %v", err)
		}
		if metrics == nil {
			t.Fatal("expected metrics row")
		}
		if metrics.TotalCalls != 1 {
			t.Errorf("expected total_calls=1 (one result, two calls), got %d", metrics.TotalCalls)
		}
	})

	t.Run("rollup is full recompute over all results", func(t *testing.T) {
		base := time.Now().UTC()
		for i, rate := range []float64{0.2, 0.4, 0.6} {
			id := recordCallAt(t, store, "translate", base.Add(time.Duration(i)*time.Second))
			err := store.RecordResult(ctx, &types.SkillResult{CallID: id, SuccessRate: rate, Turns: i + 1})
			if err != nil {
				t.Fatalf("RecordResult failed: %v", err)
			}
		}

		metrics, err := store.GetSkillMetrics(ctx, "translate")
		if err != nil {
			t.Fatalf("GetSkillMetrics failed: %v", err)
		}
		if metrics.TotalCalls != 3 {
			t.Errorf("expected total_calls=3, got %d", metrics.TotalCalls)
		}
		if diff := metrics.AvgSuccessRate - 0.4; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("expected avg_success_rate=0.4, got %f", metrics.AvgSuccessRate)
		}
		if diff := metrics.AvgTurns - 2.0; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("expected avg_turns=2.0, got %f", metrics.AvgTurns)
		}
		if metrics.LastUpdated == nil {
			t.Error("expected last_updated to be set")
		}
	})

	t.Run("avg rating excludes unrated results", func(t *testing.T) {
		base := time.Now().UTC()
		rated := recordCallAt(t, store, "classify", base)
		unrated := recordCallAt(t, store, "classify", base.Add(time.Second))

		rating := 4.0
		if err := store.RecordResult(ctx, &types.SkillResult{
			CallID: rated, SuccessRate: 0.8, UserRating: &rating, Turns: 2,
		}); err != nil {
			t.Fatalf("RecordResult failed: %v", err)
		}
		if err := store.RecordResult(ctx, &types.SkillResult{
			CallID: unrated, SuccessRate: 0.8, Turns: 2,
		}); err != nil {
			t.Fatalf("RecordResult failed: %v", err)
		}

		metrics, err := store.GetSkillMetrics(ctx, "classify")
		if err != nil {
			t.Fatalf("GetSkillMetrics failed: %v", err)
		}
		// The unrated result stays out of the denominator
		if metrics.AvgRating != 4.0 {
			t.Errorf("expected avg_rating=4.0, got %f", metrics.AvgRating)
		}
	})

	t.Run("skill with no rated results rolls up rating as zero", func(t *testing.T) {
		id := recordCallAt(t, store, "rewrite", time.Now().UTC())
		if err := store.RecordResult(ctx, &types.SkillResult{CallID: id, SuccessRate: 0.7, Turns: 1}); err != nil {
			t.Fatalf("RecordResult failed: %v", err)
		}

		metrics, err := store.GetSkillMetrics(ctx, "rewrite")
		if err != nil {
			t.Fatalf("GetSkillMetrics failed: %v", err)
		}
		if metrics.AvgRating != 0 {
			t.Errorf("expected avg_rating=0, got %f", metrics.AvgRating)
		}
	})
}

// ═══════════════════════════════════════════════════════════════════════════════
// QUERY TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestGetSkillMetrics(t *testing.T) {
	store := setupTestStore(t)

	t.Run("absent skill returns nil without error", func(t *testing.T) {
		metrics, err := store.GetSkillMetrics(context.Background(), "never-seen")
		if err != nil {
			t.Fatalf("GetSkillMetrics failed: %v", err)
		}
		if metrics != nil {
			t.Errorf("expected nil metrics, got %+v", metrics)
		}
	})
}

func TestGetRecentCalls(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	// Five calls for "search", three closed; one call for another skill
	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, recordCallAt(t, store, "search", base.Add(time.Duration(i)*time.Minute)))
	}
	recordCallAt(t, store, "other", base.Add(10*time.Minute))

	for i := 0; i < 3; i++ {
		if err := store.RecordResult(ctx, &types.SkillResult{
			CallID: ids[i], SuccessRate: 0.5, Turns: 1,
		}); err != nil {
			t.Fatalf("RecordResult failed: %v", err)
		}
	}

	t.Run("newest first and bounded by limit", func(t *testing.T) {
		records, err := store.GetRecentCalls(ctx, "search", 3)
		if err != nil {
			t.Fatalf("GetRecentCalls failed: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}
		for i := 1; i < len(records); i++ {
			if records[i].Timestamp.After(records[i-1].Timestamp) {
				t.Error("records not ordered newest first")
			}
		}
		if records[0].ID != ids[4] {
			t.Errorf("expected newest call %d first, got %d", ids[4], records[0].ID)
		}
	})

	t.Run("never includes other skills", func(t *testing.T) {
		records, err := store.GetRecentCalls(ctx, "search", 50)
		if err != nil {
			t.Fatalf("GetRecentCalls failed: %v", err)
		}
		if len(records) != 5 {
			t.Fatalf("expected 5 records, got %d", len(records))
		}
		for _, rec := range records {
			if rec.SkillName != "search" {
				t.Errorf("unexpected skill %q in results", rec.SkillName)
			}
		}
	})

	t.Run("open calls carry nil result", func(t *testing.T) {
		records, err := store.GetRecentCalls(ctx, "search", 50)
		if err != nil {
			t.Fatalf("GetRecentCalls failed: %v", err)
		}

		open, closed := 0, 0
		for _, rec := range records {
			if rec.Result == nil {
				open++
			} else {
				closed++
				if rec.Result.CallID != rec.ID {
					t.Errorf("result call_id %d does not match call %d", rec.Result.CallID, rec.ID)
				}
			}
		}
		if open != 2 || closed != 3 {
			t.Errorf("expected 2 open / 3 closed, got %d / %d", open, closed)
		}
	})
}

func TestGetAllMetrics(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("empty store yields no metrics", func(t *testing.T) {
		all, err := store.GetAllMetrics(ctx)
		if err != nil {
			t.Fatalf("GetAllMetrics failed: %v", err)
		}
		if len(all) != 0 {
			t.Errorf("expected no metrics, got %d", len(all))
		}
	})

	t.Run("ordered by skill name", func(t *testing.T) {
		base := time.Now().UTC()
		for _, skill := range []string{"zeta", "alpha", "mid"} {
			id := recordCallAt(t, store, skill, base)
			if err := store.RecordResult(ctx, &types.SkillResult{CallID: id, SuccessRate: 0.5, Turns: 1}); err != nil {
				t.Fatalf("RecordResult failed: %v", err)
			}
		}

		all, err := store.GetAllMetrics(ctx)
		if err != nil {
			t.Fatalf("GetAllMetrics failed: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 metrics rows, got %d", len(all))
		}

		want := []string{"alpha", "mid", "zeta"}
		for i, m := range all {
			if m.SkillName != want[i] {
				t.Errorf("position %d: expected %q, got %q", i, want[i], m.SkillName)
			}
		}
	})
}

// ═══════════════════════════════════════════════════════════════════════════════
// SESSION MAP TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestSessionStore(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	callID := recordCallAt(t, store, "search", time.Now().UTC())

	t.Run("put then get", func(t *testing.T) {
		if err := store.PutSession(ctx, "sess-1", callID); err != nil {
			t.Fatalf("PutSession failed: %v", err)
		}

		got, ok, err := store.GetSession(ctx, "sess-1")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if !ok {
			t.Fatal("expected session to exist")
		}
		if got != callID {
			t.Errorf("expected call id %d, got %d", callID, got)
		}
	})

	t.Run("remove forgets the session", func(t *testing.T) {
		if err := store.RemoveSession(ctx, "sess-1"); err != nil {
			t.Fatalf("RemoveSession failed: %v", err)
		}

		_, ok, err := store.GetSession(ctx, "sess-1")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if ok {
			t.Error("expected session to be gone")
		}
	})

	t.Run("unknown session is not an error", func(t *testing.T) {
		_, ok, err := store.GetSession(ctx, "never-seen")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if ok {
			t.Error("expected unknown session to be absent")
		}
	})
}
