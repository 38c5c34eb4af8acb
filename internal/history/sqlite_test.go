package history

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "prune-history.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := NewSQLiteStore(dbPath, logger)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecentInvocations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inv := &Invocation{
		SessionID:   "sess-1",
		Mode:        ModeKeepN,
		Timestamp:   time.Now(),
		LinesBefore: 100,
		LinesAfter:  40,
		BytesBefore: 5000,
		BytesAfter:  2000,
		Kept:        20,
		Dropped:     60,
	}
	if err := s.RecordInvocation(ctx, inv); err != nil {
		t.Fatalf("RecordInvocation failed: %v", err)
	}

	time.Sleep(700 * time.Millisecond)

	got, err := s.RecentInvocations(ctx, "sess-1", 10)
	if err != nil {
		t.Fatalf("RecentInvocations failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d invocations, want 1", len(got))
	}
	if got[0].Mode != ModeKeepN || got[0].LinesAfter != 40 {
		t.Errorf("unexpected invocation: %+v", got[0])
	}
}

func TestRecentInvocations_OrderedMostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s.RecordInvocation(ctx, &Invocation{
			SessionID:           "sess-1",
			Mode:                ModeBoundary,
			Timestamp:           time.Now(),
			BoundaryDescription: "commit",
		})
	}

	time.Sleep(700 * time.Millisecond)

	got, err := s.RecentInvocations(ctx, "sess-1", 10)
	if err != nil {
		t.Fatalf("RecentInvocations failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d invocations, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].ID < got[i].ID {
			t.Fatalf("expected descending id order, got %+v", got)
		}
	}
}

func TestStats_AggregatesBytesReclaimedAndRetention(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	invocations := []*Invocation{
		{SessionID: "s1", Mode: ModeKeepN, Timestamp: time.Now(), BytesBefore: 1000, BytesAfter: 500},
		{SessionID: "s2", Mode: ModeKeepN, Timestamp: time.Now(), BytesBefore: 1000, BytesAfter: 250},
	}
	for _, inv := range invocations {
		s.RecordInvocation(ctx, inv)
	}

	time.Sleep(700 * time.Millisecond)

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalPrunes != 2 {
		t.Errorf("total_prunes = %d, want 2", stats.TotalPrunes)
	}
	if stats.TotalBytesReclaimed != 1250 {
		t.Errorf("total_bytes_reclaimed = %d, want 1250", stats.TotalBytesReclaimed)
	}
	wantRetention := 100 * float64(750) / float64(2000)
	if stats.AverageRetentionPercent != wantRetention {
		t.Errorf("average_retention_percent = %f, want %f", stats.AverageRetentionPercent, wantRetention)
	}
}

func TestStats_NoInvocationsIsZeroValued(t *testing.T) {
	s := newTestStore(t)
	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalPrunes != 0 || stats.TotalBytesReclaimed != 0 || stats.AverageRetentionPercent != 0 {
		t.Errorf("expected zero-valued stats, got %+v", stats)
	}
}

func TestRecordMarkerAndPendingMarkers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := &MarkerRecord{SessionID: "sess-1", Timestamp: time.Now(), Intent: "feat: auth"}
	if err := s.RecordMarker(ctx, m); err != nil {
		t.Fatalf("RecordMarker failed: %v", err)
	}

	pending, err := s.PendingMarkers(ctx)
	if err != nil {
		t.Fatalf("PendingMarkers failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending markers, want 1", len(pending))
	}
	if pending[0].Intent != "feat: auth" || pending[0].Consumed {
		t.Errorf("unexpected marker: %+v", pending[0])
	}
}

func TestMarkConsumed_RemovesFromPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ts := time.Now()
	s.RecordMarker(ctx, &MarkerRecord{SessionID: "sess-1", Timestamp: ts})

	if err := s.MarkConsumed(ctx, "sess-1", ts.Add(time.Second)); err != nil {
		t.Fatalf("MarkConsumed failed: %v", err)
	}

	pending, err := s.PendingMarkers(ctx)
	if err != nil {
		t.Fatalf("PendingMarkers failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending markers after consuming, got %d", len(pending))
	}
}

func TestMarkConsumed_LeavesLaterMarkersPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	early := time.Now()
	late := early.Add(time.Hour)
	s.RecordMarker(ctx, &MarkerRecord{SessionID: "sess-1", Timestamp: early})
	s.RecordMarker(ctx, &MarkerRecord{SessionID: "sess-1", Timestamp: late})

	if err := s.MarkConsumed(ctx, "sess-1", early); err != nil {
		t.Fatalf("MarkConsumed failed: %v", err)
	}

	pending, err := s.PendingMarkers(ctx)
	if err != nil {
		t.Fatalf("PendingMarkers failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 still-pending marker, got %d", len(pending))
	}
}
