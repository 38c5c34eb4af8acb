package history

import (
	"context"
	"time"
)

// Store is the persistence interface for prune-history tracking.
type Store interface {
	// RecordInvocation persists a prune invocation asynchronously (buffered).
	RecordInvocation(ctx context.Context, inv *Invocation) error

	// RecentInvocations returns recent invocations for a session, most
	// recent first. An empty sessionID returns invocations across every
	// session in the project.
	RecentInvocations(ctx context.Context, sessionID string, limit int) ([]Invocation, error)

	// Stats computes aggregate statistics across the project's history.
	Stats(ctx context.Context) (*Stats, error)

	// RecordMarker persists a boundary marker appended by the hook.
	RecordMarker(ctx context.Context, m *MarkerRecord) error

	// PendingMarkers returns unconsumed boundary markers, most recent first.
	PendingMarkers(ctx context.Context) ([]MarkerRecord, error)

	// MarkConsumed flags a session's markers at or before upTo as consumed.
	MarkConsumed(ctx context.Context, sessionID string, upTo time.Time) error

	// Close flushes pending writes and closes the store.
	Close() error
}
