// Package hook implements the boundary-marking appender that shell hooks
// and editor plugins call at meaningful milestones. It is a pure producer:
// it never reads or mutates the rest of the transcript, and never invokes
// the pruner.
package hook

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/transcriptprune/transcriptprune/internal/history"
)

// Mark appends a boundary marker line to the transcript at path and
// records it in the history store. The marker line has the form
// "===INTENT_BOUNDARY=== <RFC3339 timestamp>[ | <intent>]".
func Mark(ctx context.Context, store history.Store, sessionID, transcriptPath, intent string) error {
	now := time.Now()

	line := markerLine(now, intent)

	f, err := os.OpenFile(transcriptPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript %q: %w", transcriptPath, err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append marker to %q: %w", transcriptPath, err)
	}

	if store != nil {
		if err := store.RecordMarker(ctx, &history.MarkerRecord{
			SessionID: sessionID,
			Timestamp: now,
			Intent:    intent,
		}); err != nil {
			return fmt.Errorf("record marker: %w", err)
		}
	}

	return nil
}

func markerLine(ts time.Time, intent string) string {
	line := "===INTENT_BOUNDARY=== " + ts.Format(time.RFC3339)
	if intent != "" {
		line += " | " + intent
	}
	return line
}
