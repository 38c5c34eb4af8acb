package history

import "time"

// Mode distinguishes how a prune invocation chose its cut point.
type Mode string

const (
	ModeKeepN    Mode = "keep-n"
	ModeBoundary Mode = "boundary"
)

// Invocation is one row recorded per prune run.
type Invocation struct {
	ID                  int64     `json:"id"`
	SessionID           string    `json:"session_id"`
	Mode                Mode      `json:"mode"`
	Timestamp           time.Time `json:"timestamp"`
	LinesBefore         int       `json:"lines_before"`
	LinesAfter          int       `json:"lines_after"`
	BytesBefore         int64     `json:"bytes_before"`
	BytesAfter          int64     `json:"bytes_after"`
	Kept                int       `json:"kept"`
	Dropped             int       `json:"dropped"`
	BoundaryDescription string    `json:"boundary_description,omitempty"`
}

// Stats holds aggregate prune-history statistics across a project.
type Stats struct {
	TotalPrunes             int     `json:"total_prunes"`
	TotalBytesReclaimed     int64   `json:"total_bytes_reclaimed"`
	AverageRetentionPercent float64 `json:"average_retention_percent"`
}

// MarkerRecord is a boundary marker persisted by the hook subsystem.
type MarkerRecord struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Intent    string    `json:"intent,omitempty"`
	Consumed  bool      `json:"consumed"`
}
