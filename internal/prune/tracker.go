package prune

import (
	"encoding/json"

	"github.com/transcriptprune/transcriptprune/internal/transcript"
)

// ReferenceFilterStage applies the cut at Cut and drops any tool_result
// whose tool_use_id doesn't survive. It is two-pass: Process first
// collects every invocation id contributed by a surviving message or
// tool-call record, then filters.
//
// After Process runs, Kept and Dropped report message-record counts for
// the cut that was applied (kept: index >= Cut; dropped: index < Cut,
// excluding the head at index 0).
type ReferenceFilterStage struct {
	Cut int

	Kept    int
	Dropped int
}

// NewReferenceFilterStage builds a stage that keeps the head (index 0)
// unconditionally and cuts at the given line index. Cut is clamped to at
// least 1 so the head is never itself subject to cut-based filtering.
func NewReferenceFilterStage(cut int) *ReferenceFilterStage {
	if cut < 1 {
		cut = 1
	}
	return &ReferenceFilterStage{Cut: cut}
}

func (s *ReferenceFilterStage) Process(lines [][]byte) ([][]byte, error) {
	surviving := survivingToolUseIDs(lines, s.Cut)

	var out [][]byte
	if len(lines) > 0 {
		out = append(out, lines[0])
	}

	for i := 1; i < len(lines); i++ {
		raw := lines[i]
		line := transcript.Classify(raw)

		if i < s.Cut {
			if line.Parsed && line.Kind.IsMessage() {
				s.Dropped++
			}
			continue
		}

		if line.Parsed && line.Kind.IsMessage() {
			out = append(out, raw)
			s.Kept++
			continue
		}

		if line.Parsed && line.Kind == transcript.KindToolResult {
			if _, ok := surviving[line.Record.ToolUseID]; ok {
				out = append(out, raw)
			}
			continue
		}

		// Other parseable records, and opaque lines, are kept verbatim.
		out = append(out, raw)
	}

	return out, nil
}

// survivingToolUseIDs implements pass 1: every tool_use id contributed by
// an assistant record's content array, or by a top-level tool_call record's
// own identifier, at or after cut.
func survivingToolUseIDs(lines [][]byte, cut int) map[string]struct{} {
	ids := make(map[string]struct{})
	for i := cut; i < len(lines); i++ {
		raw := lines[i]
		var rec transcript.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if rec.Type == string(transcript.KindAssistant) {
			line := transcript.Classify(raw)
			for _, id := range line.ToolIDs {
				ids[id] = struct{}{}
			}
		}
		if rec.Type == string(transcript.KindToolCall) && rec.ID != "" {
			ids[rec.ID] = struct{}{}
		}
	}
	return ids
}
