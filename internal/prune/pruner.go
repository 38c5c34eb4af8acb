package prune

import (
	"encoding/json"

	"github.com/transcriptprune/transcriptprune/internal/transcript"
)

// Report summarizes the outcome of a prune invocation.
type Report struct {
	Kept           int
	Dropped        int
	AssistantCount int // only populated by KeepByAssistantCount
}

// KeepByAssistantCount keeps everything from the keepN-th-to-last
// assistant turn onward (plus the head). Negative keepN is clamped to
// zero. If there are fewer than keepN assistant turns, nothing is cut.
func KeepByAssistantCount(lines [][]byte, keepN int) ([][]byte, Report) {
	if keepN < 0 {
		keepN = 0
	}

	assistantIdx := assistantIndices(lines)
	a := len(assistantIdx)

	// cut defaults to 1 (keep everything after the head) whenever there
	// aren't more than keepN assistant turns to trim from. Otherwise the
	// first surviving assistant is the keepN-th-to-last one: for
	// keepN >= 1 that's assistantIdx[a-keepN]. keepN == 0 has no natural
	// "0th-to-last" turn, so the cut falls back to the very first
	// assistant rather than one past the end of the index list.
	cut := 1
	switch {
	case a <= keepN:
		cut = 1
	case keepN == 0:
		cut = assistantIdx[0]
	default:
		cut = assistantIdx[a-keepN]
	}

	out, report := run(lines, cut)
	report.AssistantCount = a
	return out, report
}

// KeepFromBoundary keeps everything from line b onward (plus the head).
// b <= 0 behaves as 1 (keep everything after the head); b beyond the last
// line drops every message record after the head.
func KeepFromBoundary(lines [][]byte, b int) ([][]byte, Report) {
	cut := b
	if cut < 1 {
		cut = 1
	}
	return run(lines, cut)
}

func run(lines [][]byte, cut int) ([][]byte, Report) {
	rewrite := UsageRewriteStage{}
	filter := NewReferenceFilterStage(cut)
	chain := NewChain(rewrite, filter)

	out, err := chain.Run(lines)
	if err != nil {
		// Neither stage returns an error in practice (both are total over
		// any input); return the input unchanged with a zero report rather
		// than panic if that ever changes.
		return lines, Report{}
	}

	return out, Report{Kept: filter.Kept, Dropped: filter.Dropped}
}

// assistantIndices returns the indices (excluding index 0) of every line
// that parses as an assistant record, in ascending order.
func assistantIndices(lines [][]byte) []int {
	var idx []int
	for i := 1; i < len(lines); i++ {
		var rec transcript.Record
		if err := json.Unmarshal(lines[i], &rec); err != nil {
			continue
		}
		if rec.Type == string(transcript.KindAssistant) {
			idx = append(idx, i)
		}
	}
	return idx
}
