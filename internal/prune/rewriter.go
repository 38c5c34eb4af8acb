package prune

import "github.com/transcriptprune/transcriptprune/internal/transcript"

// UsageRewriteStage finds the last cache-bearing record in the entire
// input (not just the surviving portion) and zeroes its
// cache_read_input_tokens field. The downstream consumer derives a
// progress indicator from the last positive value; zeroing exactly that
// value suppresses the indicator without invalidating earlier history.
//
// This stage always runs before any cut is applied: if the last
// cache-bearing record happens to fall before the cut, it is rewritten
// here and then dropped by the reference filter, leaving no zeroed record
// in the output at all. That is intentional.
type UsageRewriteStage struct{}

func (UsageRewriteStage) Process(lines [][]byte) ([][]byte, error) {
	target := -1
	for i, raw := range lines {
		if _, ok := transcript.CacheReadTokens(raw); ok {
			target = i
		}
	}
	if target < 0 {
		return lines, nil
	}

	rewritten, err := transcript.ZeroCacheReadTokens(lines[target])
	if err != nil {
		// Parse succeeded once already (CacheReadTokens found a field);
		// a failure here would mean a race on shared state, not bad
		// input. Leave the line untouched rather than fail the run.
		return lines, nil
	}

	out := make([][]byte, len(lines))
	copy(out, lines)
	out[target] = rewritten
	return out, nil
}
