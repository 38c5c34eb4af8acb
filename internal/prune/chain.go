// Package prune implements the transcript pruning engine: a small,
// deterministic pipeline that rewrites a session transcript down to its
// logical tail without breaking tool-result/tool-invocation references.
package prune

// Stage transforms a full line list into a new line list. Unlike a
// single-message interceptor, a pruning stage sees (and may need to see)
// the whole transcript at once — the reference tracker's first pass has to
// scan every surviving line before its second pass can decide what to drop.
type Stage interface {
	Process(lines [][]byte) ([][]byte, error)
}

// StageFunc adapts a plain function to the Stage interface.
type StageFunc func(lines [][]byte) ([][]byte, error)

func (f StageFunc) Process(lines [][]byte) ([][]byte, error) {
	return f(lines)
}

// Chain runs stages in order, feeding each stage's output to the next.
// This mirrors the proxy-style interceptor chain the rest of this
// repository's ancestry uses, generalized from "one message in, one
// message out" to "one transcript in, one transcript out" since pruning
// stages are not independent of each other's output length.
type Chain struct {
	stages []Stage
}

// NewChain builds a Chain from an ordered list of stages.
func NewChain(stages ...Stage) *Chain {
	return &Chain{stages: stages}
}

// Run executes every stage in sequence, returning the final line list.
func (c *Chain) Run(lines [][]byte) ([][]byte, error) {
	cur := lines
	for _, s := range c.stages {
		next, err := s.Process(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
