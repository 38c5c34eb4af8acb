// Package boundary scans a transcript for candidate cut-points: explicit
// "===INTENT_BOUNDARY===" markers left by the hook subsystem, and derived
// boundaries inferred from a successful `git commit` run through a bash
// tool call.
package boundary

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/transcriptprune/transcriptprune/internal/transcript"
)

// Kind distinguishes how a boundary was discovered.
type Kind string

const (
	KindExplicitMarker Kind = "explicit-marker"
	KindDerivedCommit  Kind = "derived-commit"
)

// Boundary is a candidate cut-point in a transcript.
type Boundary struct {
	LineNumber          int
	Kind                Kind
	Description         string
	Timestamp           string
	Intent              string
	RetentionPercentage int
	CharacterCount      int64
}

const defaultMarkerToken = "===INTENT_BOUNDARY==="

var defaultCommitCommandPattern = regexp.MustCompile(`git commit -m ["']([^"']+)["']`)

// defaultCommitSubstrings are searched for in a tool_result's content to
// infer that a `git commit` succeeded.
var defaultCommitSubstrings = []string{"files changed", "insertions", "deletions"}

// Options customizes what the analyzer treats as a derived-commit boundary.
// The zero value is not directly usable; call DefaultOptions and override
// fields as needed (this is how a project's retention policy config adds
// its own commit-like tool names or success substrings).
type Options struct {
	MarkerToken          string
	CommitToolNames      []string
	CommitSubstrings     []string
	CommitCommandPattern *regexp.Regexp
}

// DefaultOptions reproduces the analyzer's built-in behavior: the
// "===INTENT_BOUNDARY===" marker token, bash as the only commit-bearing
// tool, and the three success substrings from the spec.
func DefaultOptions() Options {
	return Options{
		MarkerToken:          defaultMarkerToken,
		CommitToolNames:      []string{"bash"},
		CommitSubstrings:     append([]string{}, defaultCommitSubstrings...),
		CommitCommandPattern: defaultCommitCommandPattern,
	}
}

// Analyze scans lines for boundaries using the default options, and
// returns them ordered by strictly descending line number, along with the
// total byte count (every line's length plus one separator newline between
// consecutive lines) used for retention-percentage math.
func Analyze(lines [][]byte) ([]Boundary, int64) {
	return AnalyzeWithOptions(lines, DefaultOptions())
}

// AnalyzeWithOptions is Analyze with a caller-supplied, possibly
// policy-extended, Options value.
func AnalyzeWithOptions(lines [][]byte, opts Options) ([]Boundary, int64) {
	offsets := byteOffsets(lines)
	// offsets[n] counts a separator after every line including the last;
	// the transcript itself only has n-1 separators between n lines.
	byteTotal := offsets[len(lines)]
	if len(lines) > 0 {
		byteTotal--
	}

	var found []Boundary
	for i, raw := range lines {
		if b, ok := explicitMarker(raw, opts); ok {
			b.LineNumber = i
			found = append(found, b)
			continue
		}
		if b, ok := derivedCommit(lines, i, opts); ok {
			b.LineNumber = i
			found = append(found, b)
		}
	}

	for i := range found {
		applyRetention(&found[i], offsets, byteTotal)
	}

	sortDescending(found)
	return found, byteTotal
}

// byteOffsets computes offset[i] = sum of len(lines[0..i)) + i newlines,
// so offset[i+1] = offset[i] + len(lines[i]) + 1.
func byteOffsets(lines [][]byte) []int64 {
	offsets := make([]int64, len(lines)+1)
	for i, l := range lines {
		offsets[i+1] = offsets[i] + int64(len(l)) + 1
	}
	return offsets
}

func applyRetention(b *Boundary, offsets []int64, byteTotal int64) {
	if byteTotal == 0 {
		b.RetentionPercentage = 0
		b.CharacterCount = 0
		return
	}
	retained := byteTotal - offsets[b.LineNumber]
	b.CharacterCount = retained
	b.RetentionPercentage = int(math.Round(100 * float64(retained) / float64(byteTotal)))
}

func sortDescending(boundaries []Boundary) {
	for i := 1; i < len(boundaries); i++ {
		for j := i; j > 0 && boundaries[j-1].LineNumber < boundaries[j].LineNumber; j-- {
			boundaries[j-1], boundaries[j] = boundaries[j], boundaries[j-1]
		}
	}
}

// explicitMarker detects the "===INTENT_BOUNDARY===" substring on a raw
// line, regardless of whether the line is JSON or plain text. The marker
// itself may live inside a JSON string value (an assistant's text content,
// for instance) — detection operates on raw bytes for this reason.
func explicitMarker(raw []byte, opts Options) (Boundary, bool) {
	s := string(raw)
	idx := strings.Index(s, opts.MarkerToken)
	if idx < 0 {
		return Boundary{}, false
	}

	rest := strings.TrimSpace(s[idx+len(opts.MarkerToken):])
	// The remainder may continue inside a JSON string (trailing quote,
	// closing braces, etc); stop at the first control character a text
	// editor wouldn't put in a timestamp/intent pair.
	if end := strings.IndexAny(rest, "\"\n\\"); end >= 0 {
		rest = strings.TrimSpace(rest[:end])
	}

	timestamp := rest
	intent := ""
	description := "Boundary marker"
	if pipe := strings.Index(rest, "|"); pipe >= 0 {
		timestamp = strings.TrimSpace(rest[:pipe])
		intent = strings.TrimSpace(rest[pipe+1:])
		if intent != "" {
			description = intent
		}
	}

	return Boundary{
		Kind:        KindExplicitMarker,
		Description: description,
		Timestamp:   timestamp,
		Intent:      intent,
	}, true
}

// derivedCommit recognizes a tool_result from a bash invocation whose
// content looks like the output of a successful `git commit`.
func derivedCommit(lines [][]byte, i int, opts Options) (Boundary, bool) {
	var rec transcript.Record
	if err := json.Unmarshal(lines[i], &rec); err != nil {
		return Boundary{}, false
	}
	if rec.Type != "tool_result" || !isCommitTool(rec.Name, opts.CommitToolNames) {
		return Boundary{}, false
	}

	content := contentString(rec.Content)
	if !containsAny(content, opts.CommitSubstrings) {
		return Boundary{}, false
	}

	description := "Successful commit"
	if msg, ok := findCommitMessage(lines, i, opts); ok {
		description = "Git commit: " + msg
	}

	return Boundary{
		Kind:        KindDerivedCommit,
		Description: description,
	}, true
}

// findCommitMessage walks backward from i for the nearest tool_call record
// invoking a commit-bearing tool with a `git commit -m "..."` (or '...')
// command.
func findCommitMessage(lines [][]byte, i int, opts Options) (string, bool) {
	for j := i - 1; j >= 0; j-- {
		var rec transcript.Record
		if err := json.Unmarshal(lines[j], &rec); err != nil {
			continue
		}
		if rec.Type != "tool_call" || !isCommitTool(rec.Name, opts.CommitToolNames) {
			continue
		}
		m := opts.CommitCommandPattern.FindStringSubmatch(rec.Parameters.Command)
		if m == nil {
			continue
		}
		return m[1], true
	}
	return "", false
}

func isCommitTool(name string, toolNames []string) bool {
	for _, n := range toolNames {
		if name == n {
			return true
		}
	}
	return false
}

// contentString extracts a plain string out of a tool_result's "content"
// field, which may be a bare JSON string or an array of content blocks
// each carrying a "text" field.
func contentString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var blocks []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var sb strings.Builder
		for _, b := range blocks {
			sb.WriteString(b.Text)
		}
		return sb.String()
	}

	return string(raw)
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
