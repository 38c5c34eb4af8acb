// Package transcript parses the lines of a Claude Code session transcript.
//
// Each line of a transcript is either a single JSON object (a record) or
// arbitrary non-JSON text (a diagnostic line, kept verbatim). Parsing is
// always best-effort: a line that fails to parse is never fatal, it is
// simply opaque to everything downstream that depends on record structure.
package transcript

import (
	"encoding/json"
)

// Kind classifies a parsed record by its "type" field.
type Kind string

const (
	KindUser         Kind = "user"
	KindAssistant    Kind = "assistant"
	KindSystem       Kind = "system"
	KindToolCall     Kind = "tool_call"
	KindToolResult   Kind = "tool_result"
	KindOther        Kind = ""
)

// IsMessage reports whether k is one of the three conversational roles.
func (k Kind) IsMessage() bool {
	return k == KindUser || k == KindAssistant || k == KindSystem
}

// ContentItem is one element of an assistant record's "content" array.
type ContentItem struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Text string `json:"text,omitempty"`
}

// Record is a minimal, best-effort parse of one transcript line.
//
// Only the fields the classifier and boundary analyzer need are decoded;
// any other field is ignored. Content is kept as raw JSON because its shape
// varies. Record is never re-serialized: the usage-counter rewriter
// (ZeroCacheReadTokens) works on a generic map so other fields survive.
type Record struct {
	Type      string          `json:"type"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Parameters struct {
		Command string `json:"command,omitempty"`
	} `json:"parameters,omitempty"`
}

// Line is one line of a transcript: its raw bytes, whether it parsed as
// JSON, and (if so) its classification.
type Line struct {
	Raw      []byte
	Parsed   bool
	Kind     Kind
	Record   Record
	ToolIDs  []string // tool_use ids contributed by an assistant's content array
}

// Classify parses a single transcript line. Parsing never fails loudly:
// a line that isn't a JSON object comes back with Parsed=false and the
// original bytes intact.
func Classify(raw []byte) Line {
	line := Line{Raw: raw}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return line
	}
	line.Parsed = true
	line.Kind = Kind(rec.Type)
	line.Record = rec

	if line.Kind == KindAssistant {
		line.ToolIDs = extractToolUseIDs(raw)
	}
	return line
}

// extractToolUseIDs pulls every content[].id where content[].type=="tool_use"
// out of an assistant record. Absent or malformed "content" is not an error;
// it simply yields no ids.
func extractToolUseIDs(raw []byte) []string {
	var wrapper struct {
		Content []ContentItem `json:"content"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil
	}
	var ids []string
	for _, item := range wrapper.Content {
		if item.Type == "tool_use" && item.ID != "" {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// CacheReadTokens returns the value at usage.cache_read_input_tokens or
// message.usage.cache_read_input_tokens, and whether it was present and
// strictly positive. Neither nesting is required to exist.
func CacheReadTokens(raw []byte) (int64, bool) {
	var direct struct {
		Usage struct {
			CacheReadInputTokens *int64 `json:"cache_read_input_tokens"`
		} `json:"usage"`
		Message struct {
			Usage struct {
				CacheReadInputTokens *int64 `json:"cache_read_input_tokens"`
			} `json:"usage"`
		} `json:"message"`
	}
	if err := json.Unmarshal(raw, &direct); err != nil {
		return 0, false
	}
	if direct.Usage.CacheReadInputTokens != nil && *direct.Usage.CacheReadInputTokens > 0 {
		return *direct.Usage.CacheReadInputTokens, true
	}
	if direct.Message.Usage.CacheReadInputTokens != nil && *direct.Message.Usage.CacheReadInputTokens > 0 {
		return *direct.Message.Usage.CacheReadInputTokens, true
	}
	return 0, false
}

// ZeroCacheReadTokens re-serializes raw with whichever nested
// cache_read_input_tokens field is positive forced to 0. It tries the
// top-level usage object first, then message.usage, matching the priority
// used by CacheReadTokens. The result is not guaranteed to preserve key
// order, only semantic equivalence.
func ZeroCacheReadTokens(raw []byte) ([]byte, error) {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	if usageRaw, ok := generic["usage"]; ok {
		if zeroed, changed, err := zeroInUsageObject(usageRaw); err == nil && changed {
			generic["usage"] = zeroed
			return json.Marshal(generic)
		}
	}

	if msgRaw, ok := generic["message"]; ok {
		var msgGeneric map[string]json.RawMessage
		if err := json.Unmarshal(msgRaw, &msgGeneric); err == nil {
			if usageRaw, ok := msgGeneric["usage"]; ok {
				if zeroed, changed, err := zeroInUsageObject(usageRaw); err == nil && changed {
					msgGeneric["usage"] = zeroed
					newMsg, err := json.Marshal(msgGeneric)
					if err == nil {
						generic["message"] = newMsg
						return json.Marshal(generic)
					}
				}
			}
		}
	}

	return raw, nil
}

func zeroInUsageObject(usageRaw json.RawMessage) (json.RawMessage, bool, error) {
	var usage map[string]json.RawMessage
	if err := json.Unmarshal(usageRaw, &usage); err != nil {
		return nil, false, err
	}
	val, ok := usage["cache_read_input_tokens"]
	if !ok {
		return nil, false, nil
	}
	var n int64
	if err := json.Unmarshal(val, &n); err != nil || n <= 0 {
		return nil, false, nil
	}
	usage["cache_read_input_tokens"] = json.RawMessage("0")
	out, err := json.Marshal(usage)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
