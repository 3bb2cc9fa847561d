package agentloop

import (
	"encoding/json"
	"strings"
)

// placeholderTokens are substrings that, when present in an assistant
// message, indicate the model echoed a template/example value instead
// of a resolved one (§4.1 "Placeholder detection").
var placeholderTokens = []string{
	"<project", "project-id", "your-project", "replace", "todo",
	"subscription id", "subscription-id", "account id",
}

// ContainsPlaceholder reports whether any assistant message in
// messages appears to contain an unresolved placeholder token.
func ContainsPlaceholder(messages []Message) bool {
	for _, m := range messages {
		if m.Role != "assistant" {
			continue
		}
		lowered := strings.ToLower(m.Content)
		for _, tok := range placeholderTokens {
			if strings.Contains(lowered, tok) {
				return true
			}
		}
	}
	return false
}

// toolResultPayload is the subset of a tool_result message's JSON body
// consulted when deduplicating/extracting failures.
type toolResultPayload struct {
	Status       any    `json:"status"`
	Success      any    `json:"success"`
	ToolName     string `json:"tool_name"`
	Message      string `json:"message"`
	Error        string `json:"error"`
	FinalCommand string `json:"final_command"`
	Command      string `json:"command"`
}

// ExtractLastToolFailure scans messages (oldest first) for tool
// results representing a failure and returns a human-readable summary
// of the most recent one, or "" if none failed.
func ExtractLastToolFailure(messages []Message) string {
	var lastFailure string
	for _, m := range messages {
		if m.Role != "tool" {
			continue
		}
		var payload toolResultPayload
		if err := json.Unmarshal([]byte(m.Content), &payload); err != nil {
			continue
		}
		if !isFailureStatus(payload.Status) && !isFailureStatus(payload.Success) {
			continue
		}
		name := payload.ToolName
		if name == "" {
			name = "tool"
		}
		msg := payload.Message
		if msg == "" {
			msg = payload.Error
		}
		cmd := payload.FinalCommand
		if cmd == "" {
			cmd = payload.Command
		}
		lastFailure = name + ": " + msg
		if cmd != "" {
			lastFailure += " (" + cmd + ")"
		}
	}
	return lastFailure
}

func isFailureStatus(v any) bool {
	switch t := v.(type) {
	case bool:
		return t == false
	case string:
		return t == "failed" || t == "error"
	default:
		return false
	}
}

// ConsolidateTurn implements §4.1's end-of-turn message consolidation:
// three-tier dedup (assistant by id/content-signature, tool results by
// tool_call_id+command-or-id, everything else by type/content[/timestamp]),
// preserving first-seen order.
func ConsolidateTurn(messages []Message) []Message {
	final := make([]Message, 0, len(messages))

	seenAssistantByID := map[string]int{} // id -> index in final
	seenAssistantContent := map[string]bool{}
	type toolKey struct{ callID, unique string }
	seenTool := map[toolKey]bool{}
	seenOther := map[string]bool{}

	for _, m := range messages {
		switch m.Role {
		case "assistant":
			hasContent := strings.TrimSpace(m.Content) != ""
			hasToolCalls := len(m.ToolCalls) > 0

			if m.ID != "" {
				if idx, ok := seenAssistantByID[m.ID]; ok {
					_ = idx
					continue // exact duplicate id already kept
				}
			}

			if hasToolCalls {
				currentIDs := map[string]bool{}
				for _, tc := range m.ToolCalls {
					currentIDs[tc.ID] = true
				}
				// Drop any earlier kept assistant message whose tool
				// call ids overlap this one's — the later message is
				// the more complete accumulation of the same turn.
				filtered := final[:0:0]
				for _, kept := range final {
					if kept.Role == "assistant" && len(kept.ToolCalls) > 0 && overlaps(kept.ToolCalls, currentIDs) {
						continue
					}
					filtered = append(filtered, kept)
				}
				final = filtered
			} else if hasContent {
				sig := strings.TrimSpace(m.Content)
				if seenAssistantContent[sig] {
					continue
				}
				seenAssistantContent[sig] = true
			}

			if !hasContent && !hasToolCalls {
				continue
			}
			final = append(final, m)
			if m.ID != "" {
				seenAssistantByID[m.ID] = len(final) - 1
			}

		case "tool":
			var payload toolResultPayload
			_ = json.Unmarshal([]byte(m.Content), &payload)
			unique := payload.FinalCommand
			if unique == "" {
				unique = m.ID
			}
			key := toolKey{callID: m.ToolCallID, unique: unique}
			if m.ToolCallID != "" && unique != "" {
				if seenTool[key] {
					continue
				}
				seenTool[key] = true
			}
			final = append(final, m)

		default:
			sig := m.Role + ":" + m.Content
			if m.Timestamp != 0 {
				sig += ":" + formatTimestamp(m.Timestamp)
			}
			if seenOther[sig] {
				continue
			}
			seenOther[sig] = true
			final = append(final, m)
		}
	}

	return final
}

func overlaps(calls []ToolCall, ids map[string]bool) bool {
	for _, tc := range calls {
		if ids[tc.ID] {
			return true
		}
	}
	return false
}

func formatTimestamp(ts int64) string {
	return itoa(int(ts))
}
