package agentloop

import (
	"encoding/json"
	"strings"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/modelregistry"
)

// rawToolCall is one accumulating tool-call slot, keyed by (runID, index)
// per §9's design note: "a map keyed by (run_id, index) with late
// binding of id".
type rawToolCall struct {
	runID    string
	index    int
	id       string
	name     string
	argsJSON strings.Builder
}

// ToolCallBuilder accumulates fragmentary streamed tool-call deltas
// into finalized calls. One builder is used per model-invocation turn
// (a turn may span several model calls as tool results are fed back).
type ToolCallBuilder struct {
	runID string
	slots map[int]*rawToolCall
	order []int // index order of first appearance, for stable finalization
}

// NewToolCallBuilder starts a builder for one run_id (one streaming
// model invocation).
func NewToolCallBuilder(runID string) *ToolCallBuilder {
	return &ToolCallBuilder{runID: runID, slots: make(map[int]*rawToolCall)}
}

// Add accumulates one streamed tool-call delta.
func (b *ToolCallBuilder) Add(d modelregistry.ToolCallDelta) {
	slot, ok := b.slots[d.Index]
	if !ok {
		slot = &rawToolCall{runID: b.runID, index: d.Index}
		b.slots[d.Index] = slot
		b.order = append(b.order, d.Index)
	}
	if d.ID != "" {
		slot.id = d.ID
	}
	if d.Name != "" {
		slot.name = d.Name
	}
	if d.ArgsFragment != "" {
		slot.argsJSON.WriteString(d.ArgsFragment)
	}
}

// Finalize is called when the model's finish reason is "tool_calls" or
// "stop" (§4.1 step 2). It parses each slot's accumulated JSON,
// defensively handling suspicious/corrupted payloads, and returns
// finalized ToolCalls in first-appearance order.
func (b *ToolCallBuilder) Finalize() []ToolCall {
	out := make([]ToolCall, 0, len(b.order))
	for _, idx := range b.order {
		slot := b.slots[idx]
		id := slot.id
		if id == "" {
			id = "tool_" + runIDIndex(b.runID, idx)
		}
		out = append(out, ToolCall{
			ID:   id,
			Name: slot.name,
			Args: parseToolArgs(slot.argsJSON.String()),
		})
	}
	return out
}

func runIDIndex(runID string, idx int) string {
	return runID + "-" + itoa(idx)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var b []byte
	for i > 0 {
		b = append([]byte{byte('0' + i%10)}, b...)
		i /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

// suspiciousKeys are top-level keys that indicate the streamed
// "arguments" payload is actually corrupted context leakage rather
// than tool arguments (§4.1's tool-call cleaning contract).
var suspiciousKeys = []string{"user_id", "session_id"}

// parseToolArgs ensures the finalized args value is always a JSON
// object. If the raw text parses cleanly as an object, it's used
// as-is. If it looks like non-JSON/corrupted content (a suspicious key
// present at top level of a failed parse, or no parse at all), it
// tries to carve out the first balanced JSON object prefix; failing
// that, it returns an empty object.
func parseToolArgs(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		return normalizeProviderArgs(obj)
	}

	if looksSuspicious(raw) {
		if prefix, ok := firstBalancedObject(raw); ok {
			var carved map[string]any
			if err := json.Unmarshal([]byte(prefix), &carved); err == nil {
				return normalizeProviderArgs(carved)
			}
		}
		return map[string]any{}
	}

	if prefix, ok := firstBalancedObject(raw); ok {
		var carved map[string]any
		if err := json.Unmarshal([]byte(prefix), &carved); err == nil {
			return normalizeProviderArgs(carved)
		}
	}
	return map[string]any{}
}

func looksSuspicious(raw string) bool {
	for _, k := range suspiciousKeys {
		if strings.Contains(raw, `"`+k+`"`) {
			return true
		}
	}
	return false
}

// firstBalancedObject scans raw for the first balanced { ... } span,
// respecting string literals so braces inside quoted values don't
// confuse the depth counter.
func firstBalancedObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

// normalizeProviderArgs applies the gcp command-prefix normalization
// rule: if args.provider == "gcp" and args.command does not already
// start with "gcloud", prepend "gcloud ".
func normalizeProviderArgs(args map[string]any) map[string]any {
	provider, _ := args["provider"].(string)
	if provider != "gcp" {
		return args
	}
	cmd, ok := args["command"].(string)
	if !ok {
		return args
	}
	if !strings.HasPrefix(strings.TrimSpace(cmd), "gcloud") {
		args["command"] = "gcloud " + cmd
	}
	return args
}

// CleanToolCalls implements §4.1's tool-call cleaning & deduplication
// contract over a finalized batch from one or more model invocations
// within a turn:
//   - dedupe by id, merging argument maps on collision;
//   - merge entries sharing an index when at least one lacks an id,
//     preferring a stable "run-" id over a placeholder "tool_" id.
func CleanToolCalls(calls []ToolCall) []ToolCall {
	byID := make(map[string]*ToolCall)
	order := make([]string, 0, len(calls))

	for i := range calls {
		c := calls[i]
		existing, ok := byID[c.ID]
		if !ok {
			cc := c
			byID[c.ID] = &cc
			order = append(order, c.ID)
			continue
		}
		mergeArgs(existing, &c)
	}

	// Merge placeholder/stable id pairs that share no id collision but
	// represent the same logical call (one had a "tool_" placeholder,
	// the other a "run-" stable id, both keyed by the same index —
	// callers that track index externally call MergeByIndex explicitly;
	// here we only resolve id-level collisions, which covers the common
	// re-streaming case where the same id appears twice).
	out := make([]ToolCall, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

// mergeArgs merges b's fields into a per the dict+dict / string+string /
// string+dict rules, preserving a's non-empty "command" over a
// differing non-empty command from b.
func mergeArgs(a *ToolCall, b *ToolCall) {
	if a.Name == "" {
		a.Name = b.Name
	}
	if a.Args == nil {
		a.Args = map[string]any{}
	}
	for k, bv := range b.Args {
		av, exists := a.Args[k]
		if !exists {
			a.Args[k] = bv
			continue
		}
		if k == "command" {
			as, aIsStr := av.(string)
			bs, bIsStr := bv.(string)
			if aIsStr && bIsStr && as != "" && bs != "" && as != bs {
				continue // preserve the earlier non-empty command
			}
		}
		a.Args[k] = mergeValue(av, bv)
	}
}

func mergeValue(a, b any) any {
	am, aIsMap := a.(map[string]any)
	bm, bIsMap := b.(map[string]any)
	if aIsMap && bIsMap {
		out := make(map[string]any, len(am)+len(bm))
		for k, v := range am {
			out[k] = v
		}
		for k, v := range bm {
			out[k] = v
		}
		return out
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return as + bs
	}
	if aIsMap && bIsStr {
		return am // dict wins the shape; string fragment dropped
	}
	if bIsMap && !aIsMap {
		return bm
	}
	return b
}

// MergeByIndex merges two tool-call lists that came from different
// streamed chunks sharing the same positional index but potentially
// different ids — one a "tool_" placeholder, one a "run-" stable id.
// When ids differ this way, the stable run id is kept as canonical.
func MergeByIndex(existing, incoming ToolCall) ToolCall {
	id := existing.ID
	switch {
	case strings.HasPrefix(existing.ID, "tool_") && strings.HasPrefix(incoming.ID, "run-"):
		id = incoming.ID
	case strings.HasPrefix(incoming.ID, "tool_") && strings.HasPrefix(existing.ID, "run-"):
		id = existing.ID
	case incoming.ID != "":
		id = incoming.ID
	}
	merged := existing
	merged.ID = id
	mergeArgs(&merged, &incoming)
	return merged
}
