package agentloop

import (
	"context"
	"strings"
	"time"
)

const (
	cancelPollInterval = 500 * time.Millisecond
	cancelMaxWait      = 30 * time.Second
)

// urgentCancellationText is appended to persisted context (never the UI
// projection — see ToUIMessages) so the next turn's model call sees an
// explicit instruction that the prior turn was aborted mid-flight.
const urgentCancellationText = "[URGENT CANCELLATION] The user cancelled this operation. " +
	"Stop any further tool use and summarize what was completed before cancellation."

// InFlightTracker reports which tool_call ids are still running, so
// AwaitCancellation knows when it is safe to stop waiting.
type InFlightTracker interface {
	RunningToolCallIDs() []string
}

// AwaitCancellation implements §4.1's cancellation contract: poll
// InFlightTracker every 500ms for up to 30s for in-flight tool calls to
// finish, so their results land in persisted context before the turn
// is torn down. It returns as soon as no tracked call is still running,
// or when ctx is done, whichever comes first.
func AwaitCancellation(ctx context.Context, tracker InFlightTracker) {
	if tracker == nil {
		return
	}
	initial := tracker.RunningToolCallIDs()
	if len(initial) == 0 {
		return
	}

	deadline := time.Now().Add(cancelMaxWait)
	ticker := time.NewTicker(cancelPollInterval)
	defer ticker.Stop()

	pending := make(map[string]bool, len(initial))
	for _, id := range initial {
		pending[id] = true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			still := tracker.RunningToolCallIDs()
			stillSet := make(map[string]bool, len(still))
			for _, id := range still {
				stillSet[id] = true
			}
			anyPending := false
			for id := range pending {
				if stillSet[id] {
					anyPending = true
					break
				}
			}
			if !anyPending {
				return
			}
			if time.Now().After(deadline) {
				return
			}
		}
	}
}

// AppendCancellationNotice appends the synthetic cancellation message
// to persisted context. Callers must exclude it from any UI projection
// of the conversation (see ToUIMessages).
func AppendCancellationNotice(messages []Message, now int64) []Message {
	return append(messages, Message{
		Role:      "user",
		Content:   urgentCancellationText,
		Timestamp: now,
	})
}

// ToUIMessages filters a persisted message list down to what the
// frontend should render: system messages and the synthetic
// cancellation notice are both excluded.
func ToUIMessages(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			continue
		}
		if m.Role == "user" && containsCancellationNotice(m.Content) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func containsCancellationNotice(content string) bool {
	return strings.Contains(content, "[URGENT CANCELLATION]")
}
