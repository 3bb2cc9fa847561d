package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/confirm"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/modelregistry"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/toolcatalog"
)

// Persistence is the subset of incremental-persistence operations the
// Engine needs after each turn (§4.1 "Incremental persistence" — every
// tool result and assistant message is durable before the next model
// call, so a crash mid-turn loses at most the in-flight model call).
type Persistence interface {
	SaveContext(ctx context.Context, sessionID string, messages []Message, uiMessages []Message) error
}

// Engine runs the Agent Workflow Engine's streaming loop: one or more
// model invocations interleaved with tool execution, bounded by a
// maximum number of tool round-trips per turn.
type Engine struct {
	Registry    *modelregistry.Registry
	Catalog     *toolcatalog.Catalog
	Confirm     *confirm.Broker
	Publisher   confirm.Publisher
	Persist     Persistence
	MaxToolHops int // 0 means DefaultMaxToolHops
}

// DefaultMaxToolHops bounds how many tool-call round-trips a single
// turn may take before the Engine forces a final answer, preventing a
// runaway tool-use loop from never terminating (§4.1 step 2).
const DefaultMaxToolHops = 15

// runningTracker implements InFlightTracker over a turn's live tool
// goroutines, for use by AwaitCancellation during a cancelled run.
type runningTracker struct {
	mu      sync.Mutex
	running map[string]bool
}

func newRunningTracker() *runningTracker {
	return &runningTracker{running: make(map[string]bool)}
}

func (r *runningTracker) start(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running[id] = true
}

func (r *runningTracker) finish(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, id)
}

func (r *runningTracker) RunningToolCallIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.running))
	for id := range r.running {
		out = append(out, id)
	}
	return out
}

// Run executes one full turn, emitting Events on the returned channel
// as they occur. The channel is closed (after a terminal status(END)
// event) when the turn completes, is cancelled, or hits MaxToolHops.
func (e *Engine) Run(ctx context.Context, st *State) <-chan Event {
	out := make(chan Event, 16)
	go e.run(ctx, st, out)
	return out
}

func (e *Engine) run(ctx context.Context, st *State, out chan<- Event) {
	defer close(out)

	maxHops := e.MaxToolHops
	if maxHops <= 0 {
		maxHops = DefaultMaxToolHops
	}

	if st.PlaceholderWarning {
		st.Messages = append(st.Messages, Message{
			Role: "system",
			Content: "The previous turn contained unresolved placeholder values " +
				"(e.g. <project-id>). Resolve real identifiers via tool calls before answering.",
		})
	}
	if st.LastToolFailure != "" {
		st.Messages = append(st.Messages, Message{
			Role:    "system",
			Content: fmt.Sprintf("The previous tool call failed: %s. Consider an alternate approach.", st.LastToolFailure),
		})
	}

	providerMode := st.ProviderMode
	if providerMode == "" {
		providerMode = "auto"
	}
	provider, nativeModel, err := e.Registry.Select(st.Model, providerMode)
	if err != nil {
		e.emit(ctx, out, Event{Type: EventMessage, Text: err.Error(), Timestamp: now()})
		e.emit(ctx, out, Event{Type: EventStatus, Status: StatusEnd, Timestamp: now()})
		return
	}

	chatModel, err := provider.CreateChatModel(ctx, nativeModel, 0.2)
	if err != nil {
		e.emit(ctx, out, Event{Type: EventMessage, Text: err.Error(), Timestamp: now()})
		e.emit(ctx, out, Event{Type: EventStatus, Status: StatusEnd, Timestamp: now()})
		return
	}

	tracker := newRunningTracker()

	for hop := 0; hop < maxHops; hop++ {
		if ctx.Err() != nil {
			e.awaitAndFinish(ctx, st, tracker, out)
			return
		}

		runID := fmt.Sprintf("run-%d-%d", time.Now().UnixNano(), hop)
		builder := NewToolCallBuilder(runID)

		chunks, err := chatModel.Stream(ctx, toProviderMessages(st.Messages), toolSpecs(e.Catalog))
		if err != nil {
			e.emit(ctx, out, Event{Type: EventMessage, Text: err.Error(), Timestamp: now()})
			break
		}

		var assistantText string
		finishReason := ""

		for chunk := range chunks {
			if chunk.Err != nil {
				e.emit(ctx, out, Event{Type: EventMessage, Text: chunk.Err.Error(), Timestamp: now()})
				continue
			}
			if chunk.Text != "" {
				assistantText += chunk.Text
				e.emit(ctx, out, Event{Type: EventToken, Text: chunk.Text, Timestamp: now()})
			}
			for _, d := range chunk.ToolCalls {
				builder.Add(d)
			}
			if chunk.FinishReason != "" {
				finishReason = chunk.FinishReason
			}
		}

		calls := CleanToolCalls(builder.Finalize())

		assistantMsg := Message{
			ID:        runID,
			Role:      "assistant",
			Content:   assistantText,
			ToolCalls: calls,
			Timestamp: now(),
		}
		st.Messages = append(st.Messages, assistantMsg)

		if len(calls) == 0 || finishReason == "stop" {
			e.emit(ctx, out, Event{Type: EventMessage, Text: assistantText, Timestamp: now()})
			break
		}

		for _, call := range calls {
			if ctx.Err() != nil {
				e.awaitAndFinish(ctx, st, tracker, out)
				return
			}
			tracker.start(call.ID)
			e.emit(ctx, out, Event{
				Type: EventToolCall, ToolCallID: call.ID, ToolName: call.Name,
				ToolInput: call.Args, ToolStatus: ToolStatusRunning, Timestamp: now(),
			})

			toolCtx := &toolcatalog.Context{
				Context:            ctx,
				UserID:             st.UserID,
				SessionID:          st.SessionID,
				Mode:               toolcatalog.Mode(st.Mode),
				ProviderPreference: st.ProviderPreference,
				Confirm:            e.confirmFunc(st.UserID, st.SessionID),
			}

			result, _ := e.Catalog.Invoke(toolCtx, call.Name, call.Args)
			tracker.finish(call.ID)

			status := ToolStatusCompleted
			e.emit(ctx, out, Event{
				Type: EventToolResult, ToolCallID: call.ID, ToolName: call.Name,
				ToolOutput: result, ToolStatus: status, Timestamp: now(),
			})

			st.Messages = append(st.Messages, Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
				Timestamp:  now(),
			})
		}
	}

	st.Messages = ConsolidateTurn(st.Messages)
	st.PlaceholderWarning = ContainsPlaceholder(st.Messages)
	st.LastToolFailure = ExtractLastToolFailure(st.Messages)

	if e.Persist != nil {
		_ = e.Persist.SaveContext(ctx, st.SessionID, st.Messages, ToUIMessages(st.Messages))
	}

	e.emit(ctx, out, Event{Type: EventStatus, Status: StatusEnd, Timestamp: now()})
}

// awaitAndFinish handles the cancellation path: wait (bounded) for
// in-flight tool calls, append the synthetic cancellation notice,
// persist, and emit a terminal status.
func (e *Engine) awaitAndFinish(ctx context.Context, st *State, tracker *runningTracker, out chan<- Event) {
	waitCtx, cancel := context.WithTimeout(context.Background(), cancelMaxWait)
	defer cancel()
	AwaitCancellation(waitCtx, tracker)

	st.Messages = AppendCancellationNotice(st.Messages, now())
	st.Messages = ConsolidateTurn(st.Messages)

	if e.Persist != nil {
		_ = e.Persist.SaveContext(context.Background(), st.SessionID, st.Messages, ToUIMessages(st.Messages))
	}

	select {
	case out <- Event{Type: EventStatus, Status: StatusEnd, Timestamp: now()}:
	default:
	}
}

func (e *Engine) confirmFunc(userID, sessionID string) func(toolName, message string) (bool, bool) {
	if e.Confirm == nil || e.Publisher == nil {
		return nil
	}
	return func(toolName, message string) (bool, bool) {
		res := e.Confirm.Request(e.Publisher, userID, sessionID, toolName, message)
		return res.Approved, res.Cancelled
	}
}

// emit sends an event, dropping it silently if ctx is already done and
// the channel has no room (avoids blocking shutdown on a slow consumer).
func (e *Engine) emit(ctx context.Context, out chan<- Event, ev Event) {
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}

func toProviderMessages(messages []Message) []modelregistry.Message {
	out := make([]modelregistry.Message, 0, len(messages))
	for _, m := range messages {
		pm := modelregistry.Message{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			argsJSON, _ := json.Marshal(tc.Args)
			pm.ToolCalls = append(pm.ToolCalls, modelregistry.ToolCallDelta{
				ID:           tc.ID,
				Name:         tc.Name,
				ArgsFragment: string(argsJSON),
			})
		}
		out = append(out, pm)
	}
	return out
}

func toolSpecs(c *toolcatalog.Catalog) []modelregistry.ToolSpec {
	if c == nil {
		return nil
	}
	tools := c.All()
	out := make([]modelregistry.ToolSpec, 0, len(tools))
	for _, t := range tools {
		out = append(out, modelregistry.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Schema:      t.Schema,
		})
	}
	return out
}

func now() int64 {
	return time.Now().UnixMilli()
}
