package modelregistry

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/config"
)

type anthropicProvider struct {
	key    string
	apiKey string
	cfg    *config.LLMProviderConfig
}

func newAnthropicProvider(key string, cfg *config.LLMProviderConfig) *anthropicProvider {
	return &anthropicProvider{key: key, apiKey: os.Getenv(cfg.APIKeyEnv), cfg: cfg}
}

func (p *anthropicProvider) Name() string { return p.key }

func (p *anthropicProvider) IsAvailable() bool { return p.apiKey != "" }

func (p *anthropicProvider) SupportsModel(canonical string) bool { return true }

func (p *anthropicProvider) CreateChatModel(ctx context.Context, model string, temperature float64, opts ...Option) (ChatModel, error) {
	if !p.IsAvailable() {
		return nil, fmt.Errorf("modelregistry: anthropic provider unavailable; set %s", p.cfg.APIKeyEnv)
	}
	o := resolveOptions(opts)
	client := anthropic.NewClient(option.WithAPIKey(p.apiKey), option.WithMaxRetries(o.maxRetries))
	return &anthropicChatModel{client: client, model: model, temperature: temperature, opts: o}, nil
}

type anthropicChatModel struct {
	client      anthropic.Client
	model       string
	temperature float64
	opts        modelOptions
}

// Stream invokes the Anthropic Messages API in streaming mode and
// translates content_block_delta / tool_use events into StreamChunk.
// Tool-call argument JSON streams character-by-character, matching the
// fragmentary-accumulation problem the agent loop's ToolCallBuilder
// (pkg/agentloop) is built to solve.
func (m *anthropicChatModel) Stream(ctx context.Context, messages []Message, tools []ToolSpec) (<-chan StreamChunk, error) {
	out := make(chan StreamChunk, 64)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: 8192,
		Messages:  toAnthropicMessages(messages),
		Tools:     toAnthropicTools(tools),
	}
	if m.temperature > 0 {
		params.Temperature = anthropic.Float(m.temperature)
	}

	stream := m.client.Messages.NewStreaming(ctx, params)

	go func() {
		defer close(out)
		// toolIndex tracks which content-block index is accumulating a
		// tool_use call, so argument deltas route to the right builder slot.
		toolIndex := make(map[int64]string)

		for stream.Next() {
			event := stream.Current()
			switch evt := event.AsAny().(type) {
			case anthropic.ContentBlockStartEvent:
				if evt.ContentBlock.Type == "tool_use" {
					toolIndex[evt.Index] = evt.ContentBlock.ID
					out <- StreamChunk{ToolCalls: []ToolCallDelta{{
						Index: int(evt.Index),
						ID:    evt.ContentBlock.ID,
						Name:  evt.ContentBlock.Name,
					}}}
				}
			case anthropic.ContentBlockDeltaEvent:
				switch d := evt.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					out <- StreamChunk{Text: d.Text}
				case anthropic.ThinkingDelta:
					out <- StreamChunk{Thinking: d.Thinking}
				case anthropic.InputJSONDelta:
					out <- StreamChunk{ToolCalls: []ToolCallDelta{{
						Index:        int(evt.Index),
						ID:           toolIndex[evt.Index],
						ArgsFragment: d.PartialJSON,
					}}}
				}
			case anthropic.MessageDeltaEvent:
				if string(evt.Delta.StopReason) != "" {
					out <- StreamChunk{FinishReason: stopReasonToFinish(string(evt.Delta.StopReason))}
				}
			}
		}
		if err := stream.Err(); err != nil {
			out <- StreamChunk{Err: err}
		}
	}()

	return out, nil
}

func stopReasonToFinish(reason string) string {
	if reason == "tool_use" {
		return "tool_calls"
	}
	return "stop"
}

func toAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "user":
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case "tool":
			out = append(out, anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		}
	}
	return out
}

func toAnthropicTools(tools []ToolSpec) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParamOfTool(
			anthropic.ToolInputSchemaParam{Properties: t.Schema},
			t.Name,
		))
	}
	return out
}
