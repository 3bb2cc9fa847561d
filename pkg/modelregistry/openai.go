package modelregistry

import (
	"context"
	"fmt"
	"os"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/config"
	openai "github.com/sashabaranov/go-openai"
)

// openaiProvider serves both the "openai" (direct) and "openrouter"
// vendor entries: openrouter is an OpenAI-compatible gateway, reached
// by pointing the same client at a different BaseURL (§4.2).
type openaiProvider struct {
	key         string
	apiKey      string
	cfg         *config.LLMProviderConfig
	isOpenRouter bool
}

func newOpenAIProvider(key string, cfg *config.LLMProviderConfig, isOpenRouter bool) *openaiProvider {
	return &openaiProvider{key: key, apiKey: os.Getenv(cfg.APIKeyEnv), cfg: cfg, isOpenRouter: isOpenRouter}
}

func (p *openaiProvider) Name() string { return p.key }

func (p *openaiProvider) IsAvailable() bool { return p.apiKey != "" }

func (p *openaiProvider) SupportsModel(canonical string) bool { return true }

func (p *openaiProvider) CreateChatModel(ctx context.Context, model string, temperature float64, opts ...Option) (ChatModel, error) {
	if !p.IsAvailable() {
		return nil, fmt.Errorf("modelregistry: %s provider unavailable; set %s", p.key, p.cfg.APIKeyEnv)
	}
	o := resolveOptions(opts)

	clientCfg := openai.DefaultConfig(p.apiKey)
	if p.cfg.BaseURL != "" {
		clientCfg.BaseURL = p.cfg.BaseURL
	} else if p.isOpenRouter {
		clientCfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	client := openai.NewClientWithConfig(clientCfg)

	return &openaiChatModel{client: client, model: model, temperature: temperature, opts: o}, nil
}

type openaiChatModel struct {
	client      *openai.Client
	model       string
	temperature float64
	opts        modelOptions
}

// Stream invokes the chat-completions streaming endpoint and
// translates delta chunks into StreamChunk, accumulating tool-call
// argument fragments by their streamed index (OpenAI's wire format
// sends argument JSON character-by-character per tool_calls[i]).
func (m *openaiChatModel) Stream(ctx context.Context, messages []Message, tools []ToolSpec) (<-chan StreamChunk, error) {
	req := openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    toOpenAIMessages(messages),
		Tools:       toOpenAITools(tools),
		Temperature: float32(m.temperature),
		Stream:      true,
	}

	stream, err := m.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("modelregistry: create stream: %w", err)
	}

	out := make(chan StreamChunk, 64)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if err != nil {
				if err.Error() != "EOF" {
					out <- StreamChunk{Err: err}
				}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			choice := resp.Choices[0]
			if choice.Delta.Content != "" {
				out <- StreamChunk{Text: choice.Delta.Content}
			}
			for _, tc := range choice.Delta.ToolCalls {
				delta := ToolCallDelta{}
				if tc.Index != nil {
					delta.Index = *tc.Index
				}
				delta.ID = tc.ID
				delta.Name = tc.Function.Name
				delta.ArgsFragment = tc.Function.Arguments
				out <- StreamChunk{ToolCalls: []ToolCallDelta{delta}}
			}
			if choice.FinishReason != "" {
				out <- StreamChunk{FinishReason: string(choice.FinishReason)}
			}
		}
	}()

	return out, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
		if m.Role == "tool" {
			msg.ToolCallID = m.ToolCallID
		}
		out = append(out, msg)
	}
	return out
}

func toOpenAITools(tools []ToolSpec) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Schema,
			},
		})
	}
	return out
}
