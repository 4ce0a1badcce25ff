package llm

import (
	"context"
	"fmt"

	"github.com/factchecker/factcheckit/internal/config"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider using OpenAI API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider. BaseURL points it at any
// OpenAI-compatible endpoint.
func NewOpenAIProvider(cfg *config.LLMConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// CompleteWithSystem generates a completion with a system prompt.
func (p *OpenAIProvider) CompleteWithSystem(ctx context.Context, system, user string, opts CompletionOptions) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.request(system, user, opts))
	if err != nil {
		return "", fmt.Errorf("OpenAI completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// CompleteTool forces the model to call tool and returns the call's arguments.
func (p *OpenAIProvider) CompleteTool(ctx context.Context, system, user string, tool ToolSpec, opts CompletionOptions) (ToolResult, error) {
	req := p.request(system, user, opts)
	req.Tools = []openai.Tool{{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		},
	}}
	req.ToolChoice = openai.ToolChoice{
		Type:     openai.ToolTypeFunction,
		Function: openai.ToolFunction{Name: tool.Name},
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return ToolResult{}, fmt.Errorf("OpenAI tool call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return ToolResult{}, fmt.Errorf("OpenAI returned no choices")
	}

	msg := resp.Choices[0].Message
	result := ToolResult{Content: msg.Content}
	for _, call := range msg.ToolCalls {
		if call.Function.Name == tool.Name {
			result.Arguments = call.Function.Arguments
			return result, nil
		}
	}
	return result, ErrNoToolCall
}

func (p *OpenAIProvider) request(system, user string, opts CompletionOptions) openai.ChatCompletionRequest {
	model := opts.Model
	if model == "" {
		model = p.model
	}

	messages := []openai.ChatCompletionMessage{}
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: user,
	})

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultCompletionOptions().MaxTokens
	}

	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(opts.Temperature),
	}
}
