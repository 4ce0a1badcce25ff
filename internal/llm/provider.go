// Package llm provides a pluggable interface for LLM providers.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/factchecker/factcheckit/internal/config"
)

// ErrNoToolCall is returned when a tool was requested but the model answered in text.
var ErrNoToolCall = errors.New("model did not call the requested tool")

// CompletionOptions contains options for completion requests.
type CompletionOptions struct {
	MaxTokens   int
	Temperature float64
	Model       string
}

// DefaultCompletionOptions returns sensible defaults.
func DefaultCompletionOptions() CompletionOptions {
	return CompletionOptions{
		MaxTokens:   500,
		Temperature: 0.0,
	}
}

// ToolSpec describes a single function the model is forced to call.
type ToolSpec struct {
	Name        string
	Description string
	// Parameters is a JSON schema value, marshalled as-is.
	Parameters any
}

// ToolResult is what came back from a forced tool call.
type ToolResult struct {
	// Arguments is the raw JSON argument payload of the call.
	Arguments string
	// Content is any text the model produced alongside (or instead of) the call.
	Content string
}

// Provider defines the interface for LLM providers.
type Provider interface {
	// CompleteWithSystem generates a completion with a system prompt.
	CompleteWithSystem(ctx context.Context, system, user string, opts CompletionOptions) (string, error)

	// CompleteTool forces a call to tool and returns its arguments. When the
	// model ignores the tool, the text it produced is returned in the result
	// together with ErrNoToolCall.
	CompleteTool(ctx context.Context, system, user string, tool ToolSpec, opts CompletionOptions) (ToolResult, error)

	// Name returns the provider name.
	Name() string
}

// NewProvider creates a new LLM provider based on configuration.
func NewProvider(cfg *config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
