package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// LLMService is the LLM service interface.
type LLMService interface {
	// ChatJSON performs synchronous chat constrained to a strict JSON schema.
	ChatJSON(ctx context.Context, messages []Message, name string, schema *JSONSchema) (string, error)
}

// Provider talks to any OpenAI-compatible chat completion endpoint.
type Provider struct {
	client *openai.Client
	config LLMConfig

	// retryWait is the first backoff step; it doubles per attempt.
	retryWait time.Duration
}

// NewProvider creates a new LLM provider.
func NewProvider(cfg *LLMConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("LLM config is required")
	}

	c := *cfg
	switch c.Provider {
	case "openai", "deepseek", "ollama":
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", c.Provider)
	}

	// Apply defaults for unset values
	if c.MaxRetries <= 0 {
		c.MaxRetries = 1
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 128
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}

	clientConfig := openai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		clientConfig.BaseURL = c.BaseURL
	}

	return &Provider{
		client:    openai.NewClientWithConfig(clientConfig),
		config:    c,
		retryWait: time.Second,
	}, nil
}

// Model returns the configured model name.
func (p *Provider) Model() string {
	return p.config.Model
}

// ChatJSON performs a chat completion whose output must match schema.
func (p *Provider) ChatJSON(ctx context.Context, messages []Message, name string, schema *JSONSchema) (string, error) {
	req := p.request(messages)
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   name,
			Strict: true,
			Schema: schema,
		},
	}
	return p.complete(ctx, req)
}

func (p *Provider) request(messages []Message) openai.ChatCompletionRequest {
	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		llmMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	return openai.ChatCompletionRequest{
		Model:       p.config.Model,
		Messages:    llmMessages,
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
	}
}

func (p *Provider) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	var result string
	err := p.doWithRetry(ctx, func() error {
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty chat response")
		}
		result = resp.Choices[0].Message.Content
		return nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to complete chat: %w", err)
	}

	return result, nil
}

// doWithRetry executes a function with exponential backoff retry.
func (p *Provider) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < p.config.MaxRetries-1 {
			waitTime := time.Duration(math.Pow(2, float64(attempt))) * p.retryWait
			slog.Debug("LLM request failed, retrying",
				"attempt", attempt+1,
				"wait_time", waitTime,
				"error", err)
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// SystemPrompt creates a system message.
func SystemPrompt(content string) Message {
	return Message{Role: openai.ChatMessageRoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: openai.ChatMessageRoleUser, Content: content}
}

// JSONSchema implements json.Marshaler for OpenAI's JSON Schema format.
type JSONSchema struct {
	Type                 string                 `json:"type"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Minimum              *int                   `json:"minimum,omitempty"`
	Maximum              *int                   `json:"maximum,omitempty"`
	// AdditionalProperties is only meaningful for objects; leave nil on leaves.
	AdditionalProperties *bool `json:"additionalProperties,omitempty"`
}

// Closed returns an object schema that rejects properties it does not list.
func Closed(properties map[string]*JSONSchema, required ...string) *JSONSchema {
	closed := false
	return &JSONSchema{
		Type:                 "object",
		Properties:           properties,
		Required:             required,
		AdditionalProperties: &closed,
	}
}

func (s *JSONSchema) MarshalJSON() ([]byte, error) {
	type alias JSONSchema
	return json.Marshal((*alias)(s))
}

var _ LLMService = (*Provider)(nil)
