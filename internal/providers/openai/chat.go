// Package openai implements the chat completion port against any
// OpenAI-compatible endpoint (Groq by default, also OpenAI or a local
// Ollama server).
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"murmur/internal/domain"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "llama-3.3-70b-versatile"

	temperature = 0.7
	maxTokens   = 1024

	// emptyReplyPlaceholder stands in when the provider returns no
	// assistant content at all.
	emptyReplyPlaceholder = "No response from AI."
)

// Config controls the chat completion client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// ChatClient submits composed message sequences and returns assistant
// replies.
type ChatClient struct {
	cfg    Config
	client *goopenai.Client
}

func NewChatClient(cfg Config) *ChatClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &ChatClient{cfg: cfg, client: goopenai.NewClientWithConfig(clientCfg)}
}

func (c *ChatClient) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", errors.New("AI API key is not configured")
	}

	request := goopenai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    toWireMessages(messages),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	response, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return emptyReplyPlaceholder, nil
	}

	content := response.Choices[0].Message.Content
	if content == "" {
		return emptyReplyPlaceholder, nil
	}
	return content, nil
}

func toWireMessages(messages []domain.ChatMessage) []goopenai.ChatCompletionMessage {
	wire := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, message := range messages {
		wire = append(wire, goopenai.ChatCompletionMessage{
			Role:    string(message.Role),
			Content: message.Content,
		})
	}
	return wire
}
