package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/novelreel/api/internal/config"
)

// LLMClient handles communication with an OpenAI-compatible chat-completions API
type LLMClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// ChatMessage represents a message in the chat completion request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationOptions are the per-call generation parameters. ReasoningEffort is
// a capability option only some models accept.
type GenerationOptions struct {
	MaxTokens       int
	Temperature     float64
	ReasoningEffort string
}

// ChatCompletionRequest represents the request body for chat completion
type ChatCompletionRequest struct {
	Model           string        `json:"model"`
	Messages        []ChatMessage `json:"messages"`
	Temperature     float64       `json:"temperature,omitempty"`
	MaxTokens       int           `json:"max_tokens,omitempty"`
	ReasoningEffort string        `json:"reasoning_effort,omitempty"`
}

// Completion represents the response from chat completion
type Completion struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role      string `json:"role"`
			Content   string `json:"content"`
			Reasoning string `json:"reasoning,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// CompletionParts is a completion split into its answer text and reasoning trace
type CompletionParts struct {
	Text      string
	Reasoning string
}

// NewLLMClient creates a new chat-completions client
func NewLLMClient(cfg *config.LLMConfig) *LLMClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120
	}
	return &LLMClient{
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// ChatCompletion sends a chat completion request. The model key is chosen per
// call by the task handler's resolution chain; userID attributes the billable
// call to the requesting user.
func (c *LLMClient) ChatCompletion(ctx context.Context, userID, modelKey string, messages []ChatMessage, opts GenerationOptions) (*Completion, error) {
	reqBody := ChatCompletionRequest{
		Model:           modelKey,
		Messages:        messages,
		Temperature:     opts.Temperature,
		MaxTokens:       opts.MaxTokens,
		ReasoningEffort: opts.ReasoningEffort,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-User-ID", userID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("completion API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var completion Completion
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return &completion, nil
}

// Parts splits a completion into answer text and reasoning. A reasoning
// response field wins; otherwise a leading <think> block is split out.
func Parts(completion *Completion) (CompletionParts, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return CompletionParts{}, fmt.Errorf("completion has no choices")
	}
	msg := completion.Choices[0].Message
	if msg.Reasoning != "" {
		return CompletionParts{Text: msg.Content, Reasoning: msg.Reasoning}, nil
	}
	return splitThinkBlock(msg.Content), nil
}

func splitThinkBlock(content string) CompletionParts {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "<think>") {
		return CompletionParts{Text: content}
	}
	end := strings.Index(trimmed, "</think>")
	if end == -1 {
		return CompletionParts{Text: content}
	}
	return CompletionParts{
		Text:      strings.TrimSpace(trimmed[end+len("</think>"):]),
		Reasoning: strings.TrimSpace(trimmed[len("<think>"):end]),
	}
}

// IsConfigured returns true if the client has valid configuration
func (c *LLMClient) IsConfigured() bool {
	return c.apiKey != ""
}
