package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/groundupcareers/resume-enhancer/internal/domain"
)

const openaiDefaultBaseURL = "https://api.openai.com/v1"

// OpenAI is the adapter for OpenAI's Chat Completions API. The request
// body carries a flat message list with stream=true and max_tokens at the
// top level; authentication is a bearer header.
type OpenAI struct {
	baseURL string
}

// OpenAIOption configures the adapter.
type OpenAIOption func(*OpenAI)

// WithOpenAIBaseURL sets a custom base URL.
func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(a *OpenAI) {
		a.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// NewOpenAI creates the OpenAI adapter.
func NewOpenAI(opts ...OpenAIOption) *OpenAI {
	a := &OpenAI{baseURL: openaiDefaultBaseURL}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *OpenAI) Name() domain.ProviderName {
	return domain.ProviderOpenAI
}

// chatRequest is the OpenAI-shaped request body, shared with the
// fallback adapter.
type chatRequest struct {
	Model     string           `json:"model"`
	Messages  []domain.Message `json:"messages"`
	Stream    bool             `json:"stream"`
	MaxTokens int              `json:"max_tokens"`
}

// chatChunk is the subset of an OpenAI streaming chunk the pipeline
// reads: the incremental text at choices[0].delta.content.
type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (a *OpenAI) BuildRequest(req *domain.ProviderRequest) (*domain.HTTPRequestSpec, error) {
	if req.Credential == "" {
		return nil, fmt.Errorf("openai request requires a credential")
	}

	body, err := json.Marshal(chatRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		Stream:    true,
		MaxTokens: maxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal openai request: %w", err)
	}

	return &domain.HTTPRequestSpec{
		URL: a.baseURL + "/chat/completions",
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + req.Credential,
		},
		Body: body,
	}, nil
}

func (a *OpenAI) ParseEvent(line string) (domain.ProviderEvent, bool) {
	return parseChatEvent(line)
}

// parseChatEvent parses one OpenAI-shaped SSE line. Shared by the OpenAI
// and fallback adapters.
func parseChatEvent(line string) (domain.ProviderEvent, bool) {
	payload, ok := ssePayload(line)
	if !ok || payload == "" {
		return domain.ProviderEvent{}, false
	}
	if payload == doneSentinel {
		return domain.ProviderEvent{Done: true}, true
	}

	var chunk chatChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return domain.ProviderEvent{}, false
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
		return domain.ProviderEvent{}, false
	}
	return domain.ProviderEvent{Delta: chunk.Choices[0].Delta.Content}, true
}
