package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/groundupcareers/resume-enhancer/internal/domain"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com/v1"
	anthropicAPIVersion     = "2023-06-01"
)

// Anthropic is the adapter for the Messages API. Roles are normalized to
// user/assistant, max_tokens sits at the top level, and authentication is
// the x-api-key header plus a pinned anthropic-version.
type Anthropic struct {
	baseURL string
}

// AnthropicOption configures the adapter.
type AnthropicOption func(*Anthropic)

// WithAnthropicBaseURL sets a custom base URL.
func WithAnthropicBaseURL(baseURL string) AnthropicOption {
	return func(a *Anthropic) {
		a.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// NewAnthropic creates the Anthropic adapter.
func NewAnthropic(opts ...AnthropicOption) *Anthropic {
	a := &Anthropic{baseURL: anthropicDefaultBaseURL}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Anthropic) Name() domain.ProviderName {
	return domain.ProviderAnthropic
}

type anthropicRequest struct {
	Model     string           `json:"model"`
	Messages  []domain.Message `json:"messages"`
	MaxTokens int              `json:"max_tokens"`
	Stream    bool             `json:"stream"`
}

// anthropicStreamEvent is the envelope around every Anthropic SSE
// payload. Text deltas only appear on content_block_delta events.
type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
}

func (a *Anthropic) BuildRequest(req *domain.ProviderRequest) (*domain.HTTPRequestSpec, error) {
	if req.Credential == "" {
		return nil, fmt.Errorf("anthropic request requires a credential")
	}

	messages := make([]domain.Message, len(req.Messages))
	for i, m := range req.Messages {
		role := "assistant"
		if m.Role == "user" {
			role = "user"
		}
		messages[i] = domain.Message{Role: role, Content: m.Content}
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: maxOutputTokens,
		Stream:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	return &domain.HTTPRequestSpec{
		URL: a.baseURL + "/messages",
		Headers: map[string]string{
			"Content-Type":      "application/json",
			"x-api-key":         req.Credential,
			"anthropic-version": anthropicAPIVersion,
		},
		Body: body,
	}, nil
}

func (a *Anthropic) ParseEvent(line string) (domain.ProviderEvent, bool) {
	payload, ok := ssePayload(line)
	if !ok || payload == "" {
		return domain.ProviderEvent{}, false
	}
	if payload == doneSentinel {
		return domain.ProviderEvent{Done: true}, true
	}

	var event anthropicStreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return domain.ProviderEvent{}, false
	}
	if event.Type != "content_block_delta" || event.Delta.Text == "" {
		return domain.ProviderEvent{}, false
	}
	return domain.ProviderEvent{Delta: event.Delta.Text}, true
}
