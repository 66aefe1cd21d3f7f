package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/groundupcareers/resume-enhancer/internal/domain"
)

const abacusDefaultBaseURL = "https://apps.abacus.ai/v1"

// Abacus is the adapter for the operator-run fallback endpoint. It is
// OpenAI-compatible by construction, so it shares the chat request and
// chunk shapes; the difference is that it authenticates with the
// process-wide operator key instead of a user credential.
type Abacus struct {
	apiKey  string
	baseURL string
}

// AbacusOption configures the adapter.
type AbacusOption func(*Abacus)

// WithAbacusBaseURL sets a custom base URL.
func WithAbacusBaseURL(baseURL string) AbacusOption {
	return func(a *Abacus) {
		a.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// NewAbacus creates the fallback adapter. The apiKey is the operator-held
// credential from process configuration; when it is empty the built
// requests will themselves fail authentication upstream.
func NewAbacus(apiKey string, opts ...AbacusOption) *Abacus {
	a := &Abacus{apiKey: apiKey, baseURL: abacusDefaultBaseURL}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Abacus) Name() domain.ProviderName {
	return domain.ProviderAbacus
}

func (a *Abacus) BuildRequest(req *domain.ProviderRequest) (*domain.HTTPRequestSpec, error) {
	body, err := json.Marshal(chatRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		Stream:    true,
		MaxTokens: maxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal fallback request: %w", err)
	}

	return &domain.HTTPRequestSpec{
		URL: a.baseURL + "/chat/completions",
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + a.apiKey,
		},
		Body: body,
	}, nil
}

func (a *Abacus) ParseEvent(line string) (domain.ProviderEvent, bool) {
	return parseChatEvent(line)
}
