package provider

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/groundupcareers/resume-enhancer/internal/domain"
)

const googleDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Google is the adapter for the Gemini generateContent API. Streaming is
// selected by the URL endpoint, not a body flag; roles are remapped to
// user/model; content nests under a parts array; and the credential goes
// in the URL query string rather than a header.
type Google struct {
	baseURL string
}

// GoogleOption configures the adapter.
type GoogleOption func(*Google)

// WithGoogleBaseURL sets a custom base URL.
func WithGoogleBaseURL(baseURL string) GoogleOption {
	return func(a *Google) {
		a.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// NewGoogle creates the Google adapter.
func NewGoogle(opts ...GoogleOption) *Google {
	a := &Google{baseURL: googleDefaultBaseURL}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Google) Name() domain.ProviderName {
	return domain.ProviderGoogle
}

type googleContent struct {
	Role  string       `json:"role"`
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleRequest struct {
	Contents []googleContent `json:"contents"`
}

// googleChunk is the subset of a Gemini streaming chunk the pipeline
// reads: candidates[0].content.parts[0].text.
type googleChunk struct {
	Candidates []struct {
		Content struct {
			Parts []googlePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (a *Google) BuildRequest(req *domain.ProviderRequest) (*domain.HTTPRequestSpec, error) {
	if req.Credential == "" {
		return nil, fmt.Errorf("google request requires a credential")
	}

	contents := make([]googleContent, len(req.Messages))
	for i, m := range req.Messages {
		role := "model"
		if m.Role == "user" {
			role = "user"
		}
		contents[i] = googleContent{
			Role:  role,
			Parts: []googlePart{{Text: m.Content}},
		}
	}

	body, err := json.Marshal(googleRequest{Contents: contents})
	if err != nil {
		return nil, fmt.Errorf("marshal google request: %w", err)
	}

	return &domain.HTTPRequestSpec{
		URL: fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s",
			a.baseURL, req.Model, url.QueryEscape(req.Credential)),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: body,
	}, nil
}

func (a *Google) ParseEvent(line string) (domain.ProviderEvent, bool) {
	payload, ok := ssePayload(line)
	if !ok || payload == "" {
		return domain.ProviderEvent{}, false
	}
	if payload == doneSentinel {
		return domain.ProviderEvent{Done: true}, true
	}

	var chunk googleChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return domain.ProviderEvent{}, false
	}
	if len(chunk.Candidates) == 0 || len(chunk.Candidates[0].Content.Parts) == 0 {
		return domain.ProviderEvent{}, false
	}
	text := chunk.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return domain.ProviderEvent{}, false
	}
	return domain.ProviderEvent{Delta: text}, true
}
