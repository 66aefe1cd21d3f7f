package provider

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/groundupcareers/resume-enhancer/internal/domain"
)

func userRequest(provider domain.ProviderName, credential string) *domain.ProviderRequest {
	return &domain.ProviderRequest{
		Provider:   provider,
		Model:      "test-model",
		Credential: credential,
		Messages: []domain.Message{
			{Role: "user", Content: "enhance this resume"},
		},
	}
}

func TestOpenAIBuildRequest(t *testing.T) {
	adapter := NewOpenAI()

	spec, err := adapter.BuildRequest(userRequest(domain.ProviderOpenAI, "sk-test"))
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}

	if spec.URL != "https://api.openai.com/v1/chat/completions" {
		t.Errorf("Expected chat completions URL, got %s", spec.URL)
	}
	if spec.Headers["Authorization"] != "Bearer sk-test" {
		t.Errorf("Expected bearer auth header, got %q", spec.Headers["Authorization"])
	}

	var body struct {
		Model     string `json:"model"`
		Stream    bool   `json:"stream"`
		MaxTokens int    `json:"max_tokens"`
	}
	if err := json.Unmarshal(spec.Body, &body); err != nil {
		t.Fatalf("Failed to parse body: %v", err)
	}
	if !body.Stream {
		t.Error("Expected stream=true")
	}
	if body.MaxTokens != 4096 {
		t.Errorf("Expected max_tokens 4096, got %d", body.MaxTokens)
	}
}

func TestOpenAIBuildRequestRequiresCredential(t *testing.T) {
	adapter := NewOpenAI()
	if _, err := adapter.BuildRequest(userRequest(domain.ProviderOpenAI, "")); err == nil {
		t.Error("Expected error for missing credential")
	}
}

func TestAnthropicBuildRequest(t *testing.T) {
	adapter := NewAnthropic()

	req := userRequest(domain.ProviderAnthropic, "sk-ant-test")
	req.Messages = append(req.Messages, domain.Message{Role: "system", Content: "context"})

	spec, err := adapter.BuildRequest(req)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}

	if spec.Headers["x-api-key"] != "sk-ant-test" {
		t.Errorf("Expected x-api-key header, got %q", spec.Headers["x-api-key"])
	}
	if spec.Headers["anthropic-version"] != "2023-06-01" {
		t.Errorf("Expected pinned API version, got %q", spec.Headers["anthropic-version"])
	}
	if spec.Headers["Authorization"] != "" {
		t.Error("Anthropic requests must not carry a bearer header")
	}

	var body struct {
		Messages  []domain.Message `json:"messages"`
		MaxTokens int              `json:"max_tokens"`
		Stream    bool             `json:"stream"`
	}
	if err := json.Unmarshal(spec.Body, &body); err != nil {
		t.Fatalf("Failed to parse body: %v", err)
	}
	if body.MaxTokens != 4096 || !body.Stream {
		t.Errorf("Expected top-level max_tokens=4096 stream=true, got %+v", body)
	}
	// Non-user roles normalize to assistant
	if body.Messages[0].Role != "user" || body.Messages[1].Role != "assistant" {
		t.Errorf("Expected roles user/assistant, got %s/%s", body.Messages[0].Role, body.Messages[1].Role)
	}
}

func TestGoogleBuildRequest(t *testing.T) {
	adapter := NewGoogle()

	spec, err := adapter.BuildRequest(userRequest(domain.ProviderGoogle, "goog-key"))
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}

	if !strings.Contains(spec.URL, ":streamGenerateContent") {
		t.Errorf("Expected streaming endpoint in URL, got %s", spec.URL)
	}
	if !strings.Contains(spec.URL, "key=goog-key") {
		t.Errorf("Expected credential in query string, got %s", spec.URL)
	}
	if spec.Headers["Authorization"] != "" || spec.Headers["x-api-key"] != "" {
		t.Error("Google requests must not carry credential headers")
	}

	var body struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		Stream *bool `json:"stream"`
	}
	if err := json.Unmarshal(spec.Body, &body); err != nil {
		t.Fatalf("Failed to parse body: %v", err)
	}
	if body.Stream != nil {
		t.Error("Google body must not carry a stream flag")
	}
	if len(body.Contents) != 1 || body.Contents[0].Role != "user" {
		t.Errorf("Expected one user content, got %+v", body.Contents)
	}
	if body.Contents[0].Parts[0].Text != "enhance this resume" {
		t.Errorf("Expected text nested under parts, got %+v", body.Contents[0].Parts)
	}
}

func TestAbacusBuildRequestUsesOperatorKey(t *testing.T) {
	adapter := NewAbacus("operator-key")

	// The caller's credential is ignored even if present.
	spec, err := adapter.BuildRequest(userRequest(domain.ProviderAbacus, "user-key"))
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}

	if spec.Headers["Authorization"] != "Bearer operator-key" {
		t.Errorf("Expected operator bearer key, got %q", spec.Headers["Authorization"])
	}
	if !strings.Contains(spec.URL, "abacus.ai") {
		t.Errorf("Expected abacus URL, got %s", spec.URL)
	}
}

func TestParseChatEvent(t *testing.T) {
	adapter := NewOpenAI()

	tests := []struct {
		name  string
		line  string
		delta string
		done  bool
		ok    bool
	}{
		{
			name:  "delta",
			line:  `data: {"choices":[{"delta":{"content":"Hello"}}]}`,
			delta: "Hello",
			ok:    true,
		},
		{
			name: "done sentinel",
			line: "data: [DONE]",
			done: true,
			ok:   true,
		},
		{
			name: "empty delta skipped",
			line: `data: {"choices":[{"delta":{}}]}`,
		},
		{
			name: "malformed json skipped",
			line: "data: {not json",
		},
		{
			name: "non-data line skipped",
			line: "event: ping",
		},
		{
			name: "blank line skipped",
			line: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok := adapter.ParseEvent(tt.line)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if event.Delta != tt.delta || event.Done != tt.done {
				t.Errorf("Expected delta=%q done=%v, got delta=%q done=%v", tt.delta, tt.done, event.Delta, event.Done)
			}
		})
	}
}

func TestParseAnthropicEvent(t *testing.T) {
	adapter := NewAnthropic()

	event, ok := adapter.ParseEvent(`data: {"type":"content_block_delta","delta":{"text":"Hi"}}`)
	if !ok || event.Delta != "Hi" {
		t.Errorf("Expected delta Hi, got ok=%v event=%+v", ok, event)
	}

	// Other event types carry no text
	if _, ok := adapter.ParseEvent(`data: {"type":"message_start"}`); ok {
		t.Error("Expected message_start to be skipped")
	}

	event, ok = adapter.ParseEvent("data: [DONE]")
	if !ok || !event.Done {
		t.Errorf("Expected done event, got ok=%v event=%+v", ok, event)
	}
}

func TestParseGoogleEvent(t *testing.T) {
	adapter := NewGoogle()

	event, ok := adapter.ParseEvent(`data: {"candidates":[{"content":{"parts":[{"text":"chunk"}]}}]}`)
	if !ok || event.Delta != "chunk" {
		t.Errorf("Expected delta chunk, got ok=%v event=%+v", ok, event)
	}

	if _, ok := adapter.ParseEvent(`data: {"candidates":[]}`); ok {
		t.Error("Expected empty candidates to be skipped")
	}
}

func TestRegistryGet(t *testing.T) {
	registry := NewRegistry(NewOpenAI(), NewAbacus("key"))

	adapter, err := registry.Get(domain.ProviderOpenAI)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if adapter.Name() != domain.ProviderOpenAI {
		t.Errorf("Expected openai adapter, got %s", adapter.Name())
	}

	if _, err := registry.Get(domain.ProviderGoogle); err == nil {
		t.Error("Expected error for unregistered provider")
	}
}
