// Package provider hides per-provider request and response shape
// differences behind one neutral contract. Each upstream backend gets an
// Adapter that builds its wire request and parses its streaming chunks
// into domain.ProviderEvent values.
package provider

import (
	"fmt"
	"strings"

	"github.com/groundupcareers/resume-enhancer/internal/domain"
)

// maxOutputTokens is the fixed completion ceiling sent on every request.
const maxOutputTokens = 4096

// dataPrefix and doneSentinel are the SSE framing markers shared by all
// supported providers.
const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// Adapter translates neutral requests into one provider's wire shape and
// parses that provider's streaming chunk format back into neutral events.
type Adapter interface {
	Name() domain.ProviderName

	// BuildRequest produces a fully formed HTTP request descriptor.
	// It has no side effects.
	BuildRequest(req *domain.ProviderRequest) (*domain.HTTPRequestSpec, error)

	// ParseEvent parses one line of an SSE-framed response body. It
	// returns ok=false for non-data lines and for malformed or empty
	// chunks: skipping those is deliberate, not an error.
	ParseEvent(line string) (domain.ProviderEvent, bool)
}

// Registry holds the configured adapters keyed by provider name.
type Registry struct {
	adapters map[domain.ProviderName]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[domain.ProviderName]Adapter)}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Get returns the adapter for a provider.
func (r *Registry) Get(name domain.ProviderName) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", name)
	}
	return a, nil
}

// ssePayload extracts the data payload from an SSE line. The second
// return is false for lines without the data marker.
func ssePayload(line string) (string, bool) {
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, dataPrefix)), true
}
