// Package domain holds the provider-neutral types shared by the
// enhancement pipeline: requests, streaming events, jobs, and errors.
package domain

import "time"

// ProviderName identifies an upstream LLM backend.
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderGoogle    ProviderName = "google"
	// ProviderAbacus is the operator-run, OpenAI-compatible fallback
	// endpoint. It authenticates with a process-wide key rather than a
	// user credential.
	ProviderAbacus ProviderName = "abacusai"
)

// KnownProvider reports whether name is one of the supported backends.
func KnownProvider(name ProviderName) bool {
	switch name {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderAbacus:
		return true
	}
	return false
}

// Message is one turn of the conversation sent upstream. Providers remap
// the role to whatever vocabulary their API uses.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProviderRequest is the neutral form of one upstream call. Adapters
// translate it into the wire shape of their provider.
type ProviderRequest struct {
	Provider ProviderName
	Model    string
	// Credential is the decrypted user secret. Empty for the fallback
	// provider, which uses the operator key held by the adapter itself.
	Credential string
	Messages   []Message
}

// HTTPRequestSpec is a fully formed upstream request descriptor produced
// by an adapter's BuildRequest. Building it has no side effects; the
// stream client is what actually performs the call.
type HTTPRequestSpec struct {
	URL     string
	Headers map[string]string
	Body    []byte
}

// ProviderEvent is one unit of parsed upstream stream output. Exactly one
// of the three variants is set: a text delta, the done marker, or a
// failure carrying the upstream status and body.
type ProviderEvent struct {
	Delta string
	Done  bool
	Err   *UpstreamFailure
}

// UpstreamFailure captures a failed upstream call. The body is logged and
// stored in the job's failure note, never shown to the caller.
type UpstreamFailure struct {
	StatusCode int
	Body       string
}

// AuthFailure reports whether the failure was an authentication rejection,
// the only failure class the fallback policy recovers from.
func (f *UpstreamFailure) AuthFailure() bool {
	return f != nil && f.StatusCode == 401
}

// EnhancementStatus is the lifecycle status of one enhancement job.
type EnhancementStatus string

const (
	StatusProcessing EnhancementStatus = "processing"
	StatusCompleted  EnhancementStatus = "completed"
	StatusError      EnhancementStatus = "error"
)

// EnhancementJob is one request to transform a resume. It is created in
// processing status before any upstream call and transitions exactly once
// to completed or error.
type EnhancementJob struct {
	ID              string
	ResumeID        string
	EnhancementType string
	Provider        ProviderName
	Model           string
	Status          EnhancementStatus
	EnhancedContent string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Credential is a user's stored key for one provider. At most one per
// (user, provider); only active credentials are eligible for selection.
// The pipeline reads credentials, it never writes them.
type Credential struct {
	ID           string
	UserID       string
	Provider     ProviderName
	KeyName      string
	EncryptedKey string
	DefaultModel string
	Active       bool
	CreatedAt    time.Time
}

// Resume is a stored document as the pipeline sees it: extracted text
// plus ownership. Upload and text extraction happen elsewhere.
type Resume struct {
	ID              string
	UserID          string
	Filename        string
	OriginalContent string
	CreatedAt       time.Time
}
