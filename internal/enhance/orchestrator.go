// Package enhance owns the end-to-end lifecycle of one resume
// enhancement job: load inputs, select provider and credential, stream
// upstream output back to the caller, and persist terminal state.
package enhance

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/groundupcareers/resume-enhancer/internal/domain"
	"github.com/groundupcareers/resume-enhancer/internal/policy"
	"github.com/groundupcareers/resume-enhancer/internal/provider"
	"github.com/groundupcareers/resume-enhancer/internal/storage"
)

const defaultStreamTimeout = 5 * time.Minute

// userFacingError is the only failure detail a caller ever sees.
// Upstream error bodies can carry operator-sensitive detail and stay in
// logs and the job's failure note.
const userFacingError = "Enhancement failed. Please try again."

// Decrypter recovers the plaintext secret from a stored credential.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// TokenEstimator sizes a prompt in tokens for logging.
type TokenEstimator interface {
	Estimate(model, text string) int
}

// Notifier receives the outbound notifications for one job. The server
// layer implements it over an SSE response; tests implement it directly.
type Notifier interface {
	Processing(message string) error
	Completed(result string) error
	Failed(message string) error
}

// Request identifies one enhancement job to run.
type Request struct {
	UserID   string
	ResumeID string
	Kind     string
}

// Job is a prepared enhancement: inputs loaded, provider selected, and
// the processing row already written. It is private to one stream.
type Job struct {
	ID         string
	Kind       string
	Resume     *domain.Resume
	Attempt    policy.Attempt
	credential string
	messages   []domain.Message
}

// Orchestrator runs enhancement jobs. Each job owns its accumulator and
// shares nothing with concurrent jobs, so no locking is needed here.
type Orchestrator struct {
	resumes       storage.ResumeStore
	credentials   storage.CredentialStore
	enhancements  storage.EnhancementStore
	adapters      *provider.Registry
	client        *provider.StreamClient
	decrypter     Decrypter
	tokens        TokenEstimator
	logger        *slog.Logger
	streamTimeout time.Duration
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithStreamTimeout bounds the upstream call for one job. The zero value
// keeps the default of five minutes.
func WithStreamTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.streamTimeout = d
		}
	}
}

// WithTokenEstimator enables prompt-size estimation in the job start log.
func WithTokenEstimator(t TokenEstimator) Option {
	return func(o *Orchestrator) {
		o.tokens = t
	}
}

// New creates an orchestrator.
func New(store storage.Store, adapters *provider.Registry, client *provider.StreamClient, decrypter Decrypter, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resumes:       store,
		credentials:   store,
		enhancements:  store,
		adapters:      adapters,
		client:        client,
		decrypter:     decrypter,
		logger:        logger,
		streamTimeout: defaultStreamTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Prepare validates the request, selects the provider and model, and
// creates the job row in processing status. Client input problems come
// back as *domain.APIError before any upstream call, so the handler can
// reject them with a synchronous 4xx instead of a stream.
func (o *Orchestrator) Prepare(ctx context.Context, req Request) (*Job, error) {
	if !KnownKind(req.Kind) {
		return nil, domain.ErrInvalidRequest("Invalid enhancement type")
	}

	resume, err := o.resumes.GetResume(ctx, req.ResumeID, req.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.ErrNotFound("Resume not found")
	}
	if err != nil {
		return nil, domain.ErrServer("Failed to load resume")
	}

	cred, err := o.credentials.ActiveCredential(ctx, req.UserID)
	if err != nil {
		return nil, domain.ErrServer("Failed to load credentials")
	}

	var secret string
	if cred != nil {
		secret, err = o.decrypter.Decrypt(cred.EncryptedKey)
		if err != nil {
			o.logger.Error("credential decryption failed",
				slog.String("credential_id", cred.ID),
				slog.String("provider", string(cred.Provider)))
			return nil, domain.ErrServer("Failed to read credential")
		}
	}

	attempt := policy.FirstAttempt(cred)

	content := resume.OriginalContent
	budget := inputBudget(attempt.Model)
	content, truncated := truncateContent(content, budget)
	if truncated {
		o.logger.Info("truncated resume content",
			slog.String("resume_id", resume.ID),
			slog.Int("original_length", len(resume.OriginalContent)),
			slog.Int("truncated_length", len(content)))
	}

	job := &Job{
		ID:         uuid.New().String(),
		Kind:       req.Kind,
		Resume:     resume,
		Attempt:    attempt,
		credential: secret,
		messages: []domain.Message{
			{Role: "user", Content: buildUserMessage(req.Kind, content)},
		},
	}

	record := &domain.EnhancementJob{
		ID:              job.ID,
		ResumeID:        resume.ID,
		EnhancementType: req.Kind,
		Provider:        attempt.Provider,
		Model:           attempt.Model,
		Status:          domain.StatusProcessing,
	}
	if err := o.enhancements.CreateEnhancement(ctx, record); err != nil {
		return nil, domain.ErrServer("Failed to create enhancement")
	}

	startAttrs := []any{
		slog.String("job_id", job.ID),
		slog.String("enhancement_type", req.Kind),
		slog.String("provider", string(attempt.Provider)),
		slog.String("model", attempt.Model),
	}
	if o.tokens != nil {
		startAttrs = append(startAttrs,
			slog.Int("estimated_prompt_tokens", o.tokens.Estimate(attempt.Model, job.messages[0].Content)))
	}
	o.logger.Info("starting enhancement", startAttrs...)

	return job, nil
}

// Stream performs the upstream call for a prepared job and relays
// incremental progress to the notifier. All outcomes, success or
// failure, are reported through the notifier and persisted; Stream never
// writes to the HTTP response itself.
func (o *Orchestrator) Stream(ctx context.Context, job *Job, notify Notifier) {
	ctx, cancel := context.WithTimeout(ctx, o.streamTimeout)
	defer cancel()

	events, err := o.open(ctx, job)
	if err != nil {
		o.fail(ctx, job, notify, err.Error())
		return
	}

	var acc strings.Builder
	for event := range events {
		switch {
		case event.Err != nil:
			o.fail(ctx, job, notify, "upstream stream error: "+event.Err.Body)
			return
		case event.Done:
			o.complete(ctx, job, notify, acc.String())
			return
		case event.Delta != "":
			acc.WriteString(event.Delta)
			// Progress carries no content; the client re-reads the
			// full result after completion.
			notify.Processing("Enhancing resume...")
		}
	}

	if ctx.Err() != nil {
		o.fail(ctx, job, notify, "upstream read aborted: "+ctx.Err().Error())
		return
	}

	// Upstream ended without an explicit terminator.
	o.complete(ctx, job, notify, acc.String())
}

// open issues the first upstream call and applies the fallback policy on
// an authentication failure. At most one retry; the retry always targets
// the fallback provider.
func (o *Orchestrator) open(ctx context.Context, job *Job) (<-chan domain.ProviderEvent, error) {
	events, err := o.attempt(ctx, job.Attempt, job)
	if err == nil {
		return events, nil
	}

	var upstream *provider.UpstreamError
	if !errors.As(err, &upstream) {
		return nil, err
	}

	if !policy.ShouldFallback(job.Attempt, &upstream.Failure) {
		o.logUpstreamFailure(job, job.Attempt, &upstream.Failure)
		return nil, err
	}

	o.logger.Info("user credential rejected, retrying with fallback provider",
		slog.String("job_id", job.ID),
		slog.String("failed_provider", string(job.Attempt.Provider)))

	job.Attempt = policy.FallbackAttempt()
	events, err = o.attempt(ctx, job.Attempt, job)
	if err != nil {
		if errors.As(err, &upstream) {
			o.logUpstreamFailure(job, job.Attempt, &upstream.Failure)
		}
		return nil, err
	}
	return events, nil
}

func (o *Orchestrator) attempt(ctx context.Context, attempt policy.Attempt, job *Job) (<-chan domain.ProviderEvent, error) {
	adapter, err := o.adapters.Get(attempt.Provider)
	if err != nil {
		return nil, err
	}

	credential := job.credential
	if attempt.UsedFallback {
		// The fallback adapter carries the operator key itself.
		credential = ""
	}

	spec, err := adapter.BuildRequest(&domain.ProviderRequest{
		Provider:   attempt.Provider,
		Model:      attempt.Model,
		Credential: credential,
		Messages:   job.messages,
	})
	if err != nil {
		return nil, err
	}

	return o.client.Do(ctx, spec, adapter)
}

func (o *Orchestrator) logUpstreamFailure(job *Job, attempt policy.Attempt, failure *domain.UpstreamFailure) {
	o.logger.Error("upstream request failed",
		slog.String("job_id", job.ID),
		slog.String("provider", string(attempt.Provider)),
		slog.String("model", attempt.Model),
		slog.Int("status", failure.StatusCode),
		slog.String("body", failure.Body))
}

func (o *Orchestrator) complete(ctx context.Context, job *Job, notify Notifier, content string) {
	// Terminal persistence must survive a canceled request context.
	ctx = context.WithoutCancel(ctx)
	if err := o.enhancements.CompleteEnhancement(ctx, job.ID, content); err != nil {
		// Best effort: the caller still gets the terminal notification
		// even when the row update fails.
		o.logger.Error("failed to persist completed enhancement",
			slog.String("job_id", job.ID), slog.String("error", err.Error()))
	}

	o.logger.Info("enhancement completed",
		slog.String("job_id", job.ID),
		slog.String("enhancement_type", job.Kind),
		slog.String("provider", string(job.Attempt.Provider)),
		slog.Int("content_length", len(content)))

	notify.Completed(content)
}

func (o *Orchestrator) fail(ctx context.Context, job *Job, notify Notifier, notes string) {
	ctx = context.WithoutCancel(ctx)
	if err := o.enhancements.FailEnhancement(ctx, job.ID, notes); err != nil {
		o.logger.Error("failed to persist enhancement failure",
			slog.String("job_id", job.ID), slog.String("error", err.Error()))
	}

	o.logger.Error("enhancement failed",
		slog.String("job_id", job.ID),
		slog.String("enhancement_type", job.Kind),
		slog.String("provider", string(job.Attempt.Provider)),
		slog.String("notes", notes))

	notify.Failed(userFacingError)
}
