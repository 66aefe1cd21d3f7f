package enhance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/groundupcareers/resume-enhancer/internal/domain"
	"github.com/groundupcareers/resume-enhancer/internal/provider"
	"github.com/groundupcareers/resume-enhancer/internal/storage/memory"
)

// plainDecrypter treats the stored key as already decrypted.
type plainDecrypter struct{}

func (plainDecrypter) Decrypt(ciphertext string) (string, error) {
	return ciphertext, nil
}

type recordingNotifier struct {
	processing int
	completed  []string
	failed     []string
}

func (n *recordingNotifier) Processing(message string) error {
	n.processing++
	return nil
}

func (n *recordingNotifier) Completed(result string) error {
	n.completed = append(n.completed, result)
	return nil
}

func (n *recordingNotifier) Failed(message string) error {
	n.failed = append(n.failed, message)
	return nil
}

func chatStreamHandler(deltas []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, d := range deltas {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", d)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
}

type testEnv struct {
	store        *memory.Store
	orchestrator *Orchestrator
}

func newTestEnv(t *testing.T, openaiURL, abacusURL string) *testEnv {
	t.Helper()

	store := memory.New()
	registry := provider.NewRegistry(
		provider.NewOpenAI(provider.WithOpenAIBaseURL(openaiURL)),
		provider.NewAbacus("operator-key", provider.WithAbacusBaseURL(abacusURL)),
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	orchestrator := New(store, registry, provider.NewStreamClient(), plainDecrypter{}, logger,
		WithStreamTimeout(10*time.Second))

	return &testEnv{store: store, orchestrator: orchestrator}
}

func (e *testEnv) seedResume(t *testing.T, userID, content string) string {
	t.Helper()
	resume := &domain.Resume{ID: "resume-1", UserID: userID, Filename: "resume.pdf", OriginalContent: content}
	if err := e.store.CreateResume(context.Background(), resume); err != nil {
		t.Fatalf("Failed to seed resume: %v", err)
	}
	return resume.ID
}

func (e *testEnv) seedCredential(t *testing.T, userID string) {
	t.Helper()
	cred := &domain.Credential{
		ID:           "cred-1",
		UserID:       userID,
		Provider:     domain.ProviderOpenAI,
		EncryptedKey: "sk-live",
		Active:       true,
	}
	if err := e.store.CreateCredential(context.Background(), cred); err != nil {
		t.Fatalf("Failed to seed credential: %v", err)
	}
}

func TestStreamCompletesAndPersists(t *testing.T) {
	upstream := httptest.NewServer(chatStreamHandler([]string{"Hello", " world"}))
	defer upstream.Close()

	env := newTestEnv(t, upstream.URL, upstream.URL)
	resumeID := env.seedResume(t, "user-1", "Plumber with 10 years experience.")
	env.seedCredential(t, "user-1")

	job, err := env.orchestrator.Prepare(context.Background(), Request{
		UserID:   "user-1",
		ResumeID: resumeID,
		Kind:     KindSkillsCertifications,
	})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if job.Attempt.Provider != domain.ProviderOpenAI {
		t.Errorf("Expected openai attempt, got %s", job.Attempt.Provider)
	}

	notifier := &recordingNotifier{}
	env.orchestrator.Stream(context.Background(), job, notifier)

	if len(notifier.completed) != 1 || notifier.completed[0] != "Hello world" {
		t.Errorf("Expected completed notification with accumulated text, got %+v", notifier.completed)
	}
	if notifier.processing != 2 {
		t.Errorf("Expected 2 processing notifications, got %d", notifier.processing)
	}
	if len(notifier.failed) != 0 {
		t.Errorf("Expected no failure, got %+v", notifier.failed)
	}

	stored, err := env.store.GetEnhancement(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Failed to load job row: %v", err)
	}
	if stored.Status != domain.StatusCompleted {
		t.Errorf("Expected completed status, got %s", stored.Status)
	}
	if stored.EnhancedContent != "Hello world" {
		t.Errorf("Expected persisted content, got %q", stored.EnhancedContent)
	}
}

func TestPrepareRejectsUnknownKind(t *testing.T) {
	env := newTestEnv(t, "http://unused", "http://unused")
	env.seedResume(t, "user-1", "content")

	_, err := env.orchestrator.Prepare(context.Background(), Request{
		UserID:   "user-1",
		ResumeID: "resume-1",
		Kind:     "summary",
	})

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != domain.ErrorTypeInvalidRequest {
		t.Errorf("Expected invalid request error, got %v", err)
	}
}

func TestPrepareRejectsMissingResume(t *testing.T) {
	env := newTestEnv(t, "http://unused", "http://unused")
	env.seedResume(t, "someone-else", "content")

	_, err := env.orchestrator.Prepare(context.Background(), Request{
		UserID:   "user-1",
		ResumeID: "resume-1",
		Kind:     KindProjectExperience,
	})

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != domain.ErrorTypeNotFound {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestStreamFallsBackOnAuthFailure(t *testing.T) {
	var openaiCalls, abacusCalls atomic.Int32

	openai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		openaiCalls.Add(1)
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer openai.Close()

	abacus := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		abacusCalls.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer operator-key" {
			t.Errorf("Expected operator key on fallback, got %q", got)
		}
		chatStreamHandler([]string{"fallback text"})(w, r)
	}))
	defer abacus.Close()

	env := newTestEnv(t, openai.URL, abacus.URL)
	resumeID := env.seedResume(t, "user-1", "content")
	env.seedCredential(t, "user-1")

	job, err := env.orchestrator.Prepare(context.Background(), Request{
		UserID: "user-1", ResumeID: resumeID, Kind: KindClientQuality,
	})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	notifier := &recordingNotifier{}
	env.orchestrator.Stream(context.Background(), job, notifier)

	if openaiCalls.Load() != 1 || abacusCalls.Load() != 1 {
		t.Errorf("Expected one call each, got openai=%d abacus=%d", openaiCalls.Load(), abacusCalls.Load())
	}
	if !job.Attempt.UsedFallback {
		t.Error("Expected attempt state to record fallback")
	}
	if len(notifier.completed) != 1 || notifier.completed[0] != "fallback text" {
		t.Errorf("Expected fallback result delivered, got %+v", notifier.completed)
	}

	stored, _ := env.store.GetEnhancement(context.Background(), job.ID)
	if stored.Status != domain.StatusCompleted {
		t.Errorf("Expected completed after fallback, got %s", stored.Status)
	}
}

func TestStreamFallbackAuthFailureIsTerminal(t *testing.T) {
	var openaiCalls, abacusCalls atomic.Int32

	openai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		openaiCalls.Add(1)
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer openai.Close()

	abacus := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		abacusCalls.Add(1)
		http.Error(w, `{"error":"operator key revoked"}`, http.StatusUnauthorized)
	}))
	defer abacus.Close()

	env := newTestEnv(t, openai.URL, abacus.URL)
	resumeID := env.seedResume(t, "user-1", "content")
	env.seedCredential(t, "user-1")

	job, err := env.orchestrator.Prepare(context.Background(), Request{
		UserID: "user-1", ResumeID: resumeID, Kind: KindClientQuality,
	})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	notifier := &recordingNotifier{}
	env.orchestrator.Stream(context.Background(), job, notifier)

	// One call each, no third attempt after the fallback also fails.
	if openaiCalls.Load() != 1 || abacusCalls.Load() != 1 {
		t.Errorf("Expected one call each, got openai=%d abacus=%d", openaiCalls.Load(), abacusCalls.Load())
	}
	if len(notifier.failed) != 1 {
		t.Fatalf("Expected one failure notification, got %d", len(notifier.failed))
	}
	if len(notifier.completed) != 0 {
		t.Errorf("Expected no completion, got %+v", notifier.completed)
	}

	stored, _ := env.store.GetEnhancement(context.Background(), job.ID)
	if stored.Status != domain.StatusError {
		t.Errorf("Expected error status, got %s", stored.Status)
	}
}

func TestStreamNonAuthFailureIsTerminal(t *testing.T) {
	var abacusCalls atomic.Int32

	openai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusInternalServerError)
	}))
	defer openai.Close()

	abacus := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		abacusCalls.Add(1)
	}))
	defer abacus.Close()

	env := newTestEnv(t, openai.URL, abacus.URL)
	resumeID := env.seedResume(t, "user-1", "content")
	env.seedCredential(t, "user-1")

	job, err := env.orchestrator.Prepare(context.Background(), Request{
		UserID: "user-1", ResumeID: resumeID, Kind: KindSkillsCertifications,
	})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	notifier := &recordingNotifier{}
	env.orchestrator.Stream(context.Background(), job, notifier)

	if abacusCalls.Load() != 0 {
		t.Error("Non-auth failures must not trigger fallback")
	}
	if len(notifier.failed) != 1 {
		t.Fatalf("Expected one failure notification, got %+v", notifier.failed)
	}
	if strings.Contains(notifier.failed[0], "overloaded") {
		t.Error("Upstream error detail must not reach the caller")
	}

	stored, _ := env.store.GetEnhancement(context.Background(), job.ID)
	if stored.Status != domain.StatusError {
		t.Errorf("Expected error status, got %s", stored.Status)
	}
	if !strings.Contains(stored.Notes, "500") {
		t.Errorf("Expected upstream status in failure note, got %q", stored.Notes)
	}
}

func TestStreamWithoutCredentialUsesFallbackDirectly(t *testing.T) {
	var openaiCalls atomic.Int32

	openai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		openaiCalls.Add(1)
	}))
	defer openai.Close()

	abacus := httptest.NewServer(chatStreamHandler([]string{"no key needed"}))
	defer abacus.Close()

	env := newTestEnv(t, openai.URL, abacus.URL)
	resumeID := env.seedResume(t, "user-1", "content")

	job, err := env.orchestrator.Prepare(context.Background(), Request{
		UserID: "user-1", ResumeID: resumeID, Kind: KindProjectExperience,
	})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if job.Attempt.Provider != domain.ProviderAbacus || !job.Attempt.UsedFallback {
		t.Errorf("Expected direct fallback attempt, got %+v", job.Attempt)
	}

	notifier := &recordingNotifier{}
	env.orchestrator.Stream(context.Background(), job, notifier)

	if openaiCalls.Load() != 0 {
		t.Error("Expected no call to the user provider")
	}
	if len(notifier.completed) != 1 || notifier.completed[0] != "no key needed" {
		t.Errorf("Expected completed via fallback, got %+v", notifier.completed)
	}
}

func TestStreamCompletesOnNaturalEnd(t *testing.T) {
	// Upstream closes without sending the done sentinel.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
	}))
	defer upstream.Close()

	env := newTestEnv(t, upstream.URL, upstream.URL)
	resumeID := env.seedResume(t, "user-1", "content")
	env.seedCredential(t, "user-1")

	job, err := env.orchestrator.Prepare(context.Background(), Request{
		UserID: "user-1", ResumeID: resumeID, Kind: KindSkillsCertifications,
	})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	notifier := &recordingNotifier{}
	env.orchestrator.Stream(context.Background(), job, notifier)

	if len(notifier.completed) != 1 || notifier.completed[0] != "partial" {
		t.Errorf("Expected completion with partial text, got %+v", notifier.completed)
	}
}

func TestPrepareTruncatesOversizedResume(t *testing.T) {
	env := newTestEnv(t, "http://unused", "http://unused")
	big := strings.Repeat("Did quality work on residential jobs. ", 20000)
	resumeID := env.seedResume(t, "user-1", big)
	env.seedCredential(t, "user-1")

	job, err := env.orchestrator.Prepare(context.Background(), Request{
		UserID: "user-1", ResumeID: resumeID, Kind: KindSkillsCertifications,
	})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	budget := inputBudget(job.Attempt.Model)
	content := job.messages[0].Content
	if len(content) >= len(big) {
		t.Error("Expected resume content to be truncated")
	}
	// The message wraps the truncated resume plus the prompt template.
	if len(content) > budget+len(buildUserMessage(KindSkillsCertifications, "")) {
		t.Errorf("Message exceeds budget plus template: %d chars", len(content))
	}
}
