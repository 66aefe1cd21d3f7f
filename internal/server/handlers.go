package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/groundupcareers/resume-enhancer/internal/auth"
	"github.com/groundupcareers/resume-enhancer/internal/domain"
	"github.com/groundupcareers/resume-enhancer/internal/enhance"
	"github.com/groundupcareers/resume-enhancer/internal/storage"
)

type enhanceRequest struct {
	EnhancementType string `json:"enhancementType"`
}

// handleEnhance runs one enhancement job, streaming progress back as SSE
// frames. Input problems are rejected with a synchronous JSON error
// before any streaming headers go out.
func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, domain.ErrAuthentication("Unauthorized"))
		return
	}

	var req enhanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest("Invalid request body"))
		return
	}

	job, err := s.orchestrator.Prepare(r.Context(), enhance.Request{
		UserID:   userID,
		ResumeID: chi.URLParam(r, "id"),
		Kind:     req.EnhancementType,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	AddLogField(r.Context(), "job_id", job.ID)

	stream, err := NewStreamWriter(w)
	if err != nil {
		writeError(w, domain.ErrServer("Streaming not supported"))
		return
	}

	s.orchestrator.Stream(r.Context(), job, &streamNotifier{w: stream})
}

type createResumeRequest struct {
	Filename string `json:"filename" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

type resumeResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleCreateResume(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req createResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest("Invalid request body"))
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest("filename and content are required"))
		return
	}

	resume := &domain.Resume{
		ID:              uuid.New().String(),
		UserID:          userID,
		Filename:        req.Filename,
		OriginalContent: req.Content,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.CreateResume(r.Context(), resume); err != nil {
		writeError(w, domain.ErrServer("Failed to create resume"))
		return
	}

	writeJSON(w, http.StatusCreated, resumeResponse{
		ID:        resume.ID,
		Filename:  resume.Filename,
		CreatedAt: resume.CreatedAt,
	})
}

func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	resumes, err := s.store.ListResumes(r.Context(), userID)
	if err != nil {
		writeError(w, domain.ErrServer("Failed to list resumes"))
		return
	}

	out := make([]resumeResponse, 0, len(resumes))
	for _, resume := range resumes {
		out = append(out, resumeResponse{
			ID:        resume.ID,
			Filename:  resume.Filename,
			CreatedAt: resume.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	resume, err := s.store.GetResume(r.Context(), chi.URLParam(r, "id"), userID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, domain.ErrNotFound("Resume not found"))
		return
	}
	if err != nil {
		writeError(w, domain.ErrServer("Failed to load resume"))
		return
	}

	writeJSON(w, http.StatusOK, resumeResponse{
		ID:        resume.ID,
		Filename:  resume.Filename,
		Content:   resume.OriginalContent,
		CreatedAt: resume.CreatedAt,
	})
}

type createKeyRequest struct {
	Provider     string `json:"provider" validate:"required,oneof=openai anthropic google"`
	APIKey       string `json:"api_key" validate:"required,min=8"`
	KeyName      string `json:"key_name"`
	DefaultModel string `json:"default_model"`
}

type keyResponse struct {
	ID           string    `json:"id"`
	Provider     string    `json:"provider"`
	KeyName      string    `json:"key_name,omitempty"`
	DefaultModel string    `json:"default_model,omitempty"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// handleCreateKey stores a provider credential. The secret is encrypted
// at rest and never echoed back.
func (s *Server) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest("Invalid request body"))
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest("provider must be one of openai, anthropic, google and api_key is required"))
		return
	}

	provider := domain.ProviderName(req.Provider)
	if req.DefaultModel == "" {
		req.DefaultModel = domain.DefaultModel(provider)
	}

	encrypted, err := s.codec.Encrypt(req.APIKey)
	if err != nil {
		writeError(w, domain.ErrServer("Failed to store credential"))
		return
	}

	cred := &domain.Credential{
		ID:           uuid.New().String(),
		UserID:       userID,
		Provider:     provider,
		KeyName:      req.KeyName,
		EncryptedKey: encrypted,
		DefaultModel: req.DefaultModel,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateCredential(r.Context(), cred); err != nil {
		writeError(w, domain.ErrServer("Failed to store credential"))
		return
	}

	writeJSON(w, http.StatusCreated, keyResponse{
		ID:           cred.ID,
		Provider:     string(cred.Provider),
		KeyName:      cred.KeyName,
		DefaultModel: cred.DefaultModel,
		Active:       cred.Active,
		CreatedAt:    cred.CreatedAt,
	})
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	creds, err := s.store.ListCredentials(r.Context(), userID)
	if err != nil {
		writeError(w, domain.ErrServer("Failed to list credentials"))
		return
	}

	out := make([]keyResponse, 0, len(creds))
	for _, cred := range creds {
		out = append(out, keyResponse{
			ID:           cred.ID,
			Provider:     string(cred.Provider),
			KeyName:      cred.KeyName,
			DefaultModel: cred.DefaultModel,
			Active:       cred.Active,
			CreatedAt:    cred.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	err := s.store.DeleteCredential(r.Context(), chi.URLParam(r, "id"), userID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, domain.ErrNotFound("Credential not found"))
		return
	}
	if err != nil {
		writeError(w, domain.ErrServer("Failed to delete credential"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type enhancementResponse struct {
	ID              string    `json:"id"`
	ResumeID        string    `json:"resume_id"`
	EnhancementType string    `json:"enhancement_type"`
	Provider        string    `json:"provider"`
	Model           string    `json:"model"`
	Status          string    `json:"status"`
	EnhancedContent string    `json:"enhanced_content,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// handleGetEnhancement reads one job. The client polls this after the
// stream completes to fetch the full enhanced content.
func (s *Server) handleGetEnhancement(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	job, err := s.store.GetEnhancement(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, domain.ErrNotFound("Enhancement not found"))
		return
	}
	if err != nil {
		writeError(w, domain.ErrServer("Failed to load enhancement"))
		return
	}

	// Ownership check goes through the resume the job belongs to.
	if _, err := s.store.GetResume(r.Context(), job.ResumeID, userID); err != nil {
		writeError(w, domain.ErrNotFound("Enhancement not found"))
		return
	}

	writeJSON(w, http.StatusOK, enhancementResponse{
		ID:              job.ID,
		ResumeID:        job.ResumeID,
		EnhancementType: job.EnhancementType,
		Provider:        string(job.Provider),
		Model:           job.Model,
		Status:          string(job.Status),
		EnhancedContent: job.EnhancedContent,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
