// Package memory is an in-memory implementation of the storage
// interfaces, used in tests and for running without a database file.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/groundupcareers/resume-enhancer/internal/domain"
	"github.com/groundupcareers/resume-enhancer/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu           sync.RWMutex
	resumes      map[string]*domain.Resume
	credentials  map[string]*domain.Credential
	enhancements map[string]*domain.EnhancementJob
}

var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		resumes:      make(map[string]*domain.Resume),
		credentials:  make(map[string]*domain.Credential),
		enhancements: make(map[string]*domain.EnhancementJob),
	}
}

func (s *Store) CreateResume(ctx context.Context, resume *domain.Resume) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resume.CreatedAt = time.Now()
	cp := *resume
	s.resumes[resume.ID] = &cp
	return nil
}

func (s *Store) GetResume(ctx context.Context, id, userID string) (*domain.Resume, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resume, ok := s.resumes[id]
	if !ok || resume.UserID != userID {
		return nil, storage.ErrNotFound
	}
	cp := *resume
	return &cp, nil
}

func (s *Store) ListResumes(ctx context.Context, userID string) ([]*domain.Resume, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var resumes []*domain.Resume
	for _, r := range s.resumes {
		if r.UserID == userID {
			cp := *r
			resumes = append(resumes, &cp)
		}
	}
	sort.Slice(resumes, func(i, j int) bool {
		return resumes[i].CreatedAt.After(resumes[j].CreatedAt)
	})
	return resumes, nil
}

func (s *Store) CreateCredential(ctx context.Context, cred *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// One credential per (user, provider).
	for id, existing := range s.credentials {
		if existing.UserID == cred.UserID && existing.Provider == cred.Provider {
			delete(s.credentials, id)
		}
	}

	cred.CreatedAt = time.Now()
	cp := *cred
	s.credentials[cred.ID] = &cp
	return nil
}

func (s *Store) DeleteCredential(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.credentials[id]
	if !ok || cred.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.credentials, id)
	return nil
}

func (s *Store) ListCredentials(ctx context.Context, userID string) ([]*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var creds []*domain.Credential
	for _, c := range s.credentials {
		if c.UserID == userID {
			cp := *c
			creds = append(creds, &cp)
		}
	}
	sort.Slice(creds, func(i, j int) bool {
		return creds[i].CreatedAt.After(creds[j].CreatedAt)
	})
	return creds, nil
}

func (s *Store) ActiveCredential(ctx context.Context, userID string) (*domain.Credential, error) {
	creds, err := s.ListCredentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range creds {
		if c.Active {
			return c, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateEnhancement(ctx context.Context, job *domain.EnhancementJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	cp := *job
	s.enhancements[job.ID] = &cp
	return nil
}

func (s *Store) GetEnhancement(ctx context.Context, id string) (*domain.EnhancementJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.enhancements[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *Store) CompleteEnhancement(ctx context.Context, id, content string) error {
	return s.finalize(id, domain.StatusCompleted, content, "")
}

func (s *Store) FailEnhancement(ctx context.Context, id, notes string) error {
	return s.finalize(id, domain.StatusError, "", notes)
}

func (s *Store) finalize(id string, status domain.EnhancementStatus, content, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.enhancements[id]
	if !ok || job.Status != domain.StatusProcessing {
		return storage.ErrNotFound
	}

	job.Status = status
	job.EnhancedContent = content
	job.Notes = notes
	job.UpdatedAt = time.Now()
	return nil
}

func (s *Store) SweepStaleProcessing(ctx context.Context, olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	swept := 0
	for _, job := range s.enhancements {
		if job.Status == domain.StatusProcessing && job.UpdatedAt.Before(cutoff) {
			job.Status = domain.StatusError
			job.Notes = "abandoned by client disconnect"
			job.UpdatedAt = time.Now()
			swept++
		}
	}
	return swept, nil
}

func (s *Store) Close() error {
	return nil
}
