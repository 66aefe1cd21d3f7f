// Package storage defines the persistence interfaces the enhancement
// pipeline depends on. Implementations live in the sqlite and memory
// subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/groundupcareers/resume-enhancer/internal/domain"
)

// ErrNotFound is returned when a record does not exist or is not visible
// to the requesting user.
var ErrNotFound = errors.New("record not found")

// ResumeStore reads and writes stored resumes. The pipeline itself only
// reads; create exists for the upload collaborator and tests.
type ResumeStore interface {
	CreateResume(ctx context.Context, resume *domain.Resume) error
	// GetResume loads one resume by id scoped to its owner. A resume
	// owned by another user is ErrNotFound, not a permission error.
	GetResume(ctx context.Context, id, userID string) (*domain.Resume, error)
	ListResumes(ctx context.Context, userID string) ([]*domain.Resume, error)
}

// CredentialStore manages user provider keys. The pipeline reads them;
// creation and deletion happen through the credential management API.
type CredentialStore interface {
	CreateCredential(ctx context.Context, cred *domain.Credential) error
	DeleteCredential(ctx context.Context, id, userID string) error
	ListCredentials(ctx context.Context, userID string) ([]*domain.Credential, error)
	// ActiveCredential returns the user's most recently created active
	// credential, or nil when none exists.
	ActiveCredential(ctx context.Context, userID string) (*domain.Credential, error)
}

// EnhancementStore persists job lifecycle state. A job row is written at
// most twice: once at creation in processing status and once on its
// single terminal transition.
type EnhancementStore interface {
	CreateEnhancement(ctx context.Context, job *domain.EnhancementJob) error
	GetEnhancement(ctx context.Context, id string) (*domain.EnhancementJob, error)
	CompleteEnhancement(ctx context.Context, id, content string) error
	FailEnhancement(ctx context.Context, id, notes string) error
	// SweepStaleProcessing marks processing rows older than the cutoff
	// as error. It closes jobs orphaned by client disconnects.
	SweepStaleProcessing(ctx context.Context, olderThan time.Duration) (int, error)
}

// Store is the full persistence surface.
type Store interface {
	ResumeStore
	CredentialStore
	EnhancementStore
	Close() error
}
