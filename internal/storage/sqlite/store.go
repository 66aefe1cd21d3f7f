// Package sqlite is the SQLite implementation of the storage interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/groundupcareers/resume-enhancer/internal/domain"
	"github.com/groundupcareers/resume-enhancer/internal/storage"
)

// Store is a SQLite implementation of storage.Store.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the
// schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS resumes (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			original_content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			key_name TEXT NOT NULL,
			encrypted_key TEXT NOT NULL,
			default_model TEXT,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			UNIQUE(user_id, provider)
		)`,
		`CREATE TABLE IF NOT EXISTS enhancements (
			id TEXT PRIMARY KEY,
			resume_id TEXT NOT NULL,
			enhancement_type TEXT NOT NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			status TEXT NOT NULL,
			enhanced_content TEXT NOT NULL DEFAULT '',
			enhancement_notes TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			FOREIGN KEY (resume_id) REFERENCES resumes(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_resumes_user ON resumes(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_credentials_user ON credentials(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_enhancements_resume ON enhancements(resume_id)`,
		`CREATE INDEX IF NOT EXISTS idx_enhancements_status ON enhancements(status)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (s *Store) CreateResume(ctx context.Context, resume *domain.Resume) error {
	resume.CreatedAt = time.Now()

	query := `INSERT INTO resumes (id, user_id, filename, original_content, created_at)
	          VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		resume.ID, resume.UserID, resume.Filename, resume.OriginalContent, resume.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create resume: %w", err)
	}

	return nil
}

func (s *Store) GetResume(ctx context.Context, id, userID string) (*domain.Resume, error) {
	query := `SELECT id, user_id, filename, original_content, created_at
	          FROM resumes WHERE id = ? AND user_id = ?`

	var resume domain.Resume
	err := s.db.QueryRowContext(ctx, query, id, userID).Scan(
		&resume.ID, &resume.UserID, &resume.Filename, &resume.OriginalContent, &resume.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}

	return &resume, nil
}

func (s *Store) ListResumes(ctx context.Context, userID string) ([]*domain.Resume, error) {
	query := `SELECT id, user_id, filename, original_content, created_at
	          FROM resumes WHERE user_id = ?
	          ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query resumes: %w", err)
	}
	defer rows.Close()

	var resumes []*domain.Resume
	for rows.Next() {
		var resume domain.Resume
		if err := rows.Scan(&resume.ID, &resume.UserID, &resume.Filename,
			&resume.OriginalContent, &resume.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		resumes = append(resumes, &resume)
	}

	return resumes, rows.Err()
}

func (s *Store) CreateCredential(ctx context.Context, cred *domain.Credential) error {
	cred.CreatedAt = time.Now()

	// One credential per (user, provider): replace any existing row so a
	// re-submitted key updates in place.
	query := `INSERT INTO credentials (id, user_id, provider, key_name, encrypted_key, default_model, is_active, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	          ON CONFLICT(user_id, provider) DO UPDATE SET
	              id=excluded.id, key_name=excluded.key_name,
	              encrypted_key=excluded.encrypted_key,
	              default_model=excluded.default_model,
	              is_active=excluded.is_active, created_at=excluded.created_at`

	_, err := s.db.ExecContext(ctx, query,
		cred.ID, cred.UserID, string(cred.Provider), cred.KeyName,
		cred.EncryptedKey, cred.DefaultModel, cred.Active, cred.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}

	return nil
}

func (s *Store) DeleteCredential(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *Store) ListCredentials(ctx context.Context, userID string) ([]*domain.Credential, error) {
	query := `SELECT id, user_id, provider, key_name, encrypted_key, default_model, is_active, created_at
	          FROM credentials WHERE user_id = ?
	          ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	var creds []*domain.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}

	return creds, rows.Err()
}

func (s *Store) ActiveCredential(ctx context.Context, userID string) (*domain.Credential, error) {
	// Most recently created active credential wins. Storage order is not
	// a selection rule.
	query := `SELECT id, user_id, provider, key_name, encrypted_key, default_model, is_active, created_at
	          FROM credentials WHERE user_id = ? AND is_active = 1
	          ORDER BY created_at DESC LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, userID)
	cred, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return cred, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*domain.Credential, error) {
	var cred domain.Credential
	var provider string
	var defaultModel sql.NullString

	err := row.Scan(&cred.ID, &cred.UserID, &provider, &cred.KeyName,
		&cred.EncryptedKey, &defaultModel, &cred.Active, &cred.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan credential: %w", err)
	}

	cred.Provider = domain.ProviderName(provider)
	if defaultModel.Valid {
		cred.DefaultModel = defaultModel.String
	}

	return &cred, nil
}

func (s *Store) CreateEnhancement(ctx context.Context, job *domain.EnhancementJob) error {
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt

	query := `INSERT INTO enhancements (id, resume_id, enhancement_type, provider, model, status, enhanced_content, enhancement_notes, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		job.ID, job.ResumeID, job.EnhancementType, string(job.Provider), job.Model,
		string(job.Status), job.EnhancedContent, job.Notes, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create enhancement: %w", err)
	}

	return nil
}

func (s *Store) GetEnhancement(ctx context.Context, id string) (*domain.EnhancementJob, error) {
	query := `SELECT id, resume_id, enhancement_type, provider, model, status, enhanced_content, enhancement_notes, created_at, updated_at
	          FROM enhancements WHERE id = ?`

	var job domain.EnhancementJob
	var provider, status string
	var notes sql.NullString

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.ResumeID, &job.EnhancementType, &provider, &job.Model,
		&status, &job.EnhancedContent, &notes, &job.CreatedAt, &job.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enhancement: %w", err)
	}

	job.Provider = domain.ProviderName(provider)
	job.Status = domain.EnhancementStatus(status)
	if notes.Valid {
		job.Notes = notes.String
	}

	return &job, nil
}

func (s *Store) CompleteEnhancement(ctx context.Context, id, content string) error {
	return s.finalize(ctx, id, domain.StatusCompleted, content, "")
}

func (s *Store) FailEnhancement(ctx context.Context, id, notes string) error {
	return s.finalize(ctx, id, domain.StatusError, "", notes)
}

// finalize performs the single terminal transition. The status guard
// keeps a job that already reached a terminal state from being rewritten.
func (s *Store) finalize(ctx context.Context, id string, status domain.EnhancementStatus, content, notes string) error {
	query := `UPDATE enhancements
	          SET status = ?, enhanced_content = ?, enhancement_notes = ?, updated_at = ?
	          WHERE id = ? AND status = ?`

	result, err := s.db.ExecContext(ctx, query,
		string(status), content, notes, time.Now(), id, string(domain.StatusProcessing))
	if err != nil {
		return fmt.Errorf("failed to finalize enhancement: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *Store) SweepStaleProcessing(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	query := `UPDATE enhancements
	          SET status = ?, enhancement_notes = ?, updated_at = ?
	          WHERE status = ? AND updated_at < ?`

	result, err := s.db.ExecContext(ctx, query,
		string(domain.StatusError), "abandoned by client disconnect", time.Now(),
		string(domain.StatusProcessing), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale enhancements: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
