package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/arturoeanton/commitlens/internal/domain"
	"github.com/arturoeanton/commitlens/internal/port"
)

// uniqueViolation is the Postgres error code for a uniqueness-constraint
// violation. It is the store-level dedup signal.
const uniqueViolation = "23505"

// PostgresStore implements port.AnalysisStore on Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB, used by the vector index.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// mapUnique converts a uniqueness violation into port.ErrDuplicate.
func mapUnique(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return port.ErrDuplicate
	}
	return err
}

// --- Repositories ---

// CreateRepository registers a repository exactly once. A second attempt for
// the same ID returns port.ErrDuplicate.
func (s *PostgresStore) CreateRepository(ctx context.Context, repo *domain.Repository) error {
	query := `INSERT INTO repositories (id, name, url) VALUES ($1, $2, $3)`
	if _, err := s.db.ExecContext(ctx, query, repo.ID, repo.Name, repo.URL); err != nil {
		if mapped := mapUnique(err); errors.Is(mapped, port.ErrDuplicate) {
			return mapped
		}
		return fmt.Errorf("create repository: %w", err)
	}
	return nil
}

// GetRepositoryByURL looks a repository up by its canonical URL.
func (s *PostgresStore) GetRepositoryByURL(ctx context.Context, url string) (*domain.Repository, error) {
	query := `SELECT id, name, url, created_at FROM repositories WHERE url = $1`

	var r domain.Repository
	err := s.db.QueryRowContext(ctx, query, url).Scan(&r.ID, &r.Name, &r.URL, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrRepoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get repository: %w", err)
	}
	return &r, nil
}

// --- Commits ---

// InsertCommit stores one commit keyed by SHA. An existing SHA returns
// port.ErrDuplicate.
func (s *PostgresStore) InsertCommit(ctx context.Context, commit *domain.Commit) error {
	files, err := json.Marshal(commit.Files)
	if err != nil {
		return fmt.Errorf("marshal files: %w", err)
	}

	query := `INSERT INTO commits (sha, repo_id, author, author_email, date, message, url, files)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)`
	if _, err := s.db.ExecContext(ctx, query,
		commit.SHA, commit.RepoID, commit.Author, commit.AuthorEmail,
		commit.Date, commit.Message, commit.URL, files,
	); err != nil {
		if mapped := mapUnique(err); errors.Is(mapped, port.ErrDuplicate) {
			return mapped
		}
		return fmt.Errorf("insert commit: %w", err)
	}
	return nil
}

// ListCommitSHAs returns the SHAs already stored for a repository.
func (s *PostgresStore) ListCommitSHAs(ctx context.Context, repoID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sha FROM commits WHERE repo_id = $1`, repoID)
	if err != nil {
		return nil, fmt.Errorf("list commit shas: %w", err)
	}
	defer rows.Close()

	var shas []string
	for rows.Next() {
		var sha string
		if err := rows.Scan(&sha); err != nil {
			return nil, fmt.Errorf("scan sha: %w", err)
		}
		shas = append(shas, sha)
	}
	return shas, rows.Err()
}

// --- Analyses ---

// InsertAnalyses stores sub-commit analyses, dropping those whose commit_sha
// already has stored analyses. Returns the number inserted.
func (s *PostgresStore) InsertAnalyses(ctx context.Context, analyses []domain.SubCommitAnalysis) (int, error) {
	if len(analyses) == 0 {
		return 0, nil
	}

	shas := make([]string, 0, len(analyses))
	for _, a := range analyses {
		shas = append(shas, a.CommitSHA)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT commit_sha FROM commit_analyses WHERE commit_sha = ANY($1)`, pq.Array(shas))
	if err != nil {
		return 0, fmt.Errorf("check existing analyses: %w", err)
	}
	existing := make(map[string]bool)
	for rows.Next() {
		var sha string
		if err := rows.Scan(&sha); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan existing sha: %w", err)
		}
		existing[sha] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("check existing analyses: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO commit_analyses (title, idea, description, type, commit_sha, epic, files)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)`)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, a := range analyses {
		if existing[a.CommitSHA] {
			continue
		}
		files, err := json.Marshal(a.Files)
		if err != nil {
			return 0, fmt.Errorf("marshal files: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, a.Title, a.Idea, a.Description, string(a.Type), a.CommitSHA, a.Epic, files); err != nil {
			return 0, fmt.Errorf("insert analysis for %s: %w", a.CommitSHA, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}

// ListAnalysesByRepo returns every stored analysis for a repository.
func (s *PostgresStore) ListAnalysesByRepo(ctx context.Context, repoID string) ([]domain.SubCommitAnalysis, error) {
	query := `SELECT ca.id, ca.title, ca.idea, ca.description, ca.type, ca.commit_sha,
	                 COALESCE(ca.epic, ''), COALESCE(ca.files::text, '[]'), ca.created_at
	          FROM commit_analyses ca
	          JOIN commits c ON c.sha = ca.commit_sha
	          WHERE c.repo_id = $1
	          ORDER BY ca.id`

	rows, err := s.db.QueryContext(ctx, query, repoID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var analyses []domain.SubCommitAnalysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *a)
	}
	return analyses, rows.Err()
}

// GetAnalysisByID returns one stored analysis.
func (s *PostgresStore) GetAnalysisByID(ctx context.Context, id int64) (*domain.SubCommitAnalysis, error) {
	query := `SELECT id, title, idea, description, type, commit_sha,
	                 COALESCE(epic, ''), COALESCE(files::text, '[]'), created_at
	          FROM commit_analyses WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, id)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrAnalysisNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// SetAnalysisEpic assigns an epic label to the given analyses.
func (s *PostgresStore) SetAnalysisEpic(ctx context.Context, ids []int64, epic string) error {
	query := `UPDATE commit_analyses SET epic = $1 WHERE id = ANY($2)`
	if _, err := s.db.ExecContext(ctx, query, epic, pq.Array(ids)); err != nil {
		return fmt.Errorf("set epic: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysis(row rowScanner) (*domain.SubCommitAnalysis, error) {
	var a domain.SubCommitAnalysis
	var typ, filesJSON string
	if err := row.Scan(&a.ID, &a.Title, &a.Idea, &a.Description, &typ,
		&a.CommitSHA, &a.Epic, &filesJSON, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan analysis: %w", err)
	}
	a.Type = domain.ChangeType(typ)
	if err := json.Unmarshal([]byte(filesJSON), &a.Files); err != nil {
		return nil, fmt.Errorf("unmarshal files: %w", err)
	}
	return &a, nil
}

// --- Runs ---

// InsertRun records a pipeline run.
func (s *PostgresStore) InsertRun(ctx context.Context, run *domain.Run) error {
	query := `INSERT INTO runs (id, kind, repo_url, status, message, analyses_count, embeddings_count)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.db.ExecContext(ctx, query,
		run.ID, run.Kind, run.RepoURL, run.Status, run.Message,
		run.AnalysesCount, run.EmbeddingsCount,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// --- Audit Logs ---

// WriteAudit implements middleware.AuditWriter.
func (s *PostgresStore) WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error {
	query := `INSERT INTO audit_logs (user_id, action, resource, resource_id, details, ip, user_agent)
	          VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)`
	_, err := s.db.ExecContext(context.Background(), query,
		userID, action, resource, resourceID, details, ip, userAgent,
	)
	return err
}
