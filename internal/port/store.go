package port

import (
	"context"

	"github.com/arturoeanton/commitlens/internal/domain"
)

// AnalysisStore persists repositories, commits and sub-commit analyses with
// idempotent insert semantics. Insert operations report uniqueness violations
// as ErrDuplicate so callers can treat them as dedup signals.
type AnalysisStore interface {
	// CreateRepository registers a repository exactly once. A second attempt
	// for the same ID returns ErrDuplicate.
	CreateRepository(ctx context.Context, repo *domain.Repository) error

	// GetRepositoryByURL looks a repository up by its canonical URL.
	GetRepositoryByURL(ctx context.Context, url string) (*domain.Repository, error)

	// InsertCommit stores one commit keyed by SHA. An existing SHA returns
	// ErrDuplicate.
	InsertCommit(ctx context.Context, commit *domain.Commit) error

	// ListCommitSHAs returns the SHAs already stored for a repository.
	ListCommitSHAs(ctx context.Context, repoID string) ([]string, error)

	// InsertAnalyses stores sub-commit analyses, dropping those whose
	// commit_sha already has stored analyses. Returns the number inserted.
	InsertAnalyses(ctx context.Context, analyses []domain.SubCommitAnalysis) (int, error)

	// ListAnalysesByRepo returns every stored analysis for a repository.
	ListAnalysesByRepo(ctx context.Context, repoID string) ([]domain.SubCommitAnalysis, error)

	// GetAnalysisByID returns one stored analysis.
	GetAnalysisByID(ctx context.Context, id int64) (*domain.SubCommitAnalysis, error)

	// SetAnalysisEpic assigns an epic label to the given analyses.
	SetAnalysisEpic(ctx context.Context, ids []int64, epic string) error

	// InsertRun records a pipeline run.
	InsertRun(ctx context.Context, run *domain.Run) error
}

// VectorIndex is a named-collection vector store. Collections are logical
// partitions, one per repository, created lazily on first upsert.
type VectorIndex interface {
	// Upsert inserts or replaces documents in the named collection.
	Upsert(ctx context.Context, collection string, docs []domain.Document) error

	// KNearest returns the k nearest neighbors of vector in the named
	// collection, nearest first.
	KNearest(ctx context.Context, collection string, vector []float32, k int) ([]domain.Neighbor, error)
}
