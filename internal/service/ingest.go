package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arturoeanton/commitlens/internal/domain"
	"github.com/arturoeanton/commitlens/internal/port"
)

// IngestStatus is the outcome variant of an ingestion. "Already analyzed" and
// "not found" are expected conditions, not errors.
type IngestStatus string

const (
	StatusRegistered      IngestStatus = "registered"
	StatusAlreadyAnalyzed IngestStatus = "already_analyzed"
	StatusNotFound        IngestStatus = "not_found"
)

// IngestResult carries the ingestion outcome and the newly stored commits.
type IngestResult struct {
	Status     IngestStatus
	Repository *domain.Repository
	Commits    []domain.Commit
}

// Ingestor is the repository ingestion gate: it registers repositories
// exactly once and stores commit history with per-SHA dedup.
type Ingestor struct {
	scm   port.SCMProvider
	store port.AnalysisStore
}

// NewIngestor creates an ingestor.
func NewIngestor(scm port.SCMProvider, store port.AnalysisStore) *Ingestor {
	return &Ingestor{scm: scm, store: store}
}

// Ingest registers the repository and stores its full commit history.
//
// Full re-ingestion of a known repository is refused: a registration conflict
// yields StatusAlreadyAnalyzed before any commit fetch, so no model or API
// spend happens for history that is already in the store. The registration
// pre-check is the store's uniqueness constraint itself, which stays correct
// when two ingestions race.
func (s *Ingestor) Ingest(ctx context.Context, repoURL, token, branch, path string) (*IngestResult, error) {
	repo, err := s.scm.GetRepository(ctx, repoURL, token)
	if errors.Is(err, port.ErrRepoNotFound) {
		slog.Warn("repository not found", "url", repoURL)
		return &IngestResult{Status: StatusNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve repository %s: %w", repoURL, err)
	}

	if err := s.store.CreateRepository(ctx, repo); err != nil {
		if errors.Is(err, port.ErrDuplicate) {
			slog.Warn("repository already analyzed", "url", repoURL, "repo_id", repo.ID)
			return &IngestResult{Status: StatusAlreadyAnalyzed, Repository: repo}, nil
		}
		return nil, fmt.Errorf("register repository %s: %w", repoURL, err)
	}

	commits, err := s.scm.ListCommits(ctx, repoURL, token, branch, path)
	if err != nil {
		return nil, fmt.Errorf("fetch commits for %s: %w", repoURL, err)
	}

	stored := s.storeCommits(ctx, repo, commits)
	slog.Info("repository ingested", "url", repoURL, "repo_id", repo.ID, "commits", len(stored))
	return &IngestResult{Status: StatusRegistered, Repository: repo, Commits: stored}, nil
}

// IngestIncremental fetches the repository's current SHAs, diffs them against
// the stored history, and stores only the unseen commits. No repository-level
// gate applies; incremental calls are expected to repeat.
func (s *Ingestor) IngestIncremental(ctx context.Context, repoURL, branch, path string) (*IngestResult, error) {
	repo, err := s.scm.GetRepository(ctx, repoURL, "")
	if errors.Is(err, port.ErrRepoNotFound) {
		slog.Warn("repository not found", "url", repoURL)
		return &IngestResult{Status: StatusNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve repository %s: %w", repoURL, err)
	}

	// Commits reference the repository row; register it if this is the first
	// contact, tolerating a concurrent registration.
	if err := s.store.CreateRepository(ctx, repo); err != nil && !errors.Is(err, port.ErrDuplicate) {
		return nil, fmt.Errorf("register repository %s: %w", repoURL, err)
	}

	upstream, err := s.scm.ListCommitSHAs(ctx, repoURL, "", branch, path)
	if err != nil {
		return nil, fmt.Errorf("list upstream shas for %s: %w", repoURL, err)
	}

	storedSHAs, err := s.store.ListCommitSHAs(ctx, repo.ID)
	if err != nil {
		return nil, fmt.Errorf("list stored shas for %s: %w", repoURL, err)
	}
	seen := make(map[string]bool, len(storedSHAs))
	for _, sha := range storedSHAs {
		seen[sha] = true
	}

	var fresh []domain.Commit
	for _, sha := range upstream {
		if seen[sha] {
			continue
		}
		commit, err := s.scm.GetCommit(ctx, repoURL, "", sha)
		if err != nil {
			slog.Warn("skipping commit, fetch failed", "sha", sha, "error", err)
			continue
		}
		fresh = append(fresh, *commit)
	}

	stored := s.storeCommits(ctx, repo, fresh)
	slog.Info("incremental ingestion complete", "url", repoURL, "new_commits", len(stored))
	return &IngestResult{Status: StatusRegistered, Repository: repo, Commits: stored}, nil
}

// storeCommits inserts commits with per-SHA dedup. Existing SHAs are skipped
// silently; other insert failures are logged and skipped so one bad commit
// never aborts the ingestion.
func (s *Ingestor) storeCommits(ctx context.Context, repo *domain.Repository, commits []domain.Commit) []domain.Commit {
	stored := make([]domain.Commit, 0, len(commits))
	for _, commit := range commits {
		commit.RepoID = repo.ID
		if err := s.store.InsertCommit(ctx, &commit); err != nil {
			if errors.Is(err, port.ErrDuplicate) {
				slog.Debug("commit already stored", "sha", commit.SHA)
				continue
			}
			slog.Error("storing commit failed", "sha", commit.SHA, "error", err)
			continue
		}
		stored = append(stored, commit)
	}
	return stored
}
