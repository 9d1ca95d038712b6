package port

import (
	"context"

	"github.com/arturoeanton/commitlens/internal/domain"
)

// SCMProvider abstracts the source-control hosting API. Implementations
// resolve repository identity and fetch commit history with full file and
// patch detail.
type SCMProvider interface {
	// GetRepository resolves the canonical identity of a repository from its
	// URL or owner/name form. Returns ErrRepoNotFound (wrapped) when the
	// hosting service does not know it.
	GetRepository(ctx context.Context, repoURL, token string) (*domain.Repository, error)

	// ListCommits returns the repository's commit history with file and patch
	// detail, optionally filtered by branch and path. Commits whose detail
	// fetch fails are skipped, not fatal.
	ListCommits(ctx context.Context, repoURL, token, branch, path string) ([]domain.Commit, error)

	// ListCommitSHAs returns only the SHAs of the repository's commits, for
	// cheap diffing against already-stored history.
	ListCommitSHAs(ctx context.Context, repoURL, token, branch, path string) ([]string, error)

	// GetCommit fetches one commit with full file and patch detail.
	GetCommit(ctx context.Context, repoURL, token, sha string) (*domain.Commit, error)
}
