package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/commitlens/internal/domain"
	"github.com/arturoeanton/commitlens/internal/port"
)

func TestIngestRepositoryNotFound(t *testing.T) {
	scm := &mockSCM{
		getRepositoryFn: func(string) (*domain.Repository, error) {
			return nil, fmt.Errorf("resolve: %w", port.ErrRepoNotFound)
		},
	}
	store := &mockStore{}
	ingestor := NewIngestor(scm, store)

	result, err := ingestor.Ingest(context.Background(), "owner/missing", "", "", "")

	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, result.Status)
	assert.Nil(t, result.Repository)
	assert.Zero(t, scm.listCommitsCalls.Load())
}

func TestIngestAlreadyAnalyzedStopsBeforeFetch(t *testing.T) {
	scm := &mockSCM{}
	store := &mockStore{
		createRepositoryFn: func(*domain.Repository) error { return port.ErrDuplicate },
	}
	ingestor := NewIngestor(scm, store)

	result, err := ingestor.Ingest(context.Background(), "owner/repo", "", "", "")

	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyAnalyzed, result.Status)
	require.NotNil(t, result.Repository)
	// The registration gate fires before any commit fetch, so no API or
	// model spend happens for known history.
	assert.Zero(t, scm.listCommitsCalls.Load())
}

func TestIngestStoresHistoryWithDedup(t *testing.T) {
	scm := &mockSCM{
		listCommitsFn: func(string, string, string) ([]domain.Commit, error) {
			return []domain.Commit{{SHA: "aaa"}, {SHA: "bbb"}, {SHA: "ccc"}}, nil
		},
	}
	store := &mockStore{
		insertCommitFn: func(c *domain.Commit) error {
			if c.SHA == "bbb" {
				return port.ErrDuplicate
			}
			return nil
		},
	}
	ingestor := NewIngestor(scm, store)

	result, err := ingestor.Ingest(context.Background(), "owner/repo", "", "", "")

	require.NoError(t, err)
	assert.Equal(t, StatusRegistered, result.Status)
	require.Len(t, result.Commits, 2)
	assert.Equal(t, "aaa", result.Commits[0].SHA)
	assert.Equal(t, "ccc", result.Commits[1].SHA)
	for _, c := range result.Commits {
		assert.Equal(t, result.Repository.ID, c.RepoID)
	}
}

func TestIngestIncrementalFetchesOnlyUnseen(t *testing.T) {
	scm := &mockSCM{
		listSHAsFn: func(string, string, string) ([]string, error) {
			return []string{"aaa", "bbb", "ccc"}, nil
		},
	}
	store := &mockStore{
		listCommitSHAsFn: func(string) ([]string, error) {
			return []string{"aaa"}, nil
		},
	}
	ingestor := NewIngestor(scm, store)

	result, err := ingestor.IngestIncremental(context.Background(), "owner/repo", "", "")

	require.NoError(t, err)
	assert.Equal(t, StatusRegistered, result.Status)
	assert.Equal(t, int64(2), scm.getCommitCalls.Load())
	require.Len(t, result.Commits, 2)
	assert.Equal(t, "bbb", result.Commits[0].SHA)
	assert.Equal(t, "ccc", result.Commits[1].SHA)
}

func TestIngestIncrementalToleratesKnownRepository(t *testing.T) {
	scm := &mockSCM{
		listSHAsFn: func(string, string, string) ([]string, error) {
			return []string{"aaa"}, nil
		},
	}
	store := &mockStore{
		createRepositoryFn: func(*domain.Repository) error { return port.ErrDuplicate },
		listCommitSHAsFn: func(string) ([]string, error) {
			return []string{"aaa"}, nil
		},
	}
	ingestor := NewIngestor(scm, store)

	result, err := ingestor.IngestIncremental(context.Background(), "owner/repo", "", "")

	require.NoError(t, err)
	assert.Equal(t, StatusRegistered, result.Status)
	assert.Empty(t, result.Commits)
}

func TestIngestIncrementalSkipsFailedFetches(t *testing.T) {
	scm := &mockSCM{
		listSHAsFn: func(string, string, string) ([]string, error) {
			return []string{"aaa", "bbb"}, nil
		},
		getCommitFn: func(_, sha string) (*domain.Commit, error) {
			if sha == "aaa" {
				return nil, fmt.Errorf("flaky network")
			}
			return &domain.Commit{SHA: sha}, nil
		},
	}
	store := &mockStore{}
	ingestor := NewIngestor(scm, store)

	result, err := ingestor.IngestIncremental(context.Background(), "owner/repo", "", "")

	require.NoError(t, err)
	require.Len(t, result.Commits, 1)
	assert.Equal(t, "bbb", result.Commits[0].SHA)
}
