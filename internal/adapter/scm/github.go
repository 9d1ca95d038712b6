package scm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/arturoeanton/commitlens/internal/domain"
	"github.com/arturoeanton/commitlens/internal/port"
)

const (
	// DefaultTimeout is the HTTP request timeout for GitHub API calls.
	DefaultTimeout = 30 * time.Second

	perPage = 100
)

// GitHubProvider implements port.SCMProvider against the GitHub REST API.
// A default access token can be configured; a per-call token overrides it.
type GitHubProvider struct {
	defaultToken string
	rateLimiter  *RateLimiter
}

// NewGitHubProvider creates a GitHub-backed SCM provider.
func NewGitHubProvider(defaultToken string) *GitHubProvider {
	return &GitHubProvider{
		defaultToken: defaultToken,
		rateLimiter:  NewRateLimiter(),
	}
}

// client builds a go-github client for the effective token. Unauthenticated
// access works but is subject to much lower rate limits.
func (p *GitHubProvider) client(ctx context.Context, token string) *gh.Client {
	if token == "" {
		token = p.defaultToken
	}
	if token == "" {
		return gh.NewClient(&http.Client{Timeout: DefaultTimeout})
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = DefaultTimeout
	return gh.NewClient(tc)
}

// ParseOwnerRepo extracts "owner" and "repo" from a full GitHub URL or an
// owner/repo shorthand.
func ParseOwnerRepo(repoURL string) (string, string, error) {
	s := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(repoURL), "/"), ".git")
	if strings.Contains(s, "github.com") {
		parts := strings.Split(s, "/")
		if len(parts) < 2 {
			return "", "", fmt.Errorf("invalid GitHub URL: %s", repoURL)
		}
		return parts[len(parts)-2], parts[len(parts)-1], nil
	}
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository reference: %s", repoURL)
	}
	return parts[0], parts[1], nil
}

// GetRepository resolves the canonical identity of a repository.
func (p *GitHubProvider) GetRepository(ctx context.Context, repoURL, token string) (*domain.Repository, error) {
	owner, name, err := ParseOwnerRepo(repoURL)
	if err != nil {
		return nil, err
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	repo, resp, err := p.client(ctx, token).Repositories.Get(ctx, owner, name)
	p.rateLimiter.Update(resp)
	if err != nil {
		return nil, p.wrapError(err, "get repository")
	}

	return &domain.Repository{
		ID:   strconv.FormatInt(repo.GetID(), 10),
		Name: repo.GetFullName(),
		URL:  repo.GetHTMLURL(),
	}, nil
}

// ListCommits returns the full commit history with file and patch detail.
// Detail-fetch failures for individual commits are logged and skipped.
func (p *GitHubProvider) ListCommits(ctx context.Context, repoURL, token, branch, path string) ([]domain.Commit, error) {
	shas, err := p.ListCommitSHAs(ctx, repoURL, token, branch, path)
	if err != nil {
		return nil, err
	}

	commits := make([]domain.Commit, 0, len(shas))
	for _, sha := range shas {
		commit, err := p.GetCommit(ctx, repoURL, token, sha)
		if err != nil {
			slog.Warn("skipping commit, detail fetch failed", "sha", sha, "error", err)
			continue
		}
		commits = append(commits, *commit)
	}
	return commits, nil
}

// ListCommitSHAs returns only the SHAs of the repository's commits.
func (p *GitHubProvider) ListCommitSHAs(ctx context.Context, repoURL, token, branch, path string) ([]string, error) {
	owner, name, err := ParseOwnerRepo(repoURL)
	if err != nil {
		return nil, err
	}

	client := p.client(ctx, token)
	opts := &gh.CommitsListOptions{
		SHA:         branch,
		Path:        path,
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	var shas []string
	for {
		if err := p.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		page, resp, err := client.Repositories.ListCommits(ctx, owner, name, opts)
		p.rateLimiter.Update(resp)
		if err != nil {
			return nil, p.wrapError(err, "list commits")
		}

		for _, c := range page {
			shas = append(shas, c.GetSHA())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return shas, nil
}

// GetCommit fetches one commit with full file and patch detail.
func (p *GitHubProvider) GetCommit(ctx context.Context, repoURL, token, sha string) (*domain.Commit, error) {
	owner, name, err := ParseOwnerRepo(repoURL)
	if err != nil {
		return nil, err
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	rc, resp, err := p.client(ctx, token).Repositories.GetCommit(ctx, owner, name, sha, nil)
	p.rateLimiter.Update(resp)
	if err != nil {
		return nil, p.wrapError(err, "get commit")
	}

	commit := &domain.Commit{
		SHA:         rc.GetSHA(),
		Author:      rc.GetCommit().GetAuthor().GetName(),
		AuthorEmail: rc.GetCommit().GetAuthor().GetEmail(),
		Date:        rc.GetCommit().GetAuthor().GetDate().Time,
		Message:     rc.GetCommit().GetMessage(),
		URL:         rc.GetHTMLURL(),
	}
	for _, f := range rc.Files {
		commit.Files = append(commit.Files, domain.File{
			Filename:  f.GetFilename(),
			Additions: f.GetAdditions(),
			Deletions: f.GetDeletions(),
			Changes:   f.GetChanges(),
			Status:    f.GetStatus(),
			RawURL:    f.GetRawURL(),
			BlobURL:   f.GetBlobURL(),
			Patch:     f.GetPatch(),
		})
	}
	return commit, nil
}

// wrapError maps GitHub API errors to port sentinels where a caller needs to
// distinguish them.
func (p *GitHubProvider) wrapError(err error, op string) error {
	var errResp *gh.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, port.ErrRepoNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
