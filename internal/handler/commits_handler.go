package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/commitlens/internal/domain"
	"github.com/arturoeanton/commitlens/internal/port"
)

// CommitsHandler exposes read-only access to upstream commit history and
// stored analyses.
type CommitsHandler struct {
	scm   port.SCMProvider
	store AnalysisListing
}

// AnalysisListing is the slice of the store this handler reads.
type AnalysisListing interface {
	GetRepositoryByURL(ctx context.Context, url string) (*domain.Repository, error)
	ListAnalysesByRepo(ctx context.Context, repoID string) ([]domain.SubCommitAnalysis, error)
}

// NewCommitsHandler creates a commits handler.
func NewCommitsHandler(scm port.SCMProvider, store AnalysisListing) *CommitsHandler {
	return &CommitsHandler{scm: scm, store: store}
}

// Register sets up commit listing routes.
func (h *CommitsHandler) Register(router fiber.Router) {
	router.Get("/github/commits", h.ListCommits)
	router.Get("/analyses", h.ListAnalyses)
}

// ListCommits fetches a repository's commit history straight from the hosting
// service, without touching the store.
func (h *CommitsHandler) ListCommits(c fiber.Ctx) error {
	repoURL := c.Query("repo_url")
	if repoURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "repo_url is required"})
	}

	commits, err := h.scm.ListCommits(c.Context(), repoURL, c.Query("token"), c.Query("branch"), c.Query("path"))
	if errors.Is(err, port.ErrRepoNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("repository %s not found", repoURL),
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("error fetching commits: %s", err),
		})
	}

	return c.JSON(fiber.Map{
		"commits": commits,
		"count":   len(commits),
	})
}

// ListAnalyses returns every stored sub-commit analysis for a repository.
func (h *CommitsHandler) ListAnalyses(c fiber.Ctx) error {
	repoURL := c.Query("repo_url")
	if repoURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "repo_url is required"})
	}

	repo, err := h.store.GetRepositoryByURL(c.Context(), repoURL)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("repository %s is not registered", repoURL),
		})
	}

	analyses, err := h.store.ListAnalysesByRepo(c.Context(), repo.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("error listing analyses: %s", err),
		})
	}

	return c.JSON(fiber.Map{
		"repo_id":  repo.ID,
		"analyses": analyses,
		"count":    len(analyses),
	})
}
