package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/arturoeanton/commitlens/internal/domain"
	"github.com/arturoeanton/commitlens/internal/service"
)

// Pipeline phases reported through the job tracker.
const (
	phaseIngest  = "ingest"
	phaseAnalyze = "analyze"
	phasePersist = "persist"
	phaseIndex   = "index"
)

// AnalysisHandler drives the commit analysis pipeline: ingest, decompose,
// persist, embed. Endpoints run synchronously and return a status/message/count
// envelope; progress is mirrored into the job tracker so observers can follow
// a run over SSE while it executes.
type AnalysisHandler struct {
	ingestor *service.Ingestor
	batcher  *service.BatchOrchestrator
	indexer  *service.Indexer
	queries  *service.QueryService
	store    AnalysisReader
	runs     *service.RunRecorder
	tracker  *JobTracker
	queryK   int
}

// AnalysisReader is the slice of the store the handler reads directly.
type AnalysisReader interface {
	GetRepositoryByURL(ctx context.Context, url string) (*domain.Repository, error)
	InsertAnalyses(ctx context.Context, analyses []domain.SubCommitAnalysis) (int, error)
	ListAnalysesByRepo(ctx context.Context, repoID string) ([]domain.SubCommitAnalysis, error)
}

// NewAnalysisHandler creates an analysis handler.
func NewAnalysisHandler(
	ingestor *service.Ingestor,
	batcher *service.BatchOrchestrator,
	indexer *service.Indexer,
	queries *service.QueryService,
	store AnalysisReader,
	runs *service.RunRecorder,
	tracker *JobTracker,
	queryK int,
) *AnalysisHandler {
	return &AnalysisHandler{
		ingestor: ingestor,
		batcher:  batcher,
		indexer:  indexer,
		queries:  queries,
		store:    store,
		runs:     runs,
		tracker:  tracker,
		queryK:   queryK,
	}
}

// Register sets up analysis routes.
func (h *AnalysisHandler) Register(router fiber.Router) {
	analysis := router.Group("/analysis")
	analysis.Post("/analyze-commits", h.AnalyzeCommits)
	analysis.Post("/update-analysis", h.UpdateAnalysis)
	analysis.Post("/create-embedding-space", h.CreateEmbeddingSpace)
	analysis.Post("/query-commits", h.QueryCommits)
}

// AnalyzeCommits ingests a repository's full history, decomposes every commit
// into sub-commits, persists them and builds the repository's embedding space.
func (h *AnalysisHandler) AnalyzeCommits(c fiber.Ctx) error {
	var body struct {
		RepositoryURL string `json:"repository_url"`
		AccessToken   string `json:"access_token"`
	}
	if err := c.Bind().JSON(&body); err != nil || body.RepositoryURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "repository_url is required"})
	}

	ctx := c.Context()
	jobID := uuid.New().String()
	h.tracker.CreateJob(jobID, body.RepositoryURL, 4)

	ingested, err := h.ingestor.Ingest(ctx, body.RepositoryURL, body.AccessToken, "", "")
	if err != nil {
		h.tracker.FailJob(jobID, err.Error())
		h.runs.Record(ctx, "analyze_commits", body.RepositoryURL, domain.RunStatusError, err.Error(), 0, 0)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("error analyzing commits: %s", err),
		})
	}

	switch ingested.Status {
	case service.StatusNotFound:
		h.tracker.UpdateJob(jobID, phaseIngest, 4, "complete")
		msg := fmt.Sprintf("Repository %s not found or no new commits available.", body.RepositoryURL)
		h.runs.Record(ctx, "analyze_commits", body.RepositoryURL, domain.RunStatusNotFound, msg, 0, 0)
		return c.JSON(fiber.Map{
			"status":         "not_found",
			"message":        msg,
			"analyses_count": 0,
			"job_id":         jobID,
		})
	case service.StatusAlreadyAnalyzed:
		h.tracker.UpdateJob(jobID, phaseIngest, 4, "complete")
		msg := fmt.Sprintf("Repository %s has already been analyzed.", body.RepositoryURL)
		h.runs.Record(ctx, "analyze_commits", body.RepositoryURL, domain.RunStatusAlreadyAnalyzed, msg, 0, 0)
		return c.JSON(fiber.Map{
			"status":         "already_analyzed",
			"message":        msg,
			"analyses_count": 0,
			"job_id":         jobID,
		})
	}
	h.tracker.UpdateJob(jobID, phaseIngest, 1, "running")

	repo := ingested.Repository
	batch := h.batcher.AnalyzeBatch(ctx, ingested.Commits)
	h.tracker.UpdateJob(jobID, phaseAnalyze, 2, "running")

	if len(batch.Analyses) == 0 {
		h.tracker.UpdateJob(jobID, phasePersist, 4, "complete")
		msg := fmt.Sprintf("Processed %d commits, but no analyses were generated.", len(ingested.Commits))
		h.runs.Record(ctx, "analyze_commits", body.RepositoryURL, domain.RunStatusWarning, msg, 0, 0)
		return c.JSON(fiber.Map{
			"status":         "warning",
			"message":        msg,
			"analyses_count": 0,
			"job_id":         jobID,
		})
	}

	inserted, err := h.store.InsertAnalyses(ctx, batch.Analyses)
	if err != nil {
		h.tracker.FailJob(jobID, err.Error())
		msg := fmt.Sprintf("Analyzed %d commits, but encountered an error storing results.", len(ingested.Commits))
		h.runs.Record(ctx, "analyze_commits", body.RepositoryURL, domain.RunStatusPartialSuccess, msg, len(batch.Analyses), 0)
		return c.JSON(fiber.Map{
			"status":         "partial_success",
			"message":        msg,
			"error":          err.Error(),
			"analyses_count": len(batch.Analyses),
			"job_id":         jobID,
		})
	}
	h.tracker.UpdateJob(jobID, phasePersist, 3, "running")

	// Reload so documents carry the store-assigned analysis ids.
	stored, err := h.store.ListAnalysesByRepo(ctx, repo.ID)
	if err != nil {
		h.tracker.FailJob(jobID, err.Error())
		msg := fmt.Sprintf("Successfully analyzed %d commits and stored %d analyses, but failed to load them back for embedding.", len(ingested.Commits), inserted)
		h.runs.Record(ctx, "analyze_commits", body.RepositoryURL, domain.RunStatusPartialSuccess, msg, inserted, 0)
		return c.JSON(fiber.Map{
			"status":         "partial_success",
			"message":        msg,
			"analyses_count": inserted,
			"job_id":         jobID,
		})
	}

	report := h.indexer.IndexAll(ctx, stored, repo.ID, repo.ID)
	h.tracker.UpdateJob(jobID, phaseIndex, 4, "complete")

	if report.Indexed == 0 && report.Failed > 0 {
		msg := fmt.Sprintf("Successfully analyzed %d commits and stored %d analyses, but encountered errors creating the embedding space.", len(ingested.Commits), inserted)
		h.runs.Record(ctx, "analyze_commits", body.RepositoryURL, domain.RunStatusPartialSuccess, msg, inserted, 0)
		return c.JSON(fiber.Map{
			"status":           "partial_success",
			"message":          msg,
			"analyses_count":   inserted,
			"embeddings_count": 0,
			"job_id":           jobID,
		})
	}

	msg := fmt.Sprintf("Successfully analyzed %d commits, stored %d analyses, and created embedding space with %d embeddings.",
		len(ingested.Commits), inserted, report.Indexed)
	h.runs.Record(ctx, "analyze_commits", body.RepositoryURL, domain.RunStatusSuccess, msg, inserted, report.Indexed)
	return c.JSON(fiber.Map{
		"status":           "success",
		"message":          msg,
		"analyses_count":   inserted,
		"embeddings_count": report.Indexed,
		"collection_name":  repo.ID,
		"job_id":           jobID,
	})
}

// UpdateAnalysis analyzes only commits that appeared since the last run.
// Embedding space refresh is a separate call (CreateEmbeddingSpace).
func (h *AnalysisHandler) UpdateAnalysis(c fiber.Ctx) error {
	var body struct {
		RepositoryURL string `json:"repository_url"`
		Branch        string `json:"branch"`
		Path          string `json:"path"`
	}
	if err := c.Bind().JSON(&body); err != nil || body.RepositoryURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "repository_url is required"})
	}

	ctx := c.Context()

	ingested, err := h.ingestor.IngestIncremental(ctx, body.RepositoryURL, body.Branch, body.Path)
	if err != nil {
		h.runs.Record(ctx, "update_analysis", body.RepositoryURL, domain.RunStatusError, err.Error(), 0, 0)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("error analyzing new commits: %s", err),
		})
	}
	if ingested.Status == service.StatusNotFound {
		msg := fmt.Sprintf("Repository %s not found.", body.RepositoryURL)
		h.runs.Record(ctx, "update_analysis", body.RepositoryURL, domain.RunStatusNotFound, msg, 0, 0)
		return c.JSON(fiber.Map{
			"status":         "not_found",
			"message":        msg,
			"analyses_count": 0,
		})
	}

	if len(ingested.Commits) == 0 {
		msg := fmt.Sprintf("No new commits to analyze for repository %s.", body.RepositoryURL)
		h.runs.Record(ctx, "update_analysis", body.RepositoryURL, domain.RunStatusSuccess, msg, 0, 0)
		return c.JSON(fiber.Map{
			"status":         "success",
			"message":        msg,
			"analyses_count": 0,
		})
	}

	batch := h.batcher.AnalyzeBatch(ctx, ingested.Commits)
	if len(batch.Analyses) == 0 {
		msg := fmt.Sprintf("Processed %d new commits, but no analyses were generated.", len(ingested.Commits))
		h.runs.Record(ctx, "update_analysis", body.RepositoryURL, domain.RunStatusWarning, msg, 0, 0)
		return c.JSON(fiber.Map{
			"status":         "warning",
			"message":        msg,
			"analyses_count": 0,
		})
	}

	inserted, err := h.store.InsertAnalyses(ctx, batch.Analyses)
	if err != nil {
		msg := fmt.Sprintf("Analyzed %d new commits, but encountered an error storing results.", len(ingested.Commits))
		h.runs.Record(ctx, "update_analysis", body.RepositoryURL, domain.RunStatusPartialSuccess, msg, len(batch.Analyses), 0)
		return c.JSON(fiber.Map{
			"status":         "partial_success",
			"message":        msg,
			"error":          err.Error(),
			"analyses_count": len(batch.Analyses),
		})
	}

	msg := fmt.Sprintf("Successfully analyzed %d new commits and stored %d analyses.", len(ingested.Commits), inserted)
	h.runs.Record(ctx, "update_analysis", body.RepositoryURL, domain.RunStatusSuccess, msg, inserted, 0)
	return c.JSON(fiber.Map{
		"status":         "success",
		"message":        msg,
		"analyses_count": inserted,
	})
}

// CreateEmbeddingSpace (re)builds the vector collection for a repository from
// its stored analyses.
func (h *AnalysisHandler) CreateEmbeddingSpace(c fiber.Ctx) error {
	var body struct {
		RepositoryURL string `json:"repository_url"`
	}
	if err := c.Bind().JSON(&body); err != nil || body.RepositoryURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "repository_url is required"})
	}

	ctx := c.Context()

	repo, err := h.store.GetRepositoryByURL(ctx, body.RepositoryURL)
	if err != nil {
		h.runs.Record(ctx, "create_embedding_space", body.RepositoryURL, domain.RunStatusError, err.Error(), 0, 0)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("error retrieving commit analyses: %s", err),
		})
	}

	analyses, err := h.store.ListAnalysesByRepo(ctx, repo.ID)
	if err != nil {
		h.runs.Record(ctx, "create_embedding_space", body.RepositoryURL, domain.RunStatusError, err.Error(), 0, 0)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("error retrieving commit analyses: %s", err),
		})
	}
	if len(analyses) == 0 {
		msg := fmt.Sprintf("No commit analyses found for repository %s.", body.RepositoryURL)
		h.runs.Record(ctx, "create_embedding_space", body.RepositoryURL, domain.RunStatusWarning, msg, 0, 0)
		return c.JSON(fiber.Map{
			"status":           "warning",
			"message":          msg,
			"embeddings_count": 0,
		})
	}

	slog.Info("creating embedding space", "repo_id", repo.ID, "analyses", len(analyses))
	report := h.indexer.IndexAll(ctx, analyses, repo.ID, repo.ID)

	if report.Indexed == 0 && report.Failed > 0 {
		msg := "Error creating embedding space: no documents could be embedded."
		h.runs.Record(ctx, "create_embedding_space", body.RepositoryURL, domain.RunStatusError, msg, 0, 0)
		return c.JSON(fiber.Map{
			"status":           "error",
			"message":          msg,
			"embeddings_count": 0,
		})
	}

	msg := fmt.Sprintf("Successfully created embedding space with %d embeddings.", report.Indexed)
	h.runs.Record(ctx, "create_embedding_space", body.RepositoryURL, domain.RunStatusSuccess, msg, 0, report.Indexed)
	return c.JSON(fiber.Map{
		"status":           "success",
		"message":          msg,
		"embeddings_count": report.Indexed,
		"collection_name":  repo.ID,
	})
}

// QueryCommits answers a free-text question about a repository's history,
// grounded in its nearest sub-commits.
func (h *AnalysisHandler) QueryCommits(c fiber.Ctx) error {
	var body struct {
		RepositoryID string `json:"repository_id"`
		Query        string `json:"query"`
		K            int    `json:"k"`
	}
	if err := c.Bind().JSON(&body); err != nil || body.RepositoryID == "" || body.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "repository_id and query are required"})
	}
	if body.K <= 0 {
		body.K = h.queryK
	}

	answer, err := h.queries.Query(c.Context(), body.RepositoryID, body.Query, body.K)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("error querying commits: %s", err),
		})
	}

	// Retrieval succeeded but synthesis did not: the caller still gets the
	// neighbor ids so results are never silently lost.
	if answer.SynthesisError != "" {
		return c.JSON(fiber.Map{
			"status":        "error",
			"message":       fmt.Sprintf("Error generating AI response: %s", answer.SynthesisError),
			"subcommit_ids": answer.SubcommitIDs,
		})
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"response": fiber.Map{
			"answer":  answer.Answer,
			"sources": answer.Sources,
		},
		"subcommit_ids": answer.SubcommitIDs,
	})
}
