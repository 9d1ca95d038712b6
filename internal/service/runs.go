package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/arturoeanton/commitlens/internal/domain"
	"github.com/arturoeanton/commitlens/internal/port"
)

// RunRecorder persists pipeline run records. Recording is best-effort: a
// write failure is logged, never propagated into the pipeline result.
type RunRecorder struct {
	store port.AnalysisStore
}

// NewRunRecorder creates a run recorder.
func NewRunRecorder(store port.AnalysisStore) *RunRecorder {
	return &RunRecorder{store: store}
}

// Record writes one run record and returns its id.
func (r *RunRecorder) Record(ctx context.Context, kind, repoURL, status, message string, analyses, embeddings int) string {
	run := &domain.Run{
		ID:              uuid.New().String(),
		Kind:            kind,
		RepoURL:         repoURL,
		Status:          status,
		Message:         message,
		AnalysesCount:   analyses,
		EmbeddingsCount: embeddings,
	}
	if err := r.store.InsertRun(ctx, run); err != nil {
		slog.Error("recording run failed", "kind", kind, "repo_url", repoURL, "error", err)
	}
	return run.ID
}
