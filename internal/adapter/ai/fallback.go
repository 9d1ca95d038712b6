package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arturoeanton/commitlens/internal/domain"
	"github.com/arturoeanton/commitlens/internal/port"
)

// Fallback chains an ordered list of generators behind the port.Generator
// interface. Each call tries the generators in rank order and returns the
// first success; when every generator fails, the last error surfaces.
type Fallback struct {
	generators []port.Generator
}

// NewFallback creates a fallback chain. The first generator is the primary.
func NewFallback(generators ...port.Generator) *Fallback {
	return &Fallback{generators: generators}
}

// ModelName returns the primary model's identifier.
func (f *Fallback) ModelName() string {
	if len(f.generators) == 0 {
		return ""
	}
	return f.generators[0].ModelName()
}

func (f *Fallback) GenerateAnalyses(ctx context.Context, commit domain.Commit) ([]domain.SubCommitAnalysis, error) {
	var lastErr error
	for _, g := range f.generators {
		analyses, err := g.GenerateAnalyses(ctx, commit)
		if err == nil {
			return analyses, nil
		}
		lastErr = err
		slog.Warn("generator failed, trying fallback", "model", g.ModelName(), "sha", commit.SHA, "error", err)
	}
	return nil, f.exhausted(lastErr)
}

func (f *Fallback) AttributeFiles(ctx context.Context, analysis domain.SubCommitAnalysis, files []domain.File) ([]string, error) {
	var lastErr error
	for _, g := range f.generators {
		names, err := g.AttributeFiles(ctx, analysis, files)
		if err == nil {
			return names, nil
		}
		lastErr = err
		slog.Warn("file attribution failed, trying fallback", "model", g.ModelName(), "error", err)
	}
	return nil, f.exhausted(lastErr)
}

func (f *Fallback) GenerateAnswer(ctx context.Context, query string, sources []domain.SubCommitAnalysis) (string, error) {
	var lastErr error
	for _, g := range f.generators {
		answer, err := g.GenerateAnswer(ctx, query, sources)
		if err == nil {
			return answer, nil
		}
		lastErr = err
		slog.Warn("answer generation failed, trying fallback", "model", g.ModelName(), "error", err)
	}
	return "", f.exhausted(lastErr)
}

func (f *Fallback) GenerateEpicTitle(ctx context.Context, subcommits []domain.SubCommitAnalysis) (string, error) {
	var lastErr error
	for _, g := range f.generators {
		title, err := g.GenerateEpicTitle(ctx, subcommits)
		if err == nil {
			return title, nil
		}
		lastErr = err
		slog.Warn("epic title generation failed, trying fallback", "model", g.ModelName(), "error", err)
	}
	return "", f.exhausted(lastErr)
}

func (f *Fallback) exhausted(lastErr error) error {
	if lastErr == nil {
		return fmt.Errorf("no generators configured")
	}
	return fmt.Errorf("all %d generators failed: %w", len(f.generators), lastErr)
}
