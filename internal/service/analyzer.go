package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arturoeanton/commitlens/internal/domain"
	"github.com/arturoeanton/commitlens/internal/port"
)

// RetryConfig bounds the retry behavior for generation calls.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultRetryConfig returns the retry policy used unless overridden.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
		Multiplier:  2.0,
	}
}

// delay returns the backoff before the given 1-based retry attempt.
func (c RetryConfig) delay(attempt int) time.Duration {
	d := c.BaseDelay
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * c.Multiplier)
		if d >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

// Analyzer decomposes single commits into sub-commit analyses via the
// generation capability, with memoization and bounded retries.
type Analyzer struct {
	generator port.Generator
	cache     Cache
	retry     RetryConfig
}

// NewAnalyzer creates a commit analyzer.
func NewAnalyzer(generator port.Generator, cache Cache, retry RetryConfig) *Analyzer {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}
	return &Analyzer{generator: generator, cache: cache, retry: retry}
}

// Analyze decomposes one commit into its logical sub-commits.
//
// A fileless commit yields an empty result without any model call. An empty
// model result for a commit that does have files is treated as a transient
// failure and retried like an error, since it almost always indicates a model
// or transport hiccup rather than a genuinely change-free diff. Every
// returned analysis carries the source commit's SHA regardless of what the
// model produced.
func (a *Analyzer) Analyze(ctx context.Context, commit domain.Commit) ([]domain.SubCommitAnalysis, error) {
	if len(commit.Files) == 0 {
		slog.Warn("commit has no files, skipping analysis", "sha", commit.SHA)
		return []domain.SubCommitAnalysis{}, nil
	}

	if cached, ok := a.cache.Get(commit.SHA); ok {
		slog.Debug("analysis cache hit", "sha", commit.SHA)
		return cached, nil
	}

	slog.Info("analyzing commit", "sha", commit.SHA, "files", len(commit.Files))

	var analyses []domain.SubCommitAnalysis
	err := a.withRetry(ctx, fmt.Sprintf("analyze %s", commit.SHA), func() error {
		result, err := a.generator.GenerateAnalyses(ctx, commit)
		if err != nil {
			return err
		}
		if len(result) == 0 {
			return port.ErrEmptyGeneration
		}
		analyses = result
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("analyze commit %s: %w", commit.SHA, err)
	}

	for i := range analyses {
		// Provenance is assigned here, never trusted from model output.
		analyses[i].CommitSHA = commit.SHA
		analyses[i].Epic = ""
		analyses[i].Files = a.attributeFiles(ctx, analyses[i], commit)
	}

	a.cache.Put(commit.SHA, analyses)
	return analyses, nil
}

// attributeFiles asks the model which of the commit's files belong to this
// sub-commit. The call has its own bounded retry; exhausting it leaves the
// sub-commit with an empty file list instead of failing the whole analysis.
func (a *Analyzer) attributeFiles(ctx context.Context, analysis domain.SubCommitAnalysis, commit domain.Commit) []domain.File {
	var names []string
	err := a.withRetry(ctx, fmt.Sprintf("attribute files %s", commit.SHA), func() error {
		result, err := a.generator.AttributeFiles(ctx, analysis, commit.Files)
		if err != nil {
			return err
		}
		names = result
		return nil
	})
	if err != nil {
		slog.Warn("file attribution failed, keeping empty file list",
			"sha", commit.SHA, "title", analysis.Title, "error", err)
		return nil
	}

	// Resolve names against the commit's actual files, preserving commit
	// order and discarding anything the model invented.
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var files []domain.File
	for _, f := range commit.Files {
		if wanted[f.Filename] {
			files = append(files, f)
		}
	}
	return files
}

// withRetry runs fn up to MaxAttempts times with exponential backoff.
func (a *Analyzer) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= a.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := a.retry.delay(attempt - 1)
			slog.Warn("retrying", "op", op, "attempt", attempt, "max", a.retry.MaxAttempts, "delay", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
	}
	return fmt.Errorf("after %d attempts: %w", a.retry.MaxAttempts, lastErr)
}
