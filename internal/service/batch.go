package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/arturoeanton/commitlens/internal/domain"
)

// DefaultBatchSize is the group size used when none is configured.
const DefaultBatchSize = 50

// CommitAnalyzer analyzes one commit. Satisfied by *Analyzer.
type CommitAnalyzer interface {
	Analyze(ctx context.Context, commit domain.Commit) ([]domain.SubCommitAnalysis, error)
}

// BatchResult aggregates a batch run. Analyzed + Failed equals the number of
// input commits; a failed commit contributes no analyses but never aborts its
// siblings.
type BatchResult struct {
	Analyses []domain.SubCommitAnalysis
	Analyzed int
	Failed   int
}

// BatchOrchestrator fans commit analyses out over fixed-size groups. Groups
// run concurrently with each other and every commit within a group gets its
// own goroutine, so the flattened output preserves group order and intra-group
// input order but interleaving across groups is not synchronized beyond the
// final join.
type BatchOrchestrator struct {
	analyzer  CommitAnalyzer
	batchSize int
}

// NewBatchOrchestrator creates a batch orchestrator.
func NewBatchOrchestrator(analyzer CommitAnalyzer, batchSize int) *BatchOrchestrator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BatchOrchestrator{analyzer: analyzer, batchSize: batchSize}
}

// AnalyzeBatch analyzes every commit, isolating per-commit failures. Failures
// are logged with the commit SHA and counted, not surfaced.
func (o *BatchOrchestrator) AnalyzeBatch(ctx context.Context, commits []domain.Commit) *BatchResult {
	if len(commits) == 0 {
		return &BatchResult{}
	}

	groups := o.partition(commits)
	slog.Info("analyzing commits in batches", "commits", len(commits), "groups", len(groups), "batch_size", o.batchSize)

	perGroup := make([][][]domain.SubCommitAnalysis, len(groups))
	var analyzed, failed atomic.Int64

	var wg sync.WaitGroup
	for gi, group := range groups {
		perGroup[gi] = make([][]domain.SubCommitAnalysis, len(group))
		for ci, commit := range group {
			wg.Add(1)
			go func(gi, ci int, commit domain.Commit) {
				defer wg.Done()
				analyses, err := o.analyzer.Analyze(ctx, commit)
				if err != nil {
					slog.Error("commit analysis failed", "sha", commit.SHA, "error", err)
					failed.Add(1)
					return
				}
				perGroup[gi][ci] = analyses
				analyzed.Add(1)
			}(gi, ci, commit)
		}
	}
	wg.Wait()

	result := &BatchResult{
		Analyzed: int(analyzed.Load()),
		Failed:   int(failed.Load()),
	}
	for _, group := range perGroup {
		for _, analyses := range group {
			result.Analyses = append(result.Analyses, analyses...)
		}
	}

	slog.Info("batch analysis complete",
		"analyses", len(result.Analyses), "analyzed", result.Analyzed, "failed", result.Failed)
	return result
}

// partition splits commits into consecutive groups of batchSize, preserving
// input order.
func (o *BatchOrchestrator) partition(commits []domain.Commit) [][]domain.Commit {
	var groups [][]domain.Commit
	for start := 0; start < len(commits); start += o.batchSize {
		end := start + o.batchSize
		if end > len(commits) {
			end = len(commits)
		}
		groups = append(groups, commits[start:end])
	}
	return groups
}
