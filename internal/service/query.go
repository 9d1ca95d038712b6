package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arturoeanton/commitlens/internal/domain"
	"github.com/arturoeanton/commitlens/internal/port"
)

// Source is one retrieved sub-commit backing an answer.
type Source struct {
	Analysis   domain.SubCommitAnalysis `json:"analysis"`
	DocumentID string                   `json:"document_id"`
	Similarity float64                  `json:"similarity"`
}

// Answer is the result of a similarity query. When synthesis fails the
// retrieved sources and their ids are still populated, so the caller always
// has partial results.
type Answer struct {
	Answer         string   `json:"answer"`
	Sources        []Source `json:"sources"`
	SubcommitIDs   []int64  `json:"subcommit_ids"`
	SynthesisError string   `json:"synthesis_error,omitempty"`
}

// QueryService answers free-text questions about a repository's history by
// retrieving nearest sub-commits and grounding a generated answer in them.
type QueryService struct {
	embedder  port.Embedder
	index     port.VectorIndex
	store     port.AnalysisStore
	generator port.Generator
}

// NewQueryService creates a query service.
func NewQueryService(embedder port.Embedder, index port.VectorIndex, store port.AnalysisStore, generator port.Generator) *QueryService {
	return &QueryService{embedder: embedder, index: index, store: store, generator: generator}
}

// Query embeds the question, retrieves the k nearest sub-commits from the
// named collection, hydrates them from the relational store, and asks the
// generator for an answer grounded in them. Zero neighbors short-circuits
// without a generator call.
func (q *QueryService) Query(ctx context.Context, collection, query string, k int) (*Answer, error) {
	slog.Info("similarity query", "collection", collection, "k", k)

	vector, err := q.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	neighbors, err := q.index.KNearest(ctx, collection, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search neighbors: %w", err)
	}

	if len(neighbors) == 0 {
		slog.Info("no neighbors found", "collection", collection)
		return &Answer{Answer: "No relevant sub-commits found for this query."}, nil
	}

	answer := &Answer{}
	var hydrated []domain.SubCommitAnalysis
	for _, n := range neighbors {
		id, ok := subcommitID(n.Metadata)
		if !ok {
			slog.Warn("neighbor missing subcommit_id", "document_id", n.ID)
			continue
		}
		analysis, err := q.store.GetAnalysisByID(ctx, id)
		if err != nil {
			slog.Warn("skipping neighbor, hydration failed", "document_id", n.ID, "error", err)
			continue
		}
		hydrated = append(hydrated, *analysis)
		answer.Sources = append(answer.Sources, Source{
			Analysis:   *analysis,
			DocumentID: n.ID,
			Similarity: n.Similarity,
		})
		answer.SubcommitIDs = append(answer.SubcommitIDs, id)
	}

	if len(hydrated) == 0 {
		return &Answer{Answer: "No relevant sub-commits found for this query."}, nil
	}

	text, err := q.generator.GenerateAnswer(ctx, query, hydrated)
	if err != nil {
		// Synthesis failure is not fatal: the caller still gets the sources.
		slog.Error("answer synthesis failed", "collection", collection, "error", err)
		answer.SynthesisError = err.Error()
		return answer, nil
	}

	answer.Answer = text
	return answer, nil
}
