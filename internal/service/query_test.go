package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/commitlens/internal/domain"
)

func neighborFor(id int64, docID string, similarity float64) domain.Neighbor {
	return domain.Neighbor{
		ID:         docID,
		Metadata:   map[string]interface{}{"subcommit_id": float64(id)},
		Distance:   1 - similarity,
		Similarity: similarity,
	}
}

func TestQueryNoNeighborsSkipsGenerator(t *testing.T) {
	gen := &mockGenerator{}
	svc := NewQueryService(&mockEmbedder{}, &mockIndex{}, &mockStore{}, gen)

	answer, err := svc.Query(context.Background(), "777", "what changed?", 5)

	require.NoError(t, err)
	assert.Equal(t, "No relevant sub-commits found for this query.", answer.Answer)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, gen.answerCalls)
}

func TestQueryHydratesNeighborsAndAnswers(t *testing.T) {
	index := &mockIndex{
		kNearestFn: func(collection string, _ []float32, k int) ([]domain.Neighbor, error) {
			assert.Equal(t, "777", collection)
			assert.Equal(t, 2, k)
			return []domain.Neighbor{
				neighborFor(10, "aaa111-first", 0.92),
				neighborFor(20, "bbb222-second", 0.85),
			}, nil
		},
	}
	store := &mockStore{
		getAnalysisFn: func(id int64) (*domain.SubCommitAnalysis, error) {
			return &domain.SubCommitAnalysis{ID: id, Title: "work"}, nil
		},
	}
	gen := &mockGenerator{
		answerFn: func(query string, sources []domain.SubCommitAnalysis) (string, error) {
			assert.Len(t, sources, 2)
			return "Things changed around login.", nil
		},
	}
	svc := NewQueryService(&mockEmbedder{}, index, store, gen)

	answer, err := svc.Query(context.Background(), "777", "what changed?", 2)

	require.NoError(t, err)
	assert.Equal(t, "Things changed around login.", answer.Answer)
	assert.Empty(t, answer.SynthesisError)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "aaa111-first", answer.Sources[0].DocumentID)
	assert.InDelta(t, 0.92, answer.Sources[0].Similarity, 1e-9)
	// Ids survive the round trip through the index metadata unchanged.
	assert.Equal(t, []int64{10, 20}, answer.SubcommitIDs)
}

func TestQuerySynthesisFailureKeepsSources(t *testing.T) {
	index := &mockIndex{
		kNearestFn: func(string, []float32, int) ([]domain.Neighbor, error) {
			return []domain.Neighbor{neighborFor(10, "aaa111-first", 0.9)}, nil
		},
	}
	gen := &mockGenerator{
		answerFn: func(string, []domain.SubCommitAnalysis) (string, error) {
			return "", errors.New("model timeout")
		},
	}
	svc := NewQueryService(&mockEmbedder{}, index, &mockStore{}, gen)

	answer, err := svc.Query(context.Background(), "777", "what changed?", 5)

	require.NoError(t, err)
	assert.Equal(t, "model timeout", answer.SynthesisError)
	assert.Empty(t, answer.Answer)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, []int64{10}, answer.SubcommitIDs)
}

func TestQuerySkipsUnresolvableNeighbors(t *testing.T) {
	index := &mockIndex{
		kNearestFn: func(string, []float32, int) ([]domain.Neighbor, error) {
			return []domain.Neighbor{
				neighborFor(10, "aaa111-first", 0.9),
				{ID: "bbb222-orphan", Metadata: map[string]interface{}{}},
				neighborFor(30, "ccc333-third", 0.7),
			}, nil
		},
	}
	store := &mockStore{
		getAnalysisFn: func(id int64) (*domain.SubCommitAnalysis, error) {
			if id == 30 {
				return nil, errors.New("row gone")
			}
			return &domain.SubCommitAnalysis{ID: id}, nil
		},
	}
	gen := &mockGenerator{
		answerFn: func(_ string, sources []domain.SubCommitAnalysis) (string, error) {
			return "partial grounding", nil
		},
	}
	svc := NewQueryService(&mockEmbedder{}, index, store, gen)

	answer, err := svc.Query(context.Background(), "777", "what changed?", 5)

	require.NoError(t, err)
	assert.Equal(t, "partial grounding", answer.Answer)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, []int64{10}, answer.SubcommitIDs)
}

func TestQueryAllNeighborsUnresolvableShortCircuits(t *testing.T) {
	index := &mockIndex{
		kNearestFn: func(string, []float32, int) ([]domain.Neighbor, error) {
			return []domain.Neighbor{{ID: "doc", Metadata: map[string]interface{}{}}}, nil
		},
	}
	gen := &mockGenerator{}
	svc := NewQueryService(&mockEmbedder{}, index, &mockStore{}, gen)

	answer, err := svc.Query(context.Background(), "777", "what changed?", 5)

	require.NoError(t, err)
	assert.Equal(t, "No relevant sub-commits found for this query.", answer.Answer)
	assert.Zero(t, gen.answerCalls)
}

func TestIndexThenQueryResolvesOriginals(t *testing.T) {
	embedder := &mockEmbedder{}
	index := &mockIndex{}
	byID := map[int64]domain.SubCommitAnalysis{
		1: sampleAnalysis(1, "aaa111000000", "first change"),
		2: sampleAnalysis(2, "bbb222000000", "second change"),
		3: sampleAnalysis(3, "ccc333000000", "third change"),
	}
	store := &mockStore{
		getAnalysisFn: func(id int64) (*domain.SubCommitAnalysis, error) {
			a, ok := byID[id]
			if !ok {
				return nil, errors.New("unknown analysis")
			}
			return &a, nil
		},
	}

	ix := NewIndexer(embedder, index, &mockGenerator{}, store)
	for _, a := range byID {
		_, err := ix.Index(context.Background(), a, "repo123", "repo123")
		require.NoError(t, err)
	}
	require.Len(t, index.upserted["repo123"], 3)

	// Retrieval serves whatever the index holds, capped at k.
	index.kNearestFn = func(collection string, _ []float32, k int) ([]domain.Neighbor, error) {
		docs := index.upserted[collection]
		if len(docs) > k {
			docs = docs[:k]
		}
		neighbors := make([]domain.Neighbor, 0, len(docs))
		for _, d := range docs {
			neighbors = append(neighbors, domain.Neighbor{ID: d.ID, Metadata: d.Metadata, Similarity: 0.9})
		}
		return neighbors, nil
	}

	svc := NewQueryService(embedder, index, store, &mockGenerator{
		answerFn: func(string, []domain.SubCommitAnalysis) (string, error) { return "grounded", nil },
	})

	answer, err := svc.Query(context.Background(), "repo123", "what changed?", 2)

	require.NoError(t, err)
	require.Len(t, answer.Sources, 2)
	for _, src := range answer.Sources {
		original, ok := byID[src.Analysis.ID]
		require.True(t, ok, "neighbor %s must resolve to an indexed sub-commit", src.DocumentID)
		assert.Equal(t, original.Title, src.Analysis.Title)
	}
}

func TestQueryEmbedFailureAborts(t *testing.T) {
	embedder := &mockEmbedder{
		embedFn: func(string) ([]float32, error) { return nil, errors.New("embedding down") },
	}
	svc := NewQueryService(embedder, &mockIndex{}, &mockStore{}, &mockGenerator{})

	_, err := svc.Query(context.Background(), "777", "what changed?", 5)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed query")
}
