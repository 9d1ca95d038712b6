package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/commitlens/internal/domain"
)

// stubGenerator fails every call when err is set, and counts invocations.
type stubGenerator struct {
	name  string
	err   error
	calls int
}

func (s *stubGenerator) ModelName() string { return s.name }

func (s *stubGenerator) GenerateAnalyses(context.Context, domain.Commit) ([]domain.SubCommitAnalysis, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []domain.SubCommitAnalysis{{Title: "from " + s.name}}, nil
}

func (s *stubGenerator) AttributeFiles(context.Context, domain.SubCommitAnalysis, []domain.File) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []string{"main.go"}, nil
}

func (s *stubGenerator) GenerateAnswer(context.Context, string, []domain.SubCommitAnalysis) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "answer from " + s.name, nil
}

func (s *stubGenerator) GenerateEpicTitle(context.Context, []domain.SubCommitAnalysis) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "epic from " + s.name, nil
}

func TestFallbackPrimarySucceeds(t *testing.T) {
	primary := &stubGenerator{name: "primary"}
	spare := &stubGenerator{name: "spare"}
	chain := NewFallback(primary, spare)

	analyses, err := chain.GenerateAnalyses(context.Background(), domain.Commit{SHA: "abc"})

	require.NoError(t, err)
	require.Len(t, analyses, 1)
	assert.Equal(t, "from primary", analyses[0].Title)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, spare.calls)
}

func TestFallbackMovesToNextGenerator(t *testing.T) {
	primary := &stubGenerator{name: "primary", err: errors.New("overloaded")}
	spare := &stubGenerator{name: "spare"}
	chain := NewFallback(primary, spare)

	answer, err := chain.GenerateAnswer(context.Background(), "query", nil)

	require.NoError(t, err)
	assert.Equal(t, "answer from spare", answer)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, spare.calls)
}

func TestFallbackExhaustedSurfacesLastError(t *testing.T) {
	first := &stubGenerator{name: "first", err: errors.New("first down")}
	second := &stubGenerator{name: "second", err: errors.New("second down")}
	chain := NewFallback(first, second)

	_, err := chain.GenerateAnalyses(context.Background(), domain.Commit{SHA: "abc"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 generators failed")
	assert.ErrorContains(t, err, "second down")
}

func TestFallbackModelNameIsPrimary(t *testing.T) {
	chain := NewFallback(&stubGenerator{name: "primary"}, &stubGenerator{name: "spare"})
	assert.Equal(t, "primary", chain.ModelName())

	assert.Empty(t, NewFallback().ModelName())
}

func TestFallbackNoGeneratorsConfigured(t *testing.T) {
	chain := NewFallback()

	_, err := chain.GenerateEpicTitle(context.Background(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no generators configured")
}
