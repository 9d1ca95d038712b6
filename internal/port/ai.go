package port

import (
	"context"

	"github.com/arturoeanton/commitlens/internal/domain"
)

// Embedder abstracts the embedding capability: text in, float vector out.
// Index-time and query-time embeddings must come from the same Embedder so
// both live in the same vector space.
type Embedder interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call, one
	// vector per input text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator abstracts the structured-generation capability. Given a prompt
// built from domain objects it returns typed results or an error; it never
// returns partially decoded output.
type Generator interface {
	// ModelName returns the identifier of the model being used.
	ModelName() string

	// GenerateAnalyses decomposes one commit into its logical sub-commits.
	// CommitSHA and Epic on the returned analyses are unset; the caller
	// assigns provenance.
	GenerateAnalyses(ctx context.Context, commit domain.Commit) ([]domain.SubCommitAnalysis, error)

	// AttributeFiles decides which of the commit's files belong to the given
	// sub-commit. Returns filenames drawn from files; unknown names are
	// discarded by the caller.
	AttributeFiles(ctx context.Context, analysis domain.SubCommitAnalysis, files []domain.File) ([]string, error)

	// GenerateAnswer produces a natural-language answer to the user query
	// grounded in the retrieved sub-commits.
	GenerateAnswer(ctx context.Context, query string, sources []domain.SubCommitAnalysis) (string, error)

	// GenerateEpicTitle produces a short label grouping semantically related
	// sub-commits.
	GenerateEpicTitle(ctx context.Context, subcommits []domain.SubCommitAnalysis) (string, error)
}
