package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/arturoeanton/commitlens/internal/domain"
	"github.com/arturoeanton/commitlens/internal/port"
)

const (
	shaPrefixLen = 12
	slugMaxLen   = 24
)

// Indexer converts sub-commit analyses into embedded documents in the vector
// index, one collection per repository.
type Indexer struct {
	embedder  port.Embedder
	index     port.VectorIndex
	generator port.Generator
	store     port.AnalysisStore
}

// NewIndexer creates an indexer.
func NewIndexer(embedder port.Embedder, index port.VectorIndex, generator port.Generator, store port.AnalysisStore) *Indexer {
	return &Indexer{embedder: embedder, index: index, generator: generator, store: store}
}

// SubcommitText renders the deterministic serialization that is embedded.
// This text is the unit of semantic comparison: two sub-commits are similar
// exactly to the extent their serializations embed close together.
func SubcommitText(a domain.SubCommitAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", a.Title)
	fmt.Fprintf(&b, "Idea: %s\n", a.Idea)
	fmt.Fprintf(&b, "Description: %s\n", a.Description)
	fmt.Fprintf(&b, "Type: %s\n", a.Type)
	for _, f := range a.Files {
		fmt.Fprintf(&b, "File: %s (status: %s, +%d/-%d)\n", f.Filename, f.Status, f.Additions, f.Deletions)
		if f.Patch != "" {
			fmt.Fprintf(&b, "%s\n", f.Patch)
		}
	}
	return b.String()
}

// DocumentID derives a stable, short, human-legible identifier from the
// owning commit's SHA and a slug of the title.
func DocumentID(a domain.SubCommitAnalysis) string {
	sha := a.CommitSHA
	if len(sha) > shaPrefixLen {
		sha = sha[:shaPrefixLen]
	}
	return sha + "-" + slugify(a.Title)
}

// slugify lowercases the title, strips everything but letters and digits, and
// caps the length.
func slugify(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
		if b.Len() >= slugMaxLen {
			break
		}
	}
	return b.String()
}

// Index embeds one sub-commit and upserts it into the named collection.
// The collection comes into existence with its first insert.
func (ix *Indexer) Index(ctx context.Context, a domain.SubCommitAnalysis, repoID, collection string) (*domain.Document, error) {
	text := SubcommitText(a)

	vector, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed subcommit %d: %w", a.ID, err)
	}

	doc := domain.Document{
		ID:     DocumentID(a),
		Vector: vector,
		Metadata: map[string]interface{}{
			"subcommit_id": a.ID,
			"commit_sha":   a.CommitSHA,
			"title":        a.Title,
			"type":         string(a.Type),
			"repo_id":      repoID,
			"content":      fmt.Sprintf("Title: %s\nDescription: %s\nIdea: %s", a.Title, a.Description, a.Idea),
		},
	}

	if err := ix.index.Upsert(ctx, collection, []domain.Document{doc}); err != nil {
		return nil, fmt.Errorf("upsert document %s: %w", doc.ID, err)
	}
	return &doc, nil
}

// IndexReport counts an IndexAll run. Per-item failures never abort the rest.
type IndexReport struct {
	Indexed int
	Failed  int
}

// IndexAll indexes every analysis into the collection, continuing past
// per-item failures and reporting counts.
func (ix *Indexer) IndexAll(ctx context.Context, analyses []domain.SubCommitAnalysis, repoID, collection string) *IndexReport {
	report := &IndexReport{}
	for _, a := range analyses {
		if _, err := ix.Index(ctx, a, repoID, collection); err != nil {
			slog.Error("indexing subcommit failed", "subcommit_id", a.ID, "sha", a.CommitSHA, "error", err)
			report.Failed++
			continue
		}
		report.Indexed++
	}
	slog.Info("indexing complete", "collection", collection, "indexed", report.Indexed, "failed", report.Failed)
	return report
}

// LabelEpic finds the k nearest neighbors of the given sub-commit, asks the
// generator for a grouping title, and stamps it on the neighbor set.
func (ix *Indexer) LabelEpic(ctx context.Context, a domain.SubCommitAnalysis, collection string, k int) (string, error) {
	vector, err := ix.embedder.Embed(ctx, SubcommitText(a))
	if err != nil {
		return "", fmt.Errorf("embed subcommit %d: %w", a.ID, err)
	}

	neighbors, err := ix.index.KNearest(ctx, collection, vector, k)
	if err != nil {
		return "", fmt.Errorf("find neighbors: %w", err)
	}
	if len(neighbors) == 0 {
		return "", nil
	}

	members := []domain.SubCommitAnalysis{a}
	ids := []int64{a.ID}
	for _, n := range neighbors {
		id, ok := subcommitID(n.Metadata)
		if !ok || id == a.ID {
			continue
		}
		hydrated, err := ix.store.GetAnalysisByID(ctx, id)
		if err != nil {
			slog.Warn("skipping neighbor, hydration failed", "document_id", n.ID, "error", err)
			continue
		}
		members = append(members, *hydrated)
		ids = append(ids, hydrated.ID)
	}

	title, err := ix.generator.GenerateEpicTitle(ctx, members)
	if err != nil {
		return "", fmt.Errorf("generate epic title: %w", err)
	}

	if err := ix.store.SetAnalysisEpic(ctx, ids, title); err != nil {
		return "", fmt.Errorf("assign epic %q: %w", title, err)
	}
	return title, nil
}

// subcommitID extracts the analysis ID from document metadata. JSON numbers
// decode as float64.
func subcommitID(metadata map[string]interface{}) (int64, bool) {
	switch v := metadata["subcommit_id"].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
