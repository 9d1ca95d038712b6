package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arturoeanton/commitlens/internal/domain"
)

// VectorStore implements port.VectorIndex on pgvector. Collections are
// logical partitions within one table, keyed by collection name, so they come
// into existence with their first upsert.
type VectorStore struct {
	store     *PostgresStore
	dimension int
}

// NewVectorStore creates a vector index backed by the given Postgres store.
func NewVectorStore(store *PostgresStore, dimension int) *VectorStore {
	return &VectorStore{store: store, dimension: dimension}
}

// Upsert inserts or replaces documents in the named collection.
func (v *VectorStore) Upsert(ctx context.Context, collection string, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO subcommit_vectors (collection, id, metadata, vector)
		 VALUES ($1, $2, $3::jsonb, $4::vector)
		 ON CONFLICT (collection, id) DO UPDATE SET metadata = EXCLUDED.metadata, vector = EXCLUDED.vector`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		if v.dimension > 0 && len(doc.Vector) != v.dimension {
			return fmt.Errorf("document %s: vector dimension %d, want %d", doc.ID, len(doc.Vector), v.dimension)
		}
		metadata, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, collection, doc.ID, metadata, vectorToString(doc.Vector)); err != nil {
			return fmt.Errorf("upsert document %s: %w", doc.ID, err)
		}
	}

	return tx.Commit()
}

// KNearest returns the k nearest neighbors by cosine distance, nearest first.
// Similarity is 1 - distance; pgvector's <=> operator returns a normalized
// cosine distance, so the projection is the cosine similarity.
func (v *VectorStore) KNearest(ctx context.Context, collection string, vector []float32, k int) ([]domain.Neighbor, error) {
	query := `SELECT id, metadata::text, vector <=> $1::vector AS distance,
	                 1 - (vector <=> $1::vector) AS similarity
	          FROM subcommit_vectors
	          WHERE collection = $2
	          ORDER BY vector <=> $1::vector
	          LIMIT $3`

	rows, err := v.store.db.QueryContext(ctx, query, vectorToString(vector), collection, k)
	if err != nil {
		return nil, fmt.Errorf("k nearest: %w", err)
	}
	defer rows.Close()

	var neighbors []domain.Neighbor
	for rows.Next() {
		var n domain.Neighbor
		var metadataJSON string
		if err := rows.Scan(&n.ID, &metadataJSON, &n.Distance, &n.Similarity); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &n.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		neighbors = append(neighbors, n)
	}
	return neighbors, rows.Err()
}

// DeleteCollection removes every document in the named collection.
func (v *VectorStore) DeleteCollection(ctx context.Context, collection string) error {
	_, err := v.store.db.ExecContext(ctx,
		`DELETE FROM subcommit_vectors WHERE collection = $1`, collection)
	return err
}

// vectorToString converts a float32 slice to pgvector string format: [0.1,0.2,0.3].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = fmt.Sprintf("%g", val)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
