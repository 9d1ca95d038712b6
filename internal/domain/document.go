package domain

// Document is an embedded sub-commit stored in the vector index. The ID is
// derived from the owning sub-commit (commit SHA plus a title slug) and the
// metadata carries enough denormalized fields to list results without a join.
type Document struct {
	ID       string                 `json:"id"`
	Vector   []float32              `json:"-"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Neighbor is one nearest-neighbor result from a vector query. Similarity is
// 1 - cosine distance, which is only meaningful because the index uses a
// normalized distance metric.
type Neighbor struct {
	ID         string                 `json:"id"`
	Metadata   map[string]interface{} `json:"metadata"`
	Distance   float64                `json:"distance"`
	Similarity float64                `json:"similarity"`
}
