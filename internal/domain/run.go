package domain

import "time"

// Run is a persisted record of one top-level pipeline operation, so a caller
// can distinguish "nothing happened", "it partly worked" and "it fully
// worked" after the fact.
type Run struct {
	ID              string    `json:"id"               db:"id"`
	Kind            string    `json:"kind"             db:"kind"` // analyze, update, embed, query
	RepoURL         string    `json:"repo_url"         db:"repo_url"`
	Status          string    `json:"status"           db:"status"`
	Message         string    `json:"message"          db:"message"`
	AnalysesCount   int       `json:"analyses_count"   db:"analyses_count"`
	EmbeddingsCount int       `json:"embeddings_count" db:"embeddings_count"`
	CreatedAt       time.Time `json:"created_at"       db:"created_at"`
}

// Run status constants.
const (
	RunStatusSuccess         = "success"
	RunStatusWarning         = "warning"
	RunStatusPartialSuccess  = "partial_success"
	RunStatusAlreadyAnalyzed = "already_analyzed"
	RunStatusNotFound        = "not_found"
	RunStatusError           = "error"
)
