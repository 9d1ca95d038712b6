package domain

import (
	"strings"
	"time"
)

// ChangeType classifies a sub-commit into one of a closed set of categories.
type ChangeType string

// Sub-commit change types.
const (
	TypeFeature   ChangeType = "FEATURE"
	TypeBug       ChangeType = "BUG"
	TypeRefactor  ChangeType = "REFACTOR"
	TypeDocs      ChangeType = "DOCS"
	TypeTest      ChangeType = "TEST"
	TypeStyle     ChangeType = "STYLE"
	TypeChore     ChangeType = "CHORE"
	TypeMilestone ChangeType = "MILESTONE"
	TypeWarning   ChangeType = "WARNING"
)

// ParseChangeType normalizes a model-supplied type string to a ChangeType.
// Unrecognized values fall back to CHORE rather than failing the analysis.
func ParseChangeType(s string) ChangeType {
	switch ChangeType(strings.ToUpper(strings.TrimSpace(s))) {
	case TypeFeature, TypeBug, TypeRefactor, TypeDocs, TypeTest, TypeStyle, TypeChore, TypeMilestone, TypeWarning:
		return ChangeType(strings.ToUpper(strings.TrimSpace(s)))
	}
	switch {
	case strings.Contains(strings.ToLower(s), "bug"), strings.Contains(strings.ToLower(s), "fix"):
		return TypeBug
	case strings.Contains(strings.ToLower(s), "feat"):
		return TypeFeature
	case strings.Contains(strings.ToLower(s), "doc"):
		return TypeDocs
	case strings.Contains(strings.ToLower(s), "refactor"):
		return TypeRefactor
	case strings.Contains(strings.ToLower(s), "test"):
		return TypeTest
	case strings.Contains(strings.ToLower(s), "style"):
		return TypeStyle
	default:
		return TypeChore
	}
}

// SubCommitAnalysis is one logical, single-purpose unit of work extracted
// from a larger commit by the generative model. CommitSHA and Epic are
// assigned by the system, never trusted from model output.
type SubCommitAnalysis struct {
	ID          int64      `json:"id"          db:"id"`
	Title       string     `json:"title"       db:"title"`
	Idea        string     `json:"idea"        db:"idea"`
	Description string     `json:"description" db:"description"`
	Type        ChangeType `json:"type"        db:"type"`
	CommitSHA   string     `json:"commit_sha"  db:"commit_sha"`
	Epic        string     `json:"epic"        db:"epic"`
	Files       []File     `json:"files"       db:"files"`
	CreatedAt   time.Time  `json:"created_at"  db:"created_at"`
}
