package port

import "errors"

// Sentinel errors used across ports.
var (
	// ErrDuplicate signals a uniqueness-constraint violation in the store.
	// The store's constraint, not the application pre-check, is the final
	// arbiter of dedup under concurrent callers.
	ErrDuplicate = errors.New("duplicate record")

	// ErrRepoNotFound signals the hosting service does not know the repository.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrEmptyGeneration signals a schema-valid but empty model result where a
	// non-empty one was expected; treated as a transient failure.
	ErrEmptyGeneration = errors.New("model returned empty result")

	// ErrAnalysisNotFound signals a vector-store identifier that no longer
	// resolves to a stored sub-commit analysis.
	ErrAnalysisNotFound = errors.New("analysis not found")

	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)
