package domain

import "time"

// Repository is a registered source repository. ID is the identifier assigned
// by the hosting service and is unique across the store; a second registration
// attempt for the same ID is the "already analyzed" signal.
type Repository struct {
	ID        string    `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	URL       string    `json:"url"        db:"url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
