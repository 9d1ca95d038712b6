package domain

import "time"

// File describes one changed file within a commit, including the unified
// diff patch when the hosting API provides it.
type File struct {
	Filename  string `json:"filename"  db:"filename"`
	Additions int    `json:"additions" db:"additions"`
	Deletions int    `json:"deletions" db:"deletions"`
	Changes   int    `json:"changes"   db:"changes"`
	Status    string `json:"status"    db:"status"` // added, modified, removed, renamed
	RawURL    string `json:"raw_url"   db:"raw_url"`
	BlobURL   string `json:"blob_url"  db:"blob_url"`
	Patch     string `json:"patch,omitempty" db:"patch"`
}

// Commit is an immutable record of one source-control commit, keyed by SHA.
type Commit struct {
	SHA         string    `json:"sha"          db:"sha"`
	RepoID      string    `json:"repo_id"      db:"repo_id"`
	Author      string    `json:"author"       db:"author"`
	AuthorEmail string    `json:"author_email" db:"author_email"`
	Date        time.Time `json:"date"         db:"date"`
	Message     string    `json:"message"      db:"message"`
	URL         string    `json:"url"          db:"url"`
	Files       []File    `json:"files"        db:"files"`
}
