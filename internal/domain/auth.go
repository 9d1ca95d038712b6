package domain

// UserContext carries the authenticated caller's identity through a request.
type UserContext struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// AuditLog records one API request for traceability.
type AuditLog struct {
	ID         string `json:"id"          db:"id"`
	UserID     string `json:"user_id"     db:"user_id"`
	Action     string `json:"action"      db:"action"`
	Resource   string `json:"resource"    db:"resource"`
	ResourceID string `json:"resource_id" db:"resource_id"`
	Details    string `json:"details"     db:"details"`
	IP         string `json:"ip"          db:"ip"`
	UserAgent  string `json:"user_agent"  db:"user_agent"`
	CreatedAt  string `json:"created_at"  db:"created_at"`
}
