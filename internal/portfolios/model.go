package portfolios

import "time"

// Portfolio is a generated HTML portfolio document stored for a user.
type Portfolio struct {
	ID         string
	UserID     string
	WorkflowID string
	StorageKey string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
	DeletedAt  *time.Time
}
