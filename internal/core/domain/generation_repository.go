package domain

import "context"

// GenerationRow represents one persisted image generation.
// CreatedAt carries the store's timestamp string verbatim; display
// formatting happens at the web layer.
type GenerationRow struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	ImageLink  string `json:"image_link"`
	PromptUsed string `json:"prompt_used"`
	CreatedAt  string `json:"created_at"`
}

// GenerationRepository defines the data-access contract for generation
// history. Implementations live in internal/core/repository (Core layer).
type GenerationRepository interface {
	// Create persists a generation record and returns the store-assigned ID.
	// created_at is assigned server-side.
	Create(ctx context.Context, userID int64, imageLink, promptUsed string) (int64, error)

	// ListByUser returns every generation belonging to userID, newest first
	// (created_at descending).
	ListByUser(ctx context.Context, userID int64) ([]GenerationRow, error)
}
