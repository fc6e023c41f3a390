package domain

import "context"

// UserRow represents an account record returned from the record store.
// It includes the password hash so the Logic layer can verify credentials.
type UserRow struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// UserRepository defines the data-access contract for account operations.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only — never on the REST client
// directly.
type UserRepository interface {
	// GetByUsername returns the first account matching the given username
	// exactly (case-sensitive). Returns (nil, nil) when no account is found.
	GetByUsername(ctx context.Context, username string) (*UserRow, error)

	// ExistsByUsername returns true when an account with the given username
	// already exists. Used for the pre-insert duplicate check; the store does
	// not enforce uniqueness atomically, so two concurrent creations can both
	// pass this check (known race, kept from the original contract).
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// Create inserts a new account and returns the store-assigned ID.
	Create(ctx context.Context, username, passwordHash string) (int64, error)
}
