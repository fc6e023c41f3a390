package repository

import (
	"context"
	"fmt"

	"github.com/duynhne/imagegen-service/internal/core/domain"
	"github.com/duynhne/imagegen-service/internal/core/supabase"
)

const usersTable = "users"

// SupabaseUserRepository implements domain.UserRepository over the record
// store's REST surface.
type SupabaseUserRepository struct {
	client *supabase.Client
}

// NewUserRepository creates a new SupabaseUserRepository.
func NewUserRepository(client *supabase.Client) *SupabaseUserRepository {
	return &SupabaseUserRepository{client: client}
}

// GetByUsername returns the first account matching the given username.
// Returns (nil, nil) when no account is found.
func (r *SupabaseUserRepository) GetByUsername(ctx context.Context, username string) (*domain.UserRow, error) {
	resp, err := r.client.From(usersTable).
		Select("id,username,password_hash,created_at").
		Eq("username", username).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []domain.UserRow
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// First match wins; duplicates can exist because uniqueness is only
	// checked client-side before insert.
	return &rows[0], nil
}

// ExistsByUsername returns true when an account with the given username
// already exists.
func (r *SupabaseUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	resp, err := r.client.From(usersTable).
		Select("id").
		Eq("username", username).
		Limit(1).
		Execute(ctx)
	if err != nil {
		return false, fmt.Errorf("query users: %w", err)
	}
	if err := resp.Error(); err != nil {
		return false, err
	}

	var rows []struct {
		ID int64 `json:"id"`
	}
	if err := resp.JSON(&rows); err != nil {
		return false, fmt.Errorf("decode users: %w", err)
	}

	return len(rows) > 0, nil
}

// Create inserts a new account and returns the store-assigned ID.
func (r *SupabaseUserRepository) Create(ctx context.Context, username, passwordHash string) (int64, error) {
	resp, err := r.client.From(usersTable).ExecuteInsert(ctx, map[string]string{
		"username":      username,
		"password_hash": passwordHash,
	})
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	if err := resp.Error(); err != nil {
		return 0, err
	}

	var rows []domain.UserRow
	if err := resp.JSON(&rows); err != nil {
		return 0, fmt.Errorf("decode inserted user: %w", err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("insert user: store returned no representation")
	}

	return rows[0].ID, nil
}
