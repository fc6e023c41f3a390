package repository

import (
	"context"
	"fmt"

	"github.com/duynhne/imagegen-service/internal/core/domain"
	"github.com/duynhne/imagegen-service/internal/core/supabase"
)

const generationsTable = "generations"

// SupabaseGenerationRepository implements domain.GenerationRepository over
// the record store's REST surface.
type SupabaseGenerationRepository struct {
	client *supabase.Client
}

// NewGenerationRepository creates a new SupabaseGenerationRepository.
func NewGenerationRepository(client *supabase.Client) *SupabaseGenerationRepository {
	return &SupabaseGenerationRepository{client: client}
}

// Create persists a generation record. created_at is assigned by the store.
func (r *SupabaseGenerationRepository) Create(ctx context.Context, userID int64, imageLink, promptUsed string) (int64, error) {
	resp, err := r.client.From(generationsTable).ExecuteInsert(ctx, map[string]any{
		"user_id":     userID,
		"image_link":  imageLink,
		"prompt_used": promptUsed,
	})
	if err != nil {
		return 0, fmt.Errorf("insert generation: %w", err)
	}
	if err := resp.Error(); err != nil {
		return 0, err
	}

	var rows []domain.GenerationRow
	if err := resp.JSON(&rows); err != nil {
		return 0, fmt.Errorf("decode inserted generation: %w", err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("insert generation: store returned no representation")
	}

	return rows[0].ID, nil
}

// ListByUser returns every generation for userID, newest first.
func (r *SupabaseGenerationRepository) ListByUser(ctx context.Context, userID int64) ([]domain.GenerationRow, error) {
	resp, err := r.client.From(generationsTable).
		Select("id,user_id,image_link,prompt_used,created_at").
		Eq("user_id", userID).
		Order("created_at", false).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("query generations: %w", err)
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []domain.GenerationRow
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("decode generations: %w", err)
	}

	return rows, nil
}
