package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type slotRepository struct {
	db DB
}

// NewSlotRepository creates a PostgreSQL-backed slot repository
func NewSlotRepository(db DB) SlotRepository {
	return &slotRepository{db: db}
}

// Get retrieves a slot value by key
func (r *slotRepository) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM storage_slots WHERE key = $1`

	var value string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get slot %s: %w", key, err)
	}

	return value, true, nil
}

// Put inserts or replaces a slot value
func (r *slotRepository) Put(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO storage_slots (key, value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to put slot %s: %w", key, err)
	}

	return nil
}

// Delete removes a slot
func (r *slotRepository) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM storage_slots WHERE key = $1`

	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}

	return nil
}
