package repository

import (
	"context"
	"database/sql"
	"errors"

	"loyaltytracker/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrQuotaExceeded is returned when a slot write exceeds the storage quota
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// SlotRepository stores opaque string values under fixed keys
type SlotRepository interface {
	// Get returns the value and whether the key was present
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	// Delete removes the key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}

// CampaignRepository defines campaign data access operations
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	List(ctx context.Context, filters CampaignFilters) ([]*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	Delete(ctx context.Context, id string) error
}

// CampaignFilters defines filters for listing campaigns
type CampaignFilters struct {
	Status *models.CampaignStatus
	Type   *models.CampaignType
	Limit  int
}

// DB is a wrapper around *sql.DB to allow passing in transaction
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
