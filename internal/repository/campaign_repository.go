package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"loyaltytracker/internal/models"
)

type campaignRepository struct {
	db DB
}

// NewCampaignRepository creates a PostgreSQL-backed campaign repository
func NewCampaignRepository(db DB) CampaignRepository {
	return &campaignRepository{db: db}
}

const campaignColumns = `id, name, type, message, recipients, status, scheduled_date, sent_date,
		results, total_cost, success_count, failure_count, created_at, updated_at`

// Create creates a new campaign
func (r *campaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	results, err := marshalResults(campaign.Results)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO campaigns (id, name, type, message, recipients, status, scheduled_date, sent_date,
			results, total_cost, success_count, failure_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err = r.db.QueryRowContext(
		ctx,
		query,
		campaign.ID,
		campaign.Name,
		campaign.Type,
		campaign.Message,
		pq.Array(campaign.Recipients),
		campaign.Status,
		campaign.ScheduledDate,
		campaign.SentDate,
		results,
		campaign.TotalCost,
		campaign.SuccessCount,
		campaign.FailureCount,
	).Scan(&campaign.CreatedAt, &campaign.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	return nil
}

// GetByID retrieves a campaign by ID
func (r *campaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	campaign, err := scanCampaign(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return campaign, nil
}

// List retrieves campaigns, newest first
func (r *campaignRepository) List(ctx context.Context, filters CampaignFilters) ([]*models.Campaign, error) {
	queryBuilder := strings.Builder{}
	queryBuilder.WriteString(`SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`)

	args := []interface{}{}
	argPos := 1

	if filters.Status != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND status = $%d", argPos))
		args = append(args, *filters.Status)
		argPos++
	}

	if filters.Type != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND type = $%d", argPos))
		args = append(args, *filters.Type)
		argPos++
	}

	queryBuilder.WriteString(" ORDER BY created_at DESC")

	if filters.Limit > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argPos))
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []*models.Campaign{}
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate campaigns: %w", err)
	}

	return campaigns, nil
}

// Update persists the mutable campaign fields
func (r *campaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	results, err := marshalResults(campaign.Results)
	if err != nil {
		return err
	}

	query := `
		UPDATE campaigns
		SET status = $1, sent_date = $2, results = $3, total_cost = $4,
			success_count = $5, failure_count = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $7
		RETURNING updated_at
	`

	err = r.db.QueryRowContext(
		ctx,
		query,
		campaign.Status,
		campaign.SentDate,
		results,
		campaign.TotalCost,
		campaign.SuccessCount,
		campaign.FailureCount,
		campaign.ID,
	).Scan(&campaign.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}

	return nil
}

// Delete deletes a campaign
func (r *campaignRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM campaigns WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	campaign := &models.Campaign{}
	var results []byte

	err := row.Scan(
		&campaign.ID,
		&campaign.Name,
		&campaign.Type,
		&campaign.Message,
		pq.Array(&campaign.Recipients),
		&campaign.Status,
		&campaign.ScheduledDate,
		&campaign.SentDate,
		&results,
		&campaign.TotalCost,
		&campaign.SuccessCount,
		&campaign.FailureCount,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	campaign.Results = []models.SendResult{}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &campaign.Results); err != nil {
			return nil, fmt.Errorf("failed to decode campaign results: %w", err)
		}
	}

	return campaign, nil
}

func marshalResults(results []models.SendResult) ([]byte, error) {
	if results == nil {
		results = []models.SendResult{}
	}
	b, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("failed to encode campaign results: %w", err)
	}
	return b, nil
}
