package repository

import (
	"context"
	"sync"
	"time"

	"loyaltytracker/internal/models"
)

// MemoryCampaignRepository keeps campaigns in process memory in insertion order
type MemoryCampaignRepository struct {
	mu    sync.RWMutex
	items map[string]*models.Campaign
	order []string
	now   func() time.Time
}

// NewMemoryCampaignRepository creates an empty in-memory campaign repository
func NewMemoryCampaignRepository() *MemoryCampaignRepository {
	return &MemoryCampaignRepository{
		items: make(map[string]*models.Campaign),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryCampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	if _, exists := r.items[campaign.ID]; !exists {
		r.order = append(r.order, campaign.ID)
	}
	r.items[campaign.ID] = copyCampaign(campaign)
	return nil
}

func (r *MemoryCampaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyCampaign(c), nil
}

// List returns campaigns newest first
func (r *MemoryCampaignRepository) List(ctx context.Context, filters CampaignFilters) ([]*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*models.Campaign{}
	for i := len(r.order) - 1; i >= 0; i-- {
		c := r.items[r.order[i]]
		if filters.Status != nil && c.Status != *filters.Status {
			continue
		}
		if filters.Type != nil && c.Type != *filters.Type {
			continue
		}
		out = append(out, copyCampaign(c))
		if filters.Limit > 0 && len(out) == filters.Limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryCampaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[campaign.ID]; !ok {
		return ErrNotFound
	}
	campaign.UpdatedAt = r.now()
	r.items[campaign.ID] = copyCampaign(campaign)
	return nil
}

func (r *MemoryCampaignRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func copyCampaign(c *models.Campaign) *models.Campaign {
	out := *c
	out.Recipients = append([]string(nil), c.Recipients...)
	out.Results = append([]models.SendResult(nil), c.Results...)
	return &out
}
