package events

import (
	"time"

	"loyaltytracker/internal/models"
)

// Type identifies a domain event
type Type string

const (
	CustomerAdded    Type = "customer-added"
	CustomerDeleted  Type = "customer-deleted"
	VisitAdded       Type = "visit-added"
	RewardEarned     Type = "reward-earned"
	RewardRedeemed   Type = "reward-redeemed"
	SMSCampaignSent  Type = "sms-campaign-sent"
	DataSynced       Type = "data-synced"
	MilestoneReached Type = "milestone-reached"
	DataUpdated      Type = "data-updated"
	DataCleared      Type = "data-cleared"
)

// Payload is implemented by every event body
type Payload interface {
	EventType() Type
}

// Event is a published payload with its delivery metadata
type Event struct {
	Type      Type
	Payload   Payload
	Timestamp time.Time
}

// CustomerAddedEvent is published after a customer is persisted
type CustomerAddedEvent struct {
	Customer models.Customer
}

func (CustomerAddedEvent) EventType() Type { return CustomerAdded }

// CustomerDeletedEvent is published after a customer and its history are removed
type CustomerDeletedEvent struct {
	Customer       models.Customer
	VisitsRemoved  int
	RewardsRemoved int
}

func (CustomerDeletedEvent) EventType() Type { return CustomerDeleted }

// VisitAddedEvent is published after a visit is recorded
type VisitAddedEvent struct {
	Customer models.Customer
	Visit    models.Visit
}

func (VisitAddedEvent) EventType() Type { return VisitAdded }

// RewardEarnedEvent is published when a visit crosses the reward threshold
type RewardEarnedEvent struct {
	Customer   models.Customer
	Reward     models.Reward
	RewardType string
}

func (RewardEarnedEvent) EventType() Type { return RewardEarned }

// RewardRedeemedEvent is published when an earned reward is used
type RewardRedeemedEvent struct {
	Customer *models.Customer
	Reward   models.Reward
}

func (RewardRedeemedEvent) EventType() Type { return RewardRedeemed }

// CampaignSentEvent is published when a campaign finishes delivery
type CampaignSentEvent struct {
	CampaignID   string
	CampaignName string
	SuccessCount int
	FailureCount int
	TotalCount   int
	TotalCost    float64
}

func (CampaignSentEvent) EventType() Type { return SMSCampaignSent }

// SuccessRate returns the rounded delivery percentage
func (e CampaignSentEvent) SuccessRate() int {
	if e.TotalCount == 0 {
		return 0
	}
	return int(float64(e.SuccessCount)/float64(e.TotalCount)*100 + 0.5)
}

// DataSyncedEvent is published after a successful save
type DataSyncedEvent struct {
	Timestamp time.Time
}

func (DataSyncedEvent) EventType() Type { return DataSynced }

// MilestoneKind names the counter that crossed a milestone
type MilestoneKind string

const (
	MilestoneCustomers MilestoneKind = "customers"
	MilestoneVisits    MilestoneKind = "visits"
	MilestoneRewards   MilestoneKind = "rewards"
)

// MilestoneReachedEvent is published when a counter lands on a milestone
type MilestoneReachedEvent struct {
	Kind  MilestoneKind
	Count int
}

func (MilestoneReachedEvent) EventType() Type { return MilestoneReached }

// DataUpdatedEvent carries the document just written to the store
type DataUpdatedEvent struct {
	Document *models.Document
}

func (DataUpdatedEvent) EventType() Type { return DataUpdated }

// DataClearedEvent is published after both storage slots are removed
type DataClearedEvent struct{}

func (DataClearedEvent) EventType() Type { return DataCleared }
