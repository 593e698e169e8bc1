package models

import (
	"fmt"
	"strings"
	"time"
)

// MaxMessageLength is the length of a single SMS segment
const MaxMessageLength = 160

// CampaignStatus represents valid campaign statuses
type CampaignStatus string

const (
	CampaignStatusDraft   CampaignStatus = "draft"
	CampaignStatusSending CampaignStatus = "sending"
	CampaignStatusSent    CampaignStatus = "sent"
	CampaignStatusFailed  CampaignStatus = "failed"
)

// CampaignType represents the purpose of a campaign
type CampaignType string

const (
	CampaignTypePromotion   CampaignType = "promotion"
	CampaignTypeReminder    CampaignType = "reminder"
	CampaignTypeReward      CampaignType = "reward"
	CampaignTypeWelcome     CampaignType = "welcome"
	CampaignTypeAppointment CampaignType = "appointment"
	CampaignTypeFollowup    CampaignType = "followup"
)

var validCampaignTypes = map[CampaignType]bool{
	CampaignTypePromotion:   true,
	CampaignTypeReminder:    true,
	CampaignTypeReward:      true,
	CampaignTypeWelcome:     true,
	CampaignTypeAppointment: true,
	CampaignTypeFollowup:    true,
}

// Valid reports whether t is a known campaign type
func (t CampaignType) Valid() bool {
	return validCampaignTypes[t]
}

// Campaign represents an SMS campaign and its delivery outcome
type Campaign struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Type          CampaignType   `json:"type"`
	Message       string         `json:"message"`
	Recipients    []string       `json:"recipients"`
	Status        CampaignStatus `json:"status"`
	ScheduledDate *time.Time     `json:"scheduledDate,omitempty"`
	SentDate      *time.Time     `json:"sentDate,omitempty"`
	Results       []SendResult   `json:"results"`
	TotalCost     float64        `json:"totalCost"`
	SuccessCount  int            `json:"successCount"`
	FailureCount  int            `json:"failureCount"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// CampaignStats aggregates delivery outcomes across campaigns.
// TotalSent counts every attempted message, delivered or not.
type CampaignStats struct {
	TotalCampaigns int     `json:"totalCampaigns"`
	TotalSent      int     `json:"totalSent"`
	TotalDelivered int     `json:"totalDelivered"`
	TotalCost      float64 `json:"totalCost"`
	DeliveryRate   float64 `json:"deliveryRate"`
}

// Validate checks if the campaign fields are valid
func (c *Campaign) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("campaign name is required")
	}
	if !c.Type.Valid() {
		return fmt.Errorf("invalid campaign type: %q", c.Type)
	}
	if strings.TrimSpace(c.Message) == "" {
		return fmt.Errorf("message is required")
	}
	if len(c.Message) > MaxMessageLength {
		return fmt.Errorf("message exceeds %d characters", MaxMessageLength)
	}
	return nil
}

// IsScheduled checks if campaign is scheduled for future
func (c *Campaign) IsScheduled(now time.Time) bool {
	return c.ScheduledDate != nil && c.ScheduledDate.After(now)
}

// IsFinal reports whether the campaign has finished delivery
func (c *Campaign) IsFinal() bool {
	return c.Status == CampaignStatusSent || c.Status == CampaignStatusFailed
}

// Tally recomputes counts and cost from the recorded results
func (c *Campaign) Tally() {
	c.SuccessCount, c.FailureCount, c.TotalCost = 0, 0, 0
	for _, r := range c.Results {
		if r.Success {
			c.SuccessCount++
			c.TotalCost += r.Cost
		} else {
			c.FailureCount++
		}
	}
}
