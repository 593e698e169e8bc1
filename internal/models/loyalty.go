package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// CurrentSchemaVersion is the version stamped on every persisted document
const CurrentSchemaVersion = 1

// RewardStatus represents the lifecycle of a reward
type RewardStatus string

const (
	RewardStatusEarned   RewardStatus = "earned"
	RewardStatusRedeemed RewardStatus = "redeemed"
)

// Visit is a single recorded check-in
type Visit struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customerId"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceType string    `json:"serviceType,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// UnmarshalJSON also accepts the "date" key used by earlier exports
func (v *Visit) UnmarshalJSON(data []byte) error {
	type plain Visit
	aux := struct {
		*plain
		Date *time.Time `json:"date"`
	}{plain: (*plain)(v)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if v.Timestamp.IsZero() && aux.Date != nil {
		v.Timestamp = *aux.Date
	}
	return nil
}

// Reward is issued when a customer reaches a multiple of the visit threshold
type Reward struct {
	ID            string       `json:"id"`
	CustomerID    string       `json:"customerId"`
	Type          string       `json:"type"`
	Status        RewardStatus `json:"status"`
	EarnedDate    time.Time    `json:"earnedDate"`
	RedeemedDate  *time.Time   `json:"redeemedDate,omitempty"`
	EarnedAtVisit int          `json:"earnedAtVisit,omitempty"`
}

// IsRedeemed reports whether the reward has been used
func (r *Reward) IsRedeemed() bool {
	return r.Status == RewardStatusRedeemed
}

// RewardSettings configures reward issuance
type RewardSettings struct {
	VisitsRequired int    `json:"visitsRequired"`
	RewardType     string `json:"rewardType"`
	IsActive       bool   `json:"isActive"`
}

// DefaultRewardSettings returns the settings used for a fresh program
func DefaultRewardSettings() RewardSettings {
	return RewardSettings{
		VisitsRequired: 5,
		RewardType:     "Free Service",
		IsActive:       true,
	}
}

// Validate checks reward settings
func (s *RewardSettings) Validate() error {
	if s.VisitsRequired <= 0 {
		return fmt.Errorf("visitsRequired must be positive")
	}
	if s.RewardType == "" {
		return fmt.Errorf("rewardType is required")
	}
	return nil
}

// Document is the single persisted record holding all loyalty data
type Document struct {
	Version        int            `json:"version"`
	Customers      []Customer     `json:"customers"`
	Visits         []Visit        `json:"visits"`
	Rewards        []Reward       `json:"rewards"`
	RewardSettings RewardSettings `json:"rewardSettings"`
	LastUpdated    time.Time      `json:"lastUpdated"`
}

// NewDocument returns an empty document with default settings
func NewDocument() *Document {
	return &Document{
		Version:        CurrentSchemaVersion,
		Customers:      []Customer{},
		Visits:         []Visit{},
		Rewards:        []Reward{},
		RewardSettings: DefaultRewardSettings(),
	}
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Customers = make([]Customer, len(d.Customers))
	for i, c := range d.Customers {
		if c.LastVisit != nil {
			lv := *c.LastVisit
			c.LastVisit = &lv
		}
		out.Customers[i] = c
	}
	out.Visits = append([]Visit{}, d.Visits...)
	out.Rewards = make([]Reward, len(d.Rewards))
	for i, r := range d.Rewards {
		if r.RedeemedDate != nil {
			rd := *r.RedeemedDate
			r.RedeemedDate = &rd
		}
		out.Rewards[i] = r
	}
	return &out
}

// StorageInfo reports the serialized size of the stored slots
type StorageInfo struct {
	DataSize    int        `json:"dataSize"`
	BackupSize  int        `json:"backupSize"`
	TotalSize   int        `json:"totalSize"`
	LastUpdated *time.Time `json:"lastUpdated"`
}

// LoyaltySummary is the dashboard view of the program
type LoyaltySummary struct {
	TotalCustomers  int        `json:"totalCustomers"`
	TotalVisits     int        `json:"totalVisits"`
	RewardsEarned   int        `json:"rewardsEarned"`
	RewardsRedeemed int        `json:"rewardsRedeemed"`
	ActiveCustomers int        `json:"activeCustomers"`
	VisitsToday     int        `json:"visitsToday"`
	LastSaved       *time.Time `json:"lastSaved"`
	VisitsForReward int        `json:"visitsForReward"`
	RewardType      string     `json:"rewardType"`
}

// CheckInResult is returned after recording a visit
type CheckInResult struct {
	Customer     Customer `json:"customer"`
	Visit        Visit    `json:"visit"`
	RewardEarned bool     `json:"rewardEarned"`
	Reward       *Reward  `json:"reward,omitempty"`
	NewCustomer  bool     `json:"newCustomer"`
}
