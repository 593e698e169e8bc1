package models

import (
	"fmt"
	"strings"
	"time"
)

// Customer represents a loyalty program member
type Customer struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	Email       string     `json:"email,omitempty"`
	TotalVisits int        `json:"totalVisits"`
	JoinDate    time.Time  `json:"joinDate"`
	LastVisit   *time.Time `json:"lastVisit"`
}

// CustomerUpdate carries the editable profile fields of a customer.
// Nil fields are left untouched.
type CustomerUpdate struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Email *string `json:"email,omitempty"`
}

// Validate checks the required customer fields
func (c *Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("customer name is required")
	}
	if strings.TrimSpace(c.Phone) == "" {
		return fmt.Errorf("customer phone is required")
	}
	return nil
}

// Apply merges the non-nil fields of u into c
func (u CustomerUpdate) Apply(c *Customer) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
}

// DisplayName returns the customer's name or a generic greeting
func (c *Customer) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return "Valued Customer"
}

// InactiveSince reports whether the customer has not visited since cutoff.
// Customers who never visited count as inactive.
func (c *Customer) InactiveSince(cutoff time.Time) bool {
	return c.LastVisit == nil || c.LastVisit.Before(cutoff)
}
