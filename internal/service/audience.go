package service

import (
	"time"

	"loyaltytracker/internal/models"
)

// Audience thresholds
const (
	RegularMinVisits = 5
	VIPMinVisits     = 20
	InactiveAfter    = 30 * 24 * time.Hour
)

// SelectAudience returns the phone numbers of the customers in audience.
// Customers without a phone number are skipped.
func SelectAudience(customers []models.Customer, audience models.Audience, now time.Time) ([]string, error) {
	var match func(c models.Customer) bool

	switch audience {
	case models.AudienceAll, "":
		match = func(models.Customer) bool { return true }
	case models.AudienceRegular:
		match = func(c models.Customer) bool { return c.TotalVisits >= RegularMinVisits }
	case models.AudienceVIP:
		match = func(c models.Customer) bool { return c.TotalVisits >= VIPMinVisits }
	case models.AudienceInactive:
		cutoff := now.Add(-InactiveAfter)
		match = func(c models.Customer) bool { return c.InactiveSince(cutoff) }
	default:
		return nil, validationf("unknown audience %q", audience)
	}

	phones := []string{}
	for _, c := range customers {
		if c.Phone != "" && match(c) {
			phones = append(phones, c.Phone)
		}
	}
	return phones, nil
}
