package models

import "time"

// SendResult is the per-recipient outcome of a message delivery
type SendResult struct {
	Phone     string  `json:"phone"`
	Success   bool    `json:"success"`
	MessageID string  `json:"messageId,omitempty"`
	Error     string  `json:"error,omitempty"`
	Cost      float64 `json:"cost,omitempty"`
}

// SMSProvider describes a messaging provider's pricing and behavior
type SMSProvider struct {
	Key                string        `json:"key" yaml:"key"`
	Name               string        `json:"name" yaml:"name"`
	CostPerSMS         float64       `json:"costPerSMS" yaml:"costPerSMS"`
	MaxLength          int           `json:"maxLength" yaml:"maxLength"`
	SupportedCountries []string      `json:"supportedCountries" yaml:"supportedCountries"`
	SuccessRate        float64       `json:"successRate" yaml:"successRate"`
	MinLatency         time.Duration `json:"minLatency" yaml:"minLatency"`
	MaxLatency         time.Duration `json:"maxLatency" yaml:"maxLatency"`
}

// DefaultProviders returns the built-in provider table
func DefaultProviders() map[string]SMSProvider {
	return map[string]SMSProvider{
		"twilio": {
			Key:                "twilio",
			Name:               "Twilio",
			CostPerSMS:         1.5,
			MaxLength:          MaxMessageLength,
			SupportedCountries: []string{"KE", "US", "UK", "NG", "UG", "TZ"},
			SuccessRate:        0.95,
			MinLatency:         1000 * time.Millisecond,
			MaxLatency:         3000 * time.Millisecond,
		},
		"africastalking": {
			Key:                "africastalking",
			Name:               "Africa's Talking",
			CostPerSMS:         1.2,
			MaxLength:          MaxMessageLength,
			SupportedCountries: []string{"KE", "UG", "TZ", "RW", "MW", "ZM"},
			SuccessRate:        0.97,
			MinLatency:         800 * time.Millisecond,
			MaxLatency:         2300 * time.Millisecond,
		},
		"textmagic": {
			Key:                "textmagic",
			Name:               "TextMagic",
			CostPerSMS:         2.0,
			MaxLength:          MaxMessageLength,
			SupportedCountries: []string{"KE", "US", "UK", "CA", "AU"},
			SuccessRate:        0.93,
			MinLatency:         1200 * time.Millisecond,
			MaxLatency:         3000 * time.Millisecond,
		},
	}
}

// DefaultProviderKey is the provider selected on startup
const DefaultProviderKey = "africastalking"
