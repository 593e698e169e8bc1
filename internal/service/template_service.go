package service

import (
	"fmt"
	"regexp"
	"strings"

	"loyaltytracker/internal/models"
)

var placeholderPattern = regexp.MustCompile(`\{[a-zA-Z_]+\}`)

// Supported placeholders
const (
	PlaceholderShopName     = "{shopName}"
	PlaceholderPhone        = "{phone}"
	PlaceholderCustomerName = "{customerName}"
)

// ShopProfile holds the values substituted into campaign messages
type ShopProfile struct {
	Name  string `yaml:"name" json:"name"`
	Phone string `yaml:"phone" json:"phone"`
}

// MessageTemplate is a ready-made campaign message
type MessageTemplate struct {
	Type    models.CampaignType `json:"type"`
	Name    string              `json:"name"`
	Message string              `json:"message"`
}

var defaultTemplates = []MessageTemplate{
	{models.CampaignTypeWelcome, "Welcome", "Welcome to {shopName}, {customerName}! Earn a free service every few visits. Questions? Call {phone}"},
	{models.CampaignTypePromotion, "Promotion", "Hi {customerName}! This week only at {shopName}: 20% off all services. Book now on {phone}"},
	{models.CampaignTypeReminder, "Reminder", "Hi {customerName}, we miss you at {shopName}! It's been a while. Book your next visit on {phone}"},
	{models.CampaignTypeReward, "Reward", "Congratulations {customerName}! You've earned a reward at {shopName}. Visit us to redeem it."},
	{models.CampaignTypeAppointment, "Appointment", "Hi {customerName}, this is a reminder of your appointment at {shopName}. Call {phone} to reschedule."},
	{models.CampaignTypeFollowup, "Follow-up", "Thank you for visiting {shopName}, {customerName}! We hope to see you again soon."},
}

// TemplateService handles campaign message rendering
type TemplateService struct {
	shop ShopProfile
}

// NewTemplateService creates a template service for the given shop
func NewTemplateService(shop ShopProfile) *TemplateService {
	return &TemplateService{shop: shop}
}

// Render replaces the supported placeholders. Unknown placeholders are left as-is.
// An empty customer name renders as "Valued Customer".
func (s *TemplateService) Render(template string, customerName string) (string, error) {
	if template == "" {
		return "", fmt.Errorf("template cannot be empty")
	}

	if strings.TrimSpace(customerName) == "" {
		customerName = "Valued Customer"
	}

	r := strings.NewReplacer(
		PlaceholderShopName, s.shop.Name,
		PlaceholderPhone, s.shop.Phone,
		PlaceholderCustomerName, customerName,
	)
	return r.Replace(template), nil
}

// ValidateTemplate checks if template has valid syntax
func (s *TemplateService) ValidateTemplate(template string) error {
	if template == "" {
		return fmt.Errorf("template cannot be empty")
	}

	openCount := strings.Count(template, "{")
	closeCount := strings.Count(template, "}")
	if openCount != closeCount {
		return fmt.Errorf("template has unbalanced braces: %d open, %d close", openCount, closeCount)
	}

	return nil
}

// UnknownPlaceholders lists placeholders Render will not substitute
func (s *TemplateService) UnknownPlaceholders(template string) []string {
	unknown := []string{}
	for _, p := range s.GetPlaceholders(template) {
		switch p {
		case PlaceholderShopName, PlaceholderPhone, PlaceholderCustomerName:
		default:
			unknown = append(unknown, p)
		}
	}
	return unknown
}

// GetPlaceholders extracts all placeholders from a template
func (s *TemplateService) GetPlaceholders(template string) []string {
	return placeholderPattern.FindAllString(template, -1)
}

// Templates returns the built-in campaign messages
func (s *TemplateService) Templates() []MessageTemplate {
	return append([]MessageTemplate{}, defaultTemplates...)
}

// Shop returns the configured shop profile
func (s *TemplateService) Shop() ShopProfile {
	return s.shop
}
