package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"loyaltytracker/internal/models"
)

// MinPhoneDigits is the shortest phone number accepted for a walk-in registration
const MinPhoneDigits = 10

// CheckInService records customer visits and issues rewards as they fall due
type CheckInService struct {
	loyalty *LoyaltyService
	scanner Scanner
}

// NewCheckInService creates a check-in service. scanner may be nil when
// scan check-ins are not offered.
func NewCheckInService(loyalty *LoyaltyService, scanner Scanner) *CheckInService {
	return &CheckInService{
		loyalty: loyalty,
		scanner: scanner,
	}
}

// CheckInRequest identifies who is checking in and for what
type CheckInRequest struct {
	CustomerID  string `json:"customerId,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Name        string `json:"name,omitempty"`
	ServiceType string `json:"serviceType,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// CheckIn records a visit for an existing customer and checks reward eligibility
func (s *CheckInService) CheckIn(ctx context.Context, req *CheckInRequest) (*models.CheckInResult, error) {
	if req.CustomerID == "" {
		return s.CheckInByPhone(ctx, req)
	}

	return s.loyalty.RecordVisit(ctx, models.Visit{
		CustomerID:  req.CustomerID,
		ServiceType: req.ServiceType,
		Notes:       req.Notes,
	})
}

// CheckInByPhone checks in the customer with the given phone, registering
// them first when no customer has that number
func (s *CheckInService) CheckInByPhone(ctx context.Context, req *CheckInRequest) (*models.CheckInResult, error) {
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return nil, validationf("customerId or phone is required")
	}

	if existing, ok := s.loyalty.CustomerByPhone(phone); ok {
		byID := *req
		byID.CustomerID = existing.ID
		return s.CheckIn(ctx, &byID)
	}

	if countDigits(phone) < MinPhoneDigits {
		return nil, validationf("phone number must have at least %d digits", MinPhoneDigits)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = fmt.Sprintf("Customer %s", lastDigits(phone, 4))
	}

	customer, err := s.loyalty.AddCustomer(ctx, models.Customer{Name: name, Phone: phone})
	if err != nil {
		return nil, err
	}
	log.Printf("[CheckIn] registered walk-in %s", customer.ID)

	byID := *req
	byID.CustomerID = customer.ID
	result, err := s.CheckIn(ctx, &byID)
	if err != nil {
		return nil, err
	}
	result.NewCustomer = true
	return result, nil
}

// ScanAndCheckIn reads a code with the scanner and checks in whoever it identifies
func (s *CheckInService) ScanAndCheckIn(ctx context.Context, serviceType string) (*models.CheckInResult, error) {
	if s.scanner == nil {
		return nil, &BusinessLogicError{Message: "scanner is not available"}
	}

	phone, err := s.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	return s.CheckInByPhone(ctx, &CheckInRequest{Phone: phone, ServiceType: serviceType})
}

// Search finds customers for the check-in screen
func (s *CheckInService) Search(query string) []models.Customer {
	return s.loyalty.SearchCustomers(query)
}

func lastDigits(phone string, n int) string {
	d := strings.TrimPrefix(digitsOnly(phone), "+")
	if len(d) <= n {
		return d
	}
	return d[len(d)-n:]
}
