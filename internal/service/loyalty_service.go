package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"loyaltytracker/internal/events"
	"loyaltytracker/internal/models"
)

// MilestoneThresholds are the counts that trigger milestone-reached events
var MilestoneThresholds = []int{10, 25, 50, 100, 250, 500, 1000}

// activeWindow is how recently a customer must have visited to count as active
const activeWindow = 30 * 24 * time.Hour

// MinSearchLength is the shortest query SearchCustomers will match on
const MinSearchLength = 3

// errNoChange aborts a commit without persisting
var errNoChange = errors.New("no change")

// CustomerDirectory is the read-only customer view used by campaigns
type CustomerDirectory interface {
	Customers() []models.Customer
	Customer(id string) (models.Customer, bool)
	CustomerByPhone(phone string) (models.Customer, bool)
}

// LoyaltyService owns the in-memory loyalty document. Every mutation is
// applied in memory first, then the whole document is persisted and events
// are published. Instances sharing a store converge through data-updated.
type LoyaltyService struct {
	data  *DataService
	bus   *events.Bus
	now   func() time.Time
	newID func() string

	// writeMu serializes mutations; mu guards doc and lastSaved.
	// mu is never held while calling the store or the bus.
	writeMu   sync.Mutex
	mu        sync.RWMutex
	doc       *models.Document
	lastSaved *time.Time

	unsubscribe func()
}

// NewLoyaltyService loads the stored document and starts following store events.
// bus must be the bus the DataService publishes on.
func NewLoyaltyService(ctx context.Context, data *DataService, bus *events.Bus) *LoyaltyService {
	s := &LoyaltyService{
		data:  data,
		bus:   bus,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}

	s.replace(data.GetData(ctx))
	s.unsubscribe = bus.Subscribe(s.handleStoreEvent, events.DataUpdated, events.DataCleared)
	return s
}

// Close stops following store events
func (s *LoyaltyService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *LoyaltyService) handleStoreEvent(ev events.Event) {
	switch p := ev.Payload.(type) {
	case events.DataUpdatedEvent:
		s.replace(p.Document)
	case events.DataClearedEvent:
		s.replace(nil)
	}
}

// replace swaps in a copy of doc, or a fresh document when doc is nil
func (s *LoyaltyService) replace(doc *models.Document) {
	var lastSaved *time.Time
	if doc == nil {
		doc = models.NewDocument()
	} else {
		doc = doc.Clone()
		normalizeDocument(doc)
		if !doc.LastUpdated.IsZero() {
			lu := doc.LastUpdated
			lastSaved = &lu
		}
	}

	s.mu.Lock()
	s.doc = doc
	s.lastSaved = lastSaved
	s.mu.Unlock()
}

type docCounts struct {
	customers int
	visits    int
	rewards   int
}

func countsOf(doc *models.Document) docCounts {
	return docCounts{len(doc.Customers), len(doc.Visits), len(doc.Rewards)}
}

// commit applies fn to a working copy, installs it, persists it and checks
// milestones. Callers must hold writeMu. fn returning errNoChange or any
// other error leaves state untouched. The working copy is taken under the
// store's writer lock, starting from the stored document when someone else
// saved since this instance last synced.
func (s *LoyaltyService) commit(ctx context.Context, fn func(doc *models.Document) error) error {
	var before, after docCounts
	var pending *models.Document
	saved, err := s.data.Update(ctx, func(stored *models.Document) (*models.Document, error) {
		working := s.workingCopy(stored)
		before = countsOf(working)
		if err := fn(working); err != nil {
			return nil, err
		}
		after = countsOf(working)

		s.mu.Lock()
		s.doc = working
		s.mu.Unlock()

		pending = working.Clone()
		return pending, nil
	})
	if err != nil {
		return err
	}

	if saved {
		s.mu.Lock()
		lu := pending.LastUpdated
		s.lastSaved = &lu
		s.mu.Unlock()
		s.bus.Publish(events.DataSyncedEvent{Timestamp: pending.LastUpdated})
	} else {
		// the in-memory state stays ahead of the store
		log.Printf("[Loyalty] changes kept in memory, save failed")
	}

	s.checkMilestones(before, after)
	return nil
}

// workingCopy clones the document a mutation should start from. A stored
// document whose lastUpdated differs from the one held in memory was written
// by another process and wins; otherwise memory wins, since it may hold
// changes whose save failed.
func (s *LoyaltyService) workingCopy(stored *models.Document) *models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if isNewerWrite(stored, s.doc) {
		working := stored.Clone()
		normalizeDocument(working)
		return working
	}
	return s.doc.Clone()
}

func isNewerWrite(stored, held *models.Document) bool {
	return stored != nil && !stored.LastUpdated.IsZero() && !stored.LastUpdated.Equal(held.LastUpdated)
}

// Refresh reloads the stored document when another process saved it after
// this instance last synced. Returns true when the held document changed.
func (s *LoyaltyService) Refresh(ctx context.Context) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stored := s.data.GetData(ctx)

	s.mu.RLock()
	stale := isNewerWrite(stored, s.doc)
	s.mu.RUnlock()
	if !stale {
		return false
	}

	s.replace(stored)
	return true
}

func (s *LoyaltyService) checkMilestones(before, after docCounts) {
	check := func(kind events.MilestoneKind, prev, cur int) {
		if cur <= prev {
			return
		}
		for _, m := range MilestoneThresholds {
			if cur == m {
				s.bus.Publish(events.MilestoneReachedEvent{Kind: kind, Count: cur})
				return
			}
		}
	}
	check(events.MilestoneCustomers, before.customers, after.customers)
	check(events.MilestoneVisits, before.visits, after.visits)
	check(events.MilestoneRewards, before.rewards, after.rewards)
}

// AddCustomer registers a new customer. Id and join date are assigned when empty.
func (s *LoyaltyService) AddCustomer(ctx context.Context, customer models.Customer) (*models.Customer, error) {
	if err := customer.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	customer.Name = strings.TrimSpace(customer.Name)
	customer.Phone = strings.TrimSpace(customer.Phone)
	if customer.ID == "" {
		customer.ID = s.newID()
	}
	if customer.JoinDate.IsZero() {
		customer.JoinDate = s.now()
	}
	// visit history starts empty, so the counters must too
	customer.TotalVisits = 0
	customer.LastVisit = nil

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.commit(ctx, func(doc *models.Document) error {
		if findCustomer(doc, customer.ID) >= 0 {
			return &ConflictError{Resource: "customer", Message: "id " + customer.ID + " already exists"}
		}
		doc.Customers = append(doc.Customers, customer)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(events.CustomerAddedEvent{Customer: customer})
	return &customer, nil
}

// DeleteCustomer removes a customer together with their visits and rewards
func (s *LoyaltyService) DeleteCustomer(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var removed events.CustomerDeletedEvent
	err := s.commit(ctx, func(doc *models.Document) error {
		idx := findCustomer(doc, id)
		if idx < 0 {
			return &NotFoundError{Resource: "customer", ID: id}
		}
		removed.Customer = doc.Customers[idx]
		doc.Customers = append(doc.Customers[:idx], doc.Customers[idx+1:]...)

		visits := doc.Visits[:0]
		for _, v := range doc.Visits {
			if v.CustomerID == id {
				removed.VisitsRemoved++
				continue
			}
			visits = append(visits, v)
		}
		doc.Visits = visits

		rewards := doc.Rewards[:0]
		for _, r := range doc.Rewards {
			if r.CustomerID == id {
				removed.RewardsRemoved++
				continue
			}
			rewards = append(rewards, r)
		}
		doc.Rewards = rewards
		return nil
	})
	if err != nil {
		return err
	}

	s.bus.Publish(removed)
	return nil
}

// UpdateCustomer merges the given profile fields into an existing customer
func (s *LoyaltyService) UpdateCustomer(ctx context.Context, id string, update models.CustomerUpdate) (*models.Customer, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var updated models.Customer
	err := s.commit(ctx, func(doc *models.Document) error {
		idx := findCustomer(doc, id)
		if idx < 0 {
			return &NotFoundError{Resource: "customer", ID: id}
		}
		c := doc.Customers[idx]
		update.Apply(&c)
		if err := c.Validate(); err != nil {
			return &ValidationError{Message: err.Error()}
		}
		doc.Customers[idx] = c
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// AddVisit records a visit and bumps the customer's visit counter
func (s *LoyaltyService) AddVisit(ctx context.Context, visit models.Visit) (*models.Visit, error) {
	visit, err := s.prepareVisit(visit)
	if err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var customer models.Customer
	err = s.commit(ctx, func(doc *models.Document) error {
		var err error
		customer, err = applyVisit(doc, visit)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(events.VisitAddedEvent{Customer: customer, Visit: visit})
	return &visit, nil
}

// RecordVisit adds a visit and issues the reward that visit earns in one
// step. Eligibility is decided on the count this visit produced, so
// concurrent check-ins for the same customer each see their own count.
func (s *LoyaltyService) RecordVisit(ctx context.Context, visit models.Visit) (*models.CheckInResult, error) {
	visit, err := s.prepareVisit(visit)
	if err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var customer models.Customer
	var earned *events.RewardEarnedEvent
	err = s.commit(ctx, func(doc *models.Document) error {
		var err error
		if customer, err = applyVisit(doc, visit); err != nil {
			return err
		}
		earned = s.issueReward(doc, customer)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(events.VisitAddedEvent{Customer: customer, Visit: visit})
	result := &models.CheckInResult{Customer: customer, Visit: visit}
	if earned != nil {
		s.bus.Publish(*earned)
		result.RewardEarned = true
		result.Reward = &earned.Reward
	}
	return result, nil
}

func (s *LoyaltyService) prepareVisit(visit models.Visit) (models.Visit, error) {
	if visit.CustomerID == "" {
		return visit, validationf("customerId is required")
	}
	if visit.ID == "" {
		visit.ID = s.newID()
	}
	if visit.Timestamp.IsZero() {
		visit.Timestamp = s.now()
	}
	return visit, nil
}

// applyVisit appends visit and returns the customer as updated by it
func applyVisit(doc *models.Document, visit models.Visit) (models.Customer, error) {
	idx := findCustomer(doc, visit.CustomerID)
	if idx < 0 {
		return models.Customer{}, &NotFoundError{Resource: "customer", ID: visit.CustomerID}
	}
	doc.Visits = append(doc.Visits, visit)

	c := &doc.Customers[idx]
	c.TotalVisits++
	// backdated visits count but never move lastVisit backwards
	if c.LastVisit == nil || visit.Timestamp.After(*c.LastVisit) {
		ts := visit.Timestamp
		c.LastVisit = &ts
	}
	return *c, nil
}

// issueReward appends a reward when customer's visit count qualifies and
// none was issued for that count yet
func (s *LoyaltyService) issueReward(doc *models.Document, customer models.Customer) *events.RewardEarnedEvent {
	settings := doc.RewardSettings
	if !eligibleForReward(customer.TotalVisits, settings.VisitsRequired) {
		return nil
	}
	for _, r := range doc.Rewards {
		if r.CustomerID == customer.ID && r.EarnedAtVisit == customer.TotalVisits {
			return nil
		}
	}

	reward := models.Reward{
		ID:            s.newID(),
		CustomerID:    customer.ID,
		Type:          settings.RewardType,
		Status:        models.RewardStatusEarned,
		EarnedDate:    s.now(),
		EarnedAtVisit: customer.TotalVisits,
	}
	doc.Rewards = append(doc.Rewards, reward)
	return &events.RewardEarnedEvent{Customer: customer, Reward: reward, RewardType: settings.RewardType}
}

// CheckRewardEligibility issues a reward when the customer's visit count is
// a positive multiple of the visits required and no reward was issued for
// that count yet. Returns true when a reward was created.
func (s *LoyaltyService) CheckRewardEligibility(ctx context.Context, customerID string) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var earned *events.RewardEarnedEvent
	err := s.commit(ctx, func(doc *models.Document) error {
		idx := findCustomer(doc, customerID)
		if idx < 0 {
			return errNoChange
		}
		if earned = s.issueReward(doc, doc.Customers[idx]); earned == nil {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return false
	}

	s.bus.Publish(*earned)
	return true
}

func eligibleForReward(totalVisits, visitsRequired int) bool {
	return visitsRequired > 0 && totalVisits > 0 && totalVisits%visitsRequired == 0
}

// AddReward appends a reward for an existing customer
func (s *LoyaltyService) AddReward(ctx context.Context, reward models.Reward) (*models.Reward, error) {
	if reward.CustomerID == "" {
		return nil, validationf("customerId is required")
	}
	if reward.ID == "" {
		reward.ID = s.newID()
	}
	if reward.EarnedDate.IsZero() {
		reward.EarnedDate = s.now()
	}
	if reward.Status == "" {
		reward.Status = models.RewardStatusEarned
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.commit(ctx, func(doc *models.Document) error {
		if findCustomer(doc, reward.CustomerID) < 0 {
			return &NotFoundError{Resource: "customer", ID: reward.CustomerID}
		}
		if reward.Type == "" {
			reward.Type = doc.RewardSettings.RewardType
		}
		doc.Rewards = append(doc.Rewards, reward)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

// RedeemReward marks an earned reward as used. Missing or already redeemed
// rewards are left untouched.
func (s *LoyaltyService) RedeemReward(ctx context.Context, id string) (*models.Reward, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var redeemed events.RewardRedeemedEvent
	err := s.commit(ctx, func(doc *models.Document) error {
		idx := -1
		for i := range doc.Rewards {
			if doc.Rewards[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return &NotFoundError{Resource: "reward", ID: id}
		}

		r := &doc.Rewards[idx]
		if r.IsRedeemed() {
			return &ConflictError{Resource: "reward", Message: "reward " + id + " was already redeemed"}
		}
		now := s.now()
		r.Status = models.RewardStatusRedeemed
		r.RedeemedDate = &now

		redeemed.Reward = *r
		if ci := findCustomer(doc, r.CustomerID); ci >= 0 {
			c := doc.Customers[ci]
			redeemed.Customer = &c
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(redeemed)
	return &redeemed.Reward, nil
}

// UpdateRewardSettings replaces the reward settings
func (s *LoyaltyService) UpdateRewardSettings(ctx context.Context, settings models.RewardSettings) error {
	if err := settings.Validate(); err != nil {
		return &ValidationError{Message: err.Error()}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.commit(ctx, func(doc *models.Document) error {
		doc.RewardSettings = settings
		return nil
	})
}

// ExportData returns the persisted document as JSON, or "" when nothing is stored
func (s *LoyaltyService) ExportData(ctx context.Context) string {
	return s.data.ExportData(ctx)
}

// ImportData replaces all data with the given JSON document
func (s *LoyaltyService) ImportData(ctx context.Context, jsonData string) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.data.ImportData(ctx, jsonData) {
		return false
	}
	// state was refreshed by the data-updated broadcast
	if lu := s.LastSaved(); lu != nil {
		s.bus.Publish(events.DataSyncedEvent{Timestamp: *lu})
	}
	return true
}

// ClearAllData wipes the store and resets to an empty program
func (s *LoyaltyService) ClearAllData(ctx context.Context) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.data.ClearData(ctx)
}

// LastSaved returns when the state was last confirmed durable
func (s *LoyaltyService) LastSaved() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastSaved == nil {
		return nil
	}
	lu := *s.lastSaved
	return &lu
}

// Snapshot returns a copy of the whole in-memory document
func (s *LoyaltyService) Snapshot() *models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

func (s *LoyaltyService) Customers() []models.Customer {
	return s.Snapshot().Customers
}

func (s *LoyaltyService) Visits() []models.Visit {
	return s.Snapshot().Visits
}

func (s *LoyaltyService) Rewards() []models.Reward {
	return s.Snapshot().Rewards
}

func (s *LoyaltyService) RewardSettings() models.RewardSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.RewardSettings
}

// Customer looks up a customer by id
func (s *LoyaltyService) Customer(id string) (models.Customer, bool) {
	doc := s.Snapshot()
	if idx := findCustomer(doc, id); idx >= 0 {
		return doc.Customers[idx], true
	}
	return models.Customer{}, false
}

// CustomerByPhone looks up a customer by phone number, ignoring formatting
func (s *LoyaltyService) CustomerByPhone(phone string) (models.Customer, bool) {
	for _, c := range s.Customers() {
		if SamePhone(c.Phone, phone) {
			return c, true
		}
	}
	return models.Customer{}, false
}

// SearchCustomers matches query against phone numbers and, case-insensitively,
// names. Queries shorter than MinSearchLength match nothing.
func (s *LoyaltyService) SearchCustomers(query string) []models.Customer {
	query = strings.TrimSpace(query)
	if len(query) < MinSearchLength {
		return []models.Customer{}
	}

	lower := strings.ToLower(query)
	digits := digitsOnly(query)

	out := []models.Customer{}
	for _, c := range s.Customers() {
		if strings.Contains(c.Phone, query) ||
			(len(digits) >= MinSearchLength && strings.Contains(digitsOnly(c.Phone), digits)) ||
			strings.Contains(strings.ToLower(c.Name), lower) {
			out = append(out, c)
		}
	}
	return out
}

// VisitsForCustomer returns a customer's visits in recording order
func (s *LoyaltyService) VisitsForCustomer(customerID string) []models.Visit {
	out := []models.Visit{}
	for _, v := range s.Visits() {
		if v.CustomerID == customerID {
			out = append(out, v)
		}
	}
	return out
}

// RewardsForCustomer returns a customer's rewards in issue order
func (s *LoyaltyService) RewardsForCustomer(customerID string) []models.Reward {
	out := []models.Reward{}
	for _, r := range s.Rewards() {
		if r.CustomerID == customerID {
			out = append(out, r)
		}
	}
	return out
}

// Summary computes the dashboard figures
func (s *LoyaltyService) Summary() models.LoyaltySummary {
	doc := s.Snapshot()
	now := s.now()

	summary := models.LoyaltySummary{
		TotalCustomers:  len(doc.Customers),
		TotalVisits:     len(doc.Visits),
		LastSaved:       s.LastSaved(),
		VisitsForReward: doc.RewardSettings.VisitsRequired,
		RewardType:      doc.RewardSettings.RewardType,
	}

	cutoff := now.Add(-activeWindow)
	for _, c := range doc.Customers {
		if !c.InactiveSince(cutoff) {
			summary.ActiveCustomers++
		}
	}

	y, m, d := now.Date()
	for _, v := range doc.Visits {
		vy, vm, vd := v.Timestamp.UTC().Date()
		if vy == y && vm == m && vd == d {
			summary.VisitsToday++
		}
	}

	for _, r := range doc.Rewards {
		if r.IsRedeemed() {
			summary.RewardsRedeemed++
		} else {
			summary.RewardsEarned++
		}
	}
	return summary
}

func findCustomer(doc *models.Document, id string) int {
	for i := range doc.Customers {
		if doc.Customers[i].ID == id {
			return i
		}
	}
	return -1
}
