package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"loyaltytracker/internal/events"
	"loyaltytracker/internal/models"
	"loyaltytracker/internal/repository"
)

// Delivery defaults
const (
	DefaultBatchSize   = 10
	DefaultBatchDelay  = time.Second
	DefaultSendTimeout = 10 * time.Second
)

// JobPublisher hands a campaign to the background worker
type JobPublisher interface {
	PublishCampaign(ctx context.Context, campaignID string) error
}

// directoryRefresher is a directory that can pick up customers written
// by other processes
type directoryRefresher interface {
	Refresh(ctx context.Context) bool
}

// CampaignConfig tunes delivery pacing
type CampaignConfig struct {
	BatchSize   int
	BatchDelay  time.Duration
	SendTimeout time.Duration
}

// CampaignService handles campaign business logic
type CampaignService struct {
	campaignRepo repository.CampaignRepository
	messenger    Messenger
	providers    *ProviderRegistry
	templateSvc  *TemplateService
	directory    CustomerDirectory
	bus          *events.Bus
	publisher    JobPublisher
	cfg          CampaignConfig
	tracer       trace.Tracer

	now      func() time.Time
	newID    func() string
	inFlight atomic.Int32
}

// NewCampaignService creates a new campaign service. directory may be nil,
// in which case every recipient is greeted as "Valued Customer".
func NewCampaignService(
	campaignRepo repository.CampaignRepository,
	messenger Messenger,
	providers *ProviderRegistry,
	templateSvc *TemplateService,
	directory CustomerDirectory,
	bus *events.Bus,
	cfg CampaignConfig,
) *CampaignService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}

	return &CampaignService{
		campaignRepo: campaignRepo,
		messenger:    messenger,
		providers:    providers,
		templateSvc:  templateSvc,
		directory:    directory,
		bus:          bus,
		cfg:          cfg,
		tracer:       otel.Tracer("loyaltytracker/campaigns"),
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
}

// SetPublisher enables queued delivery
func (s *CampaignService) SetPublisher(p JobPublisher) {
	s.publisher = p
}

// SendMessageRequest describes a campaign to send or schedule.
// Audience is used when Recipients is empty.
type SendMessageRequest struct {
	Name          string              `json:"name"`
	Type          models.CampaignType `json:"type"`
	Message       string              `json:"message"`
	Recipients    []string            `json:"recipients"`
	Audience      models.Audience     `json:"audience,omitempty"`
	ScheduledDate *time.Time          `json:"scheduledDate,omitempty"`
}

// SendMessage sends message to recipients as a new campaign and reports
// whether at least one delivery succeeded
func (s *CampaignService) SendMessage(ctx context.Context, recipients []string, message, name string, campaignType models.CampaignType) (bool, error) {
	campaign, err := s.SendCampaign(ctx, &SendMessageRequest{
		Name:       name,
		Type:       campaignType,
		Message:    message,
		Recipients: recipients,
	})
	if err != nil {
		return false, err
	}
	return campaign.SuccessCount > 0, nil
}

// SendCampaign creates a campaign and delivers it before returning.
// The returned campaign is always final (sent or failed) once created.
func (s *CampaignService) SendCampaign(ctx context.Context, req *SendMessageRequest) (*models.Campaign, error) {
	campaign, err := s.newCampaign(req, models.CampaignStatusSending)
	if err != nil {
		return nil, err
	}

	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	return s.deliver(ctx, campaign)
}

// QueueCampaign creates a campaign and hands it to the worker queue
func (s *CampaignService) QueueCampaign(ctx context.Context, req *SendMessageRequest) (*models.Campaign, error) {
	if s.publisher == nil {
		return nil, &BusinessLogicError{Message: "campaign queue is not configured"}
	}

	campaign, err := s.newCampaign(req, models.CampaignStatusSending)
	if err != nil {
		return nil, err
	}

	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	if err := s.publisher.PublishCampaign(ctx, campaign.ID); err != nil {
		campaign.Status = models.CampaignStatusFailed
		if updErr := s.campaignRepo.Update(context.WithoutCancel(ctx), campaign); updErr != nil {
			log.Printf("[Campaign] failed to mark %s failed: %v", campaign.ID, updErr)
		}
		return campaign, fmt.Errorf("failed to queue campaign: %w", err)
	}

	log.Printf("[Campaign] queued %s (%d recipients)", campaign.ID, len(campaign.Recipients))
	return campaign, nil
}

// Deliver sends a stored campaign. Used by the worker for queued campaigns
// and for drafts whose time has come.
func (s *CampaignService) Deliver(ctx context.Context, campaignID string) (*models.Campaign, error) {
	campaign, err := s.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.IsFinal() {
		return campaign, &ConflictError{Resource: "campaign", Message: fmt.Sprintf("campaign %s is already %s", campaignID, campaign.Status)}
	}

	if campaign.Status != models.CampaignStatusSending {
		campaign.Status = models.CampaignStatusSending
		if err := s.campaignRepo.Update(ctx, campaign); err != nil {
			return nil, fmt.Errorf("failed to update campaign: %w", err)
		}
	}

	// queued and scheduled campaigns may name customers added elsewhere
	if r, ok := s.directory.(directoryRefresher); ok {
		r.Refresh(ctx)
	}
	return s.deliver(ctx, campaign)
}

// DeliverDue delivers every draft whose scheduled date has passed and
// returns how many were attempted. One failed campaign does not stop the rest.
func (s *CampaignService) DeliverDue(ctx context.Context) (int, error) {
	status := models.CampaignStatusDraft
	drafts, err := s.ListCampaigns(ctx, repository.CampaignFilters{Status: &status})
	if err != nil {
		return 0, err
	}

	now := s.now()
	attempted := 0
	var errs []error
	for _, c := range drafts {
		if c.ScheduledDate == nil || c.IsScheduled(now) {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		attempted++
		if _, err := s.Deliver(ctx, c.ID); err != nil {
			errs = append(errs, fmt.Errorf("campaign %s: %w", c.ID, err))
		}
	}
	return attempted, errors.Join(errs...)
}

// ScheduleCampaign stores a campaign as a draft for later delivery
func (s *CampaignService) ScheduleCampaign(ctx context.Context, req *SendMessageRequest) (*models.Campaign, error) {
	campaign, err := s.newCampaign(req, models.CampaignStatusDraft)
	if err != nil {
		return nil, err
	}
	campaign.ScheduledDate = req.ScheduledDate

	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	return campaign, nil
}

// GetCampaign retrieves a campaign by ID
func (s *CampaignService) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	campaign, err := s.campaignRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "campaign", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return campaign, nil
}

// ListCampaigns lists campaigns, newest first
func (s *CampaignService) ListCampaigns(ctx context.Context, filters repository.CampaignFilters) ([]*models.Campaign, error) {
	campaigns, err := s.campaignRepo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

// GetCampaignStats aggregates outcomes across every campaign
func (s *CampaignService) GetCampaignStats(ctx context.Context) (models.CampaignStats, error) {
	campaigns, err := s.ListCampaigns(ctx, repository.CampaignFilters{})
	if err != nil {
		return models.CampaignStats{}, err
	}

	stats := models.CampaignStats{TotalCampaigns: len(campaigns)}
	for _, c := range campaigns {
		stats.TotalSent += c.SuccessCount + c.FailureCount
		stats.TotalDelivered += c.SuccessCount
		stats.TotalCost += c.TotalCost
	}
	if stats.TotalSent > 0 {
		stats.DeliveryRate = float64(stats.TotalDelivered) / float64(stats.TotalSent) * 100
	}
	return stats, nil
}

// SetProvider selects the SMS provider by key
func (s *CampaignService) SetProvider(key string) bool {
	return s.providers.SetProvider(key)
}

// CurrentProvider returns the selected SMS provider
func (s *CampaignService) CurrentProvider() models.SMSProvider {
	return s.providers.Current()
}

// GetProviders returns the provider table
func (s *CampaignService) GetProviders() map[string]models.SMSProvider {
	return s.providers.Providers()
}

// CalculateCost prices a message with the current provider
func (s *CampaignService) CalculateCost(recipients, messageLength int) float64 {
	return s.providers.CalculateCost(recipients, messageLength)
}

// SelectAudience returns the phone numbers of the customers in audience
func (s *CampaignService) SelectAudience(audience models.Audience) ([]string, error) {
	if s.directory == nil {
		return []string{}, nil
	}
	return SelectAudience(s.directory.Customers(), audience, s.now())
}

// Templates returns the built-in message templates
func (s *CampaignService) Templates() []MessageTemplate {
	return s.templateSvc.Templates()
}

// PreviewMessageRequest asks how a message renders and what it would cost
type PreviewMessageRequest struct {
	Message    string `json:"message"`
	CustomerID string `json:"customerId,omitempty"`
	Recipients int    `json:"recipients,omitempty"`
}

// PreviewMessageResult is the rendered message with its pricing
type PreviewMessageResult struct {
	RenderedMessage     string   `json:"renderedMessage"`
	Length              int      `json:"length"`
	Segments            int      `json:"segments"`
	EstimatedCost       float64  `json:"estimatedCost"`
	Provider            string   `json:"provider"`
	UnknownPlaceholders []string `json:"unknownPlaceholders"`
}

// PreviewMessage renders message for a customer (or a generic greeting)
// and prices it for the requested number of recipients
func (s *CampaignService) PreviewMessage(ctx context.Context, req *PreviewMessageRequest) (*PreviewMessageResult, error) {
	if err := s.templateSvc.ValidateTemplate(req.Message); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	name := ""
	if req.CustomerID != "" {
		if s.directory == nil {
			return nil, &NotFoundError{Resource: "customer", ID: req.CustomerID}
		}
		c, ok := s.directory.Customer(req.CustomerID)
		if !ok {
			return nil, &NotFoundError{Resource: "customer", ID: req.CustomerID}
		}
		name = c.Name
	}

	rendered, err := s.templateSvc.Render(req.Message, name)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	recipients := req.Recipients
	if recipients <= 0 {
		recipients = 1
	}

	provider := s.providers.Current()
	result := &PreviewMessageResult{
		RenderedMessage:     rendered,
		Length:              len(rendered),
		EstimatedCost:       s.providers.CalculateCost(recipients, len(rendered)),
		Provider:            provider.Key,
		UnknownPlaceholders: s.templateSvc.UnknownPlaceholders(req.Message),
	}
	if provider.MaxLength > 0 {
		result.Segments = (len(rendered) + provider.MaxLength - 1) / provider.MaxLength
	}
	return result, nil
}

// IsLoading reports whether any delivery is in progress
func (s *CampaignService) IsLoading() bool {
	return s.inFlight.Load() > 0
}

func (s *CampaignService) newCampaign(req *SendMessageRequest, status models.CampaignStatus) (*models.Campaign, error) {
	if req == nil {
		return nil, validationf("request cannot be nil")
	}

	recipients := req.Recipients
	if len(recipients) == 0 && req.Audience != "" {
		selected, err := s.SelectAudience(req.Audience)
		if err != nil {
			return nil, err
		}
		recipients = selected
	}
	recipients = dedupePhones(recipients)
	if len(recipients) == 0 {
		return nil, validationf("at least one recipient is required")
	}

	campaign := &models.Campaign{
		ID:         s.newID(),
		Name:       strings.TrimSpace(req.Name),
		Type:       req.Type,
		Message:    req.Message,
		Recipients: recipients,
		Status:     status,
		Results:    []models.SendResult{},
	}
	if err := campaign.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if err := s.templateSvc.ValidateTemplate(campaign.Message); err != nil {
		return nil, validationf("invalid template: %v", err)
	}
	return campaign, nil
}

// deliver sends every batch, then records the outcome. The campaign is
// finalized as sent or failed on every path.
func (s *CampaignService) deliver(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error) {
	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	ctx, span := s.tracer.Start(ctx, "campaign.deliver",
		trace.WithAttributes(
			attribute.String("campaign.id", campaign.ID),
			attribute.String("campaign.type", string(campaign.Type)),
			attribute.Int("campaign.recipients", len(campaign.Recipients)),
		),
	)
	defer span.End()

	results, sendErr := s.sendBatches(ctx, campaign)

	campaign.Results = results
	campaign.Tally()
	if sendErr != nil {
		campaign.Status = models.CampaignStatusFailed
		span.RecordError(sendErr)
	} else {
		now := s.now()
		campaign.Status = models.CampaignStatusSent
		campaign.SentDate = &now
	}
	span.SetAttributes(
		attribute.Int("campaign.success", campaign.SuccessCount),
		attribute.Int("campaign.failure", campaign.FailureCount),
	)

	// the outcome is recorded even when ctx was canceled mid-delivery
	if err := s.campaignRepo.Update(context.WithoutCancel(ctx), campaign); err != nil {
		log.Printf("[Campaign] failed to record outcome of %s: %v", campaign.ID, err)
		if sendErr == nil {
			sendErr = fmt.Errorf("failed to update campaign: %w", err)
		}
	}

	if sendErr != nil {
		log.Printf("[Campaign] %s failed after %d results: %v", campaign.ID, len(results), sendErr)
		return campaign, sendErr
	}

	log.Printf("[Campaign] %s sent: %d ok, %d failed, cost %.2f",
		campaign.ID, campaign.SuccessCount, campaign.FailureCount, campaign.TotalCost)

	if s.bus != nil {
		s.bus.Publish(events.CampaignSentEvent{
			CampaignID:   campaign.ID,
			CampaignName: campaign.Name,
			SuccessCount: campaign.SuccessCount,
			FailureCount: campaign.FailureCount,
			TotalCount:   len(campaign.Recipients),
			TotalCost:    campaign.TotalCost,
		})
	}
	return campaign, nil
}

// sendBatches sends to recipients in batches. Recipients within a batch are
// sent concurrently; batch starts are spaced at least BatchDelay apart.
func (s *CampaignService) sendBatches(ctx context.Context, campaign *models.Campaign) ([]models.SendResult, error) {
	limit := rate.Inf
	if s.cfg.BatchDelay > 0 {
		limit = rate.Every(s.cfg.BatchDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	recipients := campaign.Recipients
	results := make([]models.SendResult, 0, len(recipients))

	for start := 0; start < len(recipients); start += s.cfg.BatchSize {
		if err := limiter.Wait(ctx); err != nil {
			return results, fmt.Errorf("delivery interrupted: %w", err)
		}

		end := min(start+s.cfg.BatchSize, len(recipients))
		batch := make([]models.SendResult, end-start)

		g, gctx := errgroup.WithContext(ctx)
		for i, phone := range recipients[start:end] {
			i, phone := i, phone
			g.Go(func() error {
				res, err := s.sendOne(gctx, phone, campaign.Message)
				batch[i] = res
				return err
			})
		}
		err := g.Wait()
		results = append(results, batch...)
		if err != nil {
			return results, fmt.Errorf("batch starting at recipient %d: %w", start, err)
		}
	}
	return results, nil
}

func (s *CampaignService) sendOne(ctx context.Context, phone, template string) (models.SendResult, error) {
	name := ""
	if s.directory != nil {
		if c, ok := s.directory.CustomerByPhone(phone); ok {
			name = c.Name
		}
	}

	message, err := s.templateSvc.Render(template, name)
	if err != nil {
		return models.SendResult{Phone: phone, Error: err.Error()}, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	res, err := s.messenger.Send(sendCtx, phone, message)
	if res.Phone == "" {
		res.Phone = phone
	}
	if err != nil {
		res.Success = false
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			res.Error = "delivery timed out"
			return res, nil
		}
		res.Error = err.Error()
		return res, err
	}
	return res, nil
}

func dedupePhones(phones []string) []string {
	seen := make(map[string]bool, len(phones))
	out := make([]string, 0, len(phones))
	for _, p := range phones {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := FormatKenyanPhone(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
