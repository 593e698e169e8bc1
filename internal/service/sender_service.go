package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"loyaltytracker/internal/models"
)

// Messenger delivers a single message. Delivery failures are reported in
// the result; a non-nil error means the send could not be attempted.
type Messenger interface {
	Send(ctx context.Context, phone, message string) (models.SendResult, error)
}

var simulatedFailures = []string{
	"network timeout",
	"number not reachable",
	"rate limit exceeded",
	"service temporarily unavailable",
	"insufficient balance",
}

// SenderService simulates SMS delivery through the selected provider
type SenderService struct {
	providers *ProviderRegistry

	mu           sync.Mutex
	rand         *rand.Rand
	successRate  float64 // negative means use the provider's rate
	latencyScale float64
}

// NewSenderService creates a simulated sender using the provider's own
// success rate and latency range
func NewSenderService(providers *ProviderRegistry) *SenderService {
	return &SenderService{
		providers:    providers,
		rand:         rand.New(rand.NewSource(time.Now().UnixNano())),
		successRate:  -1,
		latencyScale: 1,
	}
}

// Send simulates delivering message to phone
func (s *SenderService) Send(ctx context.Context, phone, message string) (models.SendResult, error) {
	provider := s.providers.Current()
	if provider.Key == "" {
		return models.SendResult{Phone: phone}, fmt.Errorf("no SMS provider configured")
	}

	if !IsValidKenyanPhone(phone) {
		return models.SendResult{Phone: phone, Error: "invalid phone number"}, nil
	}
	result := models.SendResult{Phone: FormatKenyanPhone(phone)}

	latency, success, failure := s.roll(provider)

	// Simulate network latency
	timer := time.NewTimer(latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return result, ctx.Err()
	case <-timer.C:
	}

	if !success {
		result.Error = failure
		return result, nil
	}

	result.Success = true
	result.MessageID = fmt.Sprintf("%s_%s", provider.Key, uuid.NewString())
	result.Cost = costFor(provider, 1, len(message))
	return result, nil
}

func (s *SenderService) roll(p models.SMSProvider) (time.Duration, bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	latency := p.MinLatency
	if spread := p.MaxLatency - p.MinLatency; spread > 0 {
		latency += time.Duration(s.rand.Int63n(int64(spread)))
	}
	latency = time.Duration(float64(latency) * s.latencyScale)

	rate := p.SuccessRate
	if s.successRate >= 0 {
		rate = s.successRate
	}
	success := s.rand.Float64() < rate

	return latency, success, simulatedFailures[s.rand.Intn(len(simulatedFailures))]
}

// GetSuccessRate returns the effective success rate
func (s *SenderService) GetSuccessRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.successRate >= 0 {
		return s.successRate
	}
	return s.providers.Current().SuccessRate
}

// SetSuccessRate overrides the provider success rate (for testing)
func (s *SenderService) SetSuccessRate(rate float64) {
	if rate < 0.0 {
		rate = 0.0
	}
	if rate > 1.0 {
		rate = 1.0
	}
	s.mu.Lock()
	s.successRate = rate
	s.mu.Unlock()
}

// SetLatencyScale multiplies simulated latency; 0 disables it
func (s *SenderService) SetLatencyScale(scale float64) {
	if scale < 0 {
		scale = 0
	}
	s.mu.Lock()
	s.latencyScale = scale
	s.mu.Unlock()
}
