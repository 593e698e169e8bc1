package service

import (
	"math"
	"sort"
	"sync"

	"loyaltytracker/internal/models"
)

// ProviderRegistry holds the SMS provider table and the current selection
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]models.SMSProvider
	current   string
}

// NewProviderRegistry creates a registry over providers, selecting
// defaultKey when it exists. A nil table uses the built-in providers.
func NewProviderRegistry(providers map[string]models.SMSProvider, defaultKey string) *ProviderRegistry {
	if providers == nil {
		providers = models.DefaultProviders()
	}

	table := make(map[string]models.SMSProvider, len(providers))
	for k, p := range providers {
		if p.Key == "" {
			p.Key = k
		}
		if p.MaxLength <= 0 {
			p.MaxLength = models.MaxMessageLength
		}
		table[k] = p
	}

	r := &ProviderRegistry{providers: table}
	if _, ok := table[defaultKey]; ok {
		r.current = defaultKey
	} else if _, ok := table[models.DefaultProviderKey]; ok {
		r.current = models.DefaultProviderKey
	} else if keys := r.keys(); len(keys) > 0 {
		r.current = keys[0]
	}
	return r
}

// SetProvider selects a provider; unknown keys leave the selection unchanged
func (r *ProviderRegistry) SetProvider(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[key]; !ok {
		return false
	}
	r.current = key
	return true
}

// Current returns the selected provider
func (r *ProviderRegistry) Current() models.SMSProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[r.current]
}

// Providers returns a copy of the provider table
func (r *ProviderRegistry) Providers() map[string]models.SMSProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]models.SMSProvider, len(r.providers))
	for k, p := range r.providers {
		out[k] = p
	}
	return out
}

// CalculateCost prices a send with the current provider:
// recipients x segments x costPerSMS, rounded to cents
func (r *ProviderRegistry) CalculateCost(recipients, messageLength int) float64 {
	return costFor(r.Current(), recipients, messageLength)
}

func costFor(p models.SMSProvider, recipients, messageLength int) float64 {
	if recipients <= 0 || messageLength <= 0 || p.MaxLength <= 0 {
		return 0
	}
	segments := int(math.Ceil(float64(messageLength) / float64(p.MaxLength)))
	return math.Round(float64(recipients*segments)*p.CostPerSMS*100) / 100
}

func (r *ProviderRegistry) keys() []string {
	keys := make([]string, 0, len(r.providers))
	for k := range r.providers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
