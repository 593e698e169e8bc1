package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Scanner reads a check-in code and returns the phone number it encodes
type Scanner interface {
	Scan(ctx context.Context) (string, error)
}

// knownCustomerRate is how often the simulated scanner reads an existing customer's code
const knownCustomerRate = 0.7

// SimulatedScanner pretends to read a QR code after a delay. Most scans
// return a known customer's phone; the rest yield a new Kenyan number.
type SimulatedScanner struct {
	directory CustomerDirectory
	delay     time.Duration

	mu   sync.Mutex
	rand *rand.Rand
}

// NewSimulatedScanner creates a scanner drawing known phones from directory
func NewSimulatedScanner(directory CustomerDirectory, delay time.Duration) *SimulatedScanner {
	return &SimulatedScanner{
		directory: directory,
		delay:     delay,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Scan waits for the scan delay, or until ctx is done
func (s *SimulatedScanner) Scan(ctx context.Context) (string, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.directory != nil {
		customers := s.directory.Customers()
		if len(customers) > 0 && s.rand.Float64() < knownCustomerRate {
			return customers[s.rand.Intn(len(customers))].Phone, nil
		}
	}
	return fmt.Sprintf("+2547%08d", s.rand.Intn(100000000)), nil
}
