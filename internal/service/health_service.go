package service

import (
	"context"
	"database/sql"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Health status constants
const (
	StatusHealthy      = "healthy"
	StatusDegraded     = "degraded"
	StatusUnhealthy    = "unhealthy"
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusDisabled     = "disabled"
)

// HealthStatus represents the overall health status of the application
type HealthStatus struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	Storage   string            `json:"storage"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
}

// HealthChecker handles health check operations. A nil db or empty queue
// URL marks that dependency as disabled rather than disconnected.
type HealthChecker struct {
	db            *sql.DB
	queueURL      string
	storageDriver string
	version       string
	dial          func(url string) (*amqp.Connection, error)
}

// NewHealthService creates a new HealthChecker instance
func NewHealthService(db *sql.DB, queueURL, storageDriver, version string) *HealthChecker {
	return &HealthChecker{
		db:            db,
		queueURL:      queueURL,
		storageDriver: storageDriver,
		version:       version,
		dial:          amqp.Dial,
	}
}

// checkDatabase verifies PostgreSQL connectivity with a timeout
func (h *HealthChecker) checkDatabase(ctx context.Context) string {
	if h.db == nil {
		return StatusDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		return StatusDisconnected
	}
	return StatusConnected
}

// checkQueue verifies RabbitMQ connectivity
func (h *HealthChecker) checkQueue() string {
	if h.queueURL == "" {
		return StatusDisabled
	}

	conn, err := h.dial(h.queueURL)
	if err != nil {
		return StatusDisconnected
	}
	defer conn.Close()

	return StatusConnected
}

// determineOverallStatus calculates the overall health status based on service statuses
func (h *HealthChecker) determineOverallStatus(services map[string]string) string {
	// Loyalty data lives in the database when one is configured
	if services["database"] == StatusDisconnected {
		return StatusUnhealthy
	}

	// Queued campaigns stall without the queue, everything else works
	if services["queue"] == StatusDisconnected {
		return StatusDegraded
	}

	return StatusHealthy
}

// CheckHealth performs health checks on all dependencies and returns the overall status
func (h *HealthChecker) CheckHealth(ctx context.Context) *HealthStatus {
	services := map[string]string{
		"database": h.checkDatabase(ctx),
		"queue":    h.checkQueue(),
	}

	return &HealthStatus{
		Status:    h.determineOverallStatus(services),
		Services:  services,
		Storage:   h.storageDriver,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
}
