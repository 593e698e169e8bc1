package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"loyaltytracker/internal/events"
	"loyaltytracker/internal/models"
	"loyaltytracker/internal/repository"
)

// Slot keys
const (
	DataKey   = "loyalty-tracker-data"
	BackupKey = "loyalty-tracker-backup"
)

// ErrUnsupportedVersion is returned for documents written by a newer schema
var ErrUnsupportedVersion = errors.New("unsupported document version")

// DataService persists the loyalty document in a live slot with one backup copy.
// Reads never fail: unreadable data is logged and reported as absent.
type DataService struct {
	slots  repository.SlotRepository
	bus    *events.Bus
	tracer trace.Tracer
	now    func() time.Time

	// mu serializes writers so rotation, write and broadcast happen in write order
	mu sync.Mutex
}

// NewDataService creates a new data service over the given slots
func NewDataService(slots repository.SlotRepository, bus *events.Bus) *DataService {
	return &DataService{
		slots:  slots,
		bus:    bus,
		tracer: otel.Tracer("loyaltytracker/datastore"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetData returns the live document, falling back to the backup when the
// live slot is missing or unreadable. Returns nil when neither is usable.
func (s *DataService) GetData(ctx context.Context) *models.Document {
	ctx, span := s.tracer.Start(ctx, "datastore.get")
	defer span.End()

	return s.load(ctx)
}

// SaveData rotates the current document into the backup slot, stamps doc
// with the save time and writes it to the live slot. On success a
// data-updated event carrying a copy of doc is published.
func (s *DataService) SaveData(ctx context.Context, doc *models.Document) bool {
	ctx, span := s.tracer.Start(ctx, "datastore.save")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveLocked(ctx, span, doc); err != nil {
		span.RecordError(err)
		log.Printf("[DataService] save failed: %v", err)
		return false
	}
	return true
}

// Update hands the stored document (nil when absent) to fn under the writer
// lock and saves what fn returns, so no other writer on this service can
// land between the read and the write. An error from fn aborts the update
// and is returned as is; saved reports whether the write reached the store.
func (s *DataService) Update(ctx context.Context, fn func(stored *models.Document) (*models.Document, error)) (saved bool, err error) {
	ctx, span := s.tracer.Start(ctx, "datastore.update")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.load(ctx))
	if err != nil {
		return false, err
	}
	if err := s.saveLocked(ctx, span, next); err != nil {
		span.RecordError(err)
		log.Printf("[DataService] save failed: %v", err)
		return false, nil
	}
	return true, nil
}

func (s *DataService) saveLocked(ctx context.Context, span trace.Span, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if current := s.load(ctx); current != nil {
		raw, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("failed to encode backup: %w", err)
		}
		if err := s.slots.Put(ctx, BackupKey, string(raw)); err != nil {
			return fmt.Errorf("failed to write backup: %w", err)
		}
		span.SetAttributes(attribute.Int("backup.bytes", len(raw)))
	}

	stamped := doc.Clone()
	normalizeDocument(stamped)
	stamped.Version = models.CurrentSchemaVersion
	stamped.LastUpdated = s.now()

	raw, err := json.Marshal(stamped)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := s.slots.Put(ctx, DataKey, string(raw)); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	span.SetAttributes(
		attribute.Int("data.bytes", len(raw)),
		attribute.Int("data.customers", len(stamped.Customers)),
	)

	doc.Version = stamped.Version
	doc.LastUpdated = stamped.LastUpdated

	// Subscribers run while mu is held and must not write to the store.
	if s.bus != nil {
		s.bus.Publish(events.DataUpdatedEvent{Document: stamped})
	}
	return nil
}

// ExportData returns the current document as indented JSON, or "" when
// there is nothing readable to export
func (s *DataService) ExportData(ctx context.Context) string {
	ctx, span := s.tracer.Start(ctx, "datastore.export")
	defer span.End()

	doc := s.load(ctx)
	if doc == nil {
		return ""
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		span.RecordError(err)
		log.Printf("[DataService] export failed: %v", err)
		return ""
	}
	span.SetAttributes(attribute.Int("export.bytes", len(raw)))
	return string(raw)
}

// ImportData parses and migrates jsonData, then saves it as the live document.
// Unparseable or unsupported input leaves both slots untouched.
func (s *DataService) ImportData(ctx context.Context, jsonData string) bool {
	ctx, span := s.tracer.Start(ctx, "datastore.import",
		trace.WithAttributes(attribute.Int("import.bytes", len(jsonData))),
	)
	defer span.End()

	doc, err := decodeDocument(jsonData)
	if err != nil {
		span.RecordError(err)
		log.Printf("[DataService] import rejected: %v", err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveLocked(ctx, span, doc); err != nil {
		span.RecordError(err)
		log.Printf("[DataService] import save failed: %v", err)
		return false
	}
	return true
}

// ClearData removes both slots and publishes data-cleared
func (s *DataService) ClearData(ctx context.Context) bool {
	ctx, span := s.tracer.Start(ctx, "datastore.clear")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{DataKey, BackupKey} {
		if err := s.slots.Delete(ctx, key); err != nil {
			span.RecordError(err)
			log.Printf("[DataService] clear failed: %v", err)
			return false
		}
	}

	if s.bus != nil {
		s.bus.Publish(events.DataClearedEvent{})
	}
	return true
}

// GetStorageInfo reports the byte size of each slot
func (s *DataService) GetStorageInfo(ctx context.Context) models.StorageInfo {
	ctx, span := s.tracer.Start(ctx, "datastore.info")
	defer span.End()

	info := models.StorageInfo{
		DataSize:   s.slotSize(ctx, DataKey),
		BackupSize: s.slotSize(ctx, BackupKey),
	}
	info.TotalSize = info.DataSize + info.BackupSize

	if doc := s.load(ctx); doc != nil && !doc.LastUpdated.IsZero() {
		lu := doc.LastUpdated
		info.LastUpdated = &lu
	}
	return info
}

func (s *DataService) slotSize(ctx context.Context, key string) int {
	raw, ok, err := s.slots.Get(ctx, key)
	if err != nil || !ok {
		return 0
	}
	return len(raw)
}

func (s *DataService) load(ctx context.Context) *models.Document {
	doc, err := s.readSlot(ctx, DataKey)
	if err == nil && doc != nil {
		return doc
	}
	if err != nil {
		log.Printf("[DataService] live data unreadable: %v", err)
	}

	backup, err := s.readSlot(ctx, BackupKey)
	if err != nil {
		log.Printf("[DataService] backup unreadable: %v", err)
		return nil
	}
	if backup != nil && doc == nil {
		log.Printf("[DataService] serving backup copy")
	}
	return backup
}

func (s *DataService) readSlot(ctx context.Context, key string) (*models.Document, error) {
	raw, ok, err := s.slots.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return decodeDocument(raw)
}

func decodeDocument(raw string) (*models.Document, error) {
	var doc *models.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("failed to parse document: empty value")
	}
	if err := migrateDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// migrateDocument upgrades older documents in place to the current schema
func migrateDocument(doc *models.Document) error {
	if doc.Version > models.CurrentSchemaVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}

	if doc.Version < 1 {
		defaults := models.DefaultRewardSettings()
		if doc.RewardSettings == (models.RewardSettings{}) {
			doc.RewardSettings = defaults
		}
		if doc.RewardSettings.VisitsRequired <= 0 {
			doc.RewardSettings.VisitsRequired = defaults.VisitsRequired
		}
		if doc.RewardSettings.RewardType == "" {
			doc.RewardSettings.RewardType = defaults.RewardType
		}
		doc.Version = 1
	}

	normalizeDocument(doc)
	return nil
}

func normalizeDocument(doc *models.Document) {
	if doc.Customers == nil {
		doc.Customers = []models.Customer{}
	}
	if doc.Visits == nil {
		doc.Visits = []models.Visit{}
	}
	if doc.Rewards == nil {
		doc.Rewards = []models.Reward{}
	}
}
