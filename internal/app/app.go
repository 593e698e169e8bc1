// Package app wires the storage, event bus and services shared by the
// API server, the campaign worker and the seed tool.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"

	"loyaltytracker/internal/config"
	"loyaltytracker/internal/events"
	"loyaltytracker/internal/repository"
	"loyaltytracker/internal/service"
)

// App holds the constructed services
type App struct {
	DB            *sql.DB
	Bus           *events.Bus
	Data          *service.DataService
	Loyalty       *service.LoyaltyService
	Notifications *service.NotificationService
	Providers     *service.ProviderRegistry
	Sender        *service.SenderService
	Templates     *service.TemplateService
	Campaigns     *service.CampaignService

	unsubscribe func()
}

// New opens storage for cfg.Storage.Driver and builds every service on top of it
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Bus: events.NewBus()}

	var (
		slots     repository.SlotRepository
		campaigns repository.CampaignRepository
	)

	if cfg.UsesPostgres() {
		db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		log.Println("✅ Connected to database")

		a.DB = db
		slots = repository.NewSlotRepository(db)
		campaigns = repository.NewCampaignRepository(db)
	} else {
		log.Println("💾 Using in-memory storage")
		slots = repository.NewMemorySlotRepository(cfg.Storage.QuotaBytes)
		campaigns = repository.NewMemoryCampaignRepository()
	}

	a.Data = service.NewDataService(slots, a.Bus)
	a.Loyalty = service.NewLoyaltyService(ctx, a.Data, a.Bus)
	a.Notifications = service.NewNotificationService()
	a.unsubscribe = service.SubscribeNotifications(a.Bus, a.Notifications)

	a.Providers = service.NewProviderRegistry(cfg.SMS.Providers, cfg.SMS.Provider)
	a.Sender = service.NewSenderService(a.Providers)
	a.Templates = service.NewTemplateService(service.ShopProfile{
		Name:  cfg.Shop.Name,
		Phone: cfg.Shop.Phone,
	})
	a.Campaigns = service.NewCampaignService(
		campaigns,
		a.Sender,
		a.Providers,
		a.Templates,
		a.Loyalty,
		a.Bus,
		service.CampaignConfig{
			BatchSize:   cfg.SMS.BatchSize,
			BatchDelay:  cfg.SMS.BatchDelay,
			SendTimeout: cfg.SMS.SendTimeout,
		},
	)

	return a, nil
}

// Close releases subscriptions, timers and the database
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.Loyalty.Close()
	a.Notifications.Close()
	if a.DB != nil {
		a.DB.Close()
	}
}
