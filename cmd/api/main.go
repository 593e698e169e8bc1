package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"loyaltytracker/internal/app"
	"loyaltytracker/internal/config"
	"loyaltytracker/internal/handler"
	"loyaltytracker/internal/queue"
	"loyaltytracker/internal/service"
	"loyaltytracker/internal/telemetry"
)

const version = "1.0.0"

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start services: %v", err)
	}
	defer a.Close()

	// Queued delivery is optional; without it campaigns are sent inline
	if url := cfg.GetRabbitMQURL(); url != "" {
		conn, err := queue.NewConnection(url, cfg.RabbitMQ.ConnectAttempts, 2*time.Second)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer conn.Close()

		publisher, err := queue.NewPublisher(conn, queue.CampaignQueue)
		if err != nil {
			log.Fatalf("Failed to create publisher: %v", err)
		}
		a.Campaigns.SetPublisher(publisher)
		log.Println("✅ Campaign queue enabled")
	}

	scanner := service.NewSimulatedScanner(a.Loyalty, cfg.CheckIn.ScanDelay)
	checkIns := service.NewCheckInService(a.Loyalty, scanner)
	health := service.NewHealthService(a.DB, cfg.GetRabbitMQURL(), cfg.Storage.Driver, version)

	router := handler.NewRouter(handler.Handlers{
		Health:        handler.NewHealthHandler(health),
		Customers:     handler.NewCustomerHandler(a.Loyalty),
		CheckIns:      handler.NewCheckInHandler(checkIns),
		Rewards:       handler.NewRewardHandler(a.Loyalty),
		Data:          handler.NewDataHandler(a.Loyalty, a.Data),
		Campaigns:     handler.NewCampaignHandler(a.Campaigns),
		Preview:       handler.NewPreviewHandler(a.Campaigns),
		Notifications: handler.NewNotificationHandler(a.Notifications),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 API Server starting on port %s", srv.Addr)
		log.Printf("📍 Health check: http://localhost%s/health", srv.Addr)
		log.Printf("🌍 Environment: %s, storage: %s", cfg.Env, cfg.Storage.Driver)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("Error flushing traces: %v", err)
	}

	log.Println("✅ Server stopped")
}
