package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"loyaltytracker/internal/app"
	"loyaltytracker/internal/config"
	"loyaltytracker/internal/queue"
	"loyaltytracker/internal/service"
	"loyaltytracker/internal/telemetry"
)

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// The worker only sees campaigns the API created if both share the database
	if !cfg.UsesPostgres() {
		log.Fatalf("Worker requires STORAGE_DRIVER=postgres")
	}
	rabbitmqURL := cfg.GetRabbitMQURL()
	if rabbitmqURL == "" {
		log.Fatalf("Worker requires RABBITMQ_ENABLED=true")
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
	log.Println("✅ Services initialized")

	conn, err := queue.NewConnection(rabbitmqURL, cfg.RabbitMQ.ConnectAttempts, 2*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()
	log.Println("✅ Connected to RabbitMQ")

	consumer, err := queue.NewConsumer(conn, queue.CampaignQueue, deliverJob(a.Campaigns))
	if err != nil {
		log.Fatalf("Failed to create consumer: %v", err)
	}
	if err := consumer.Start(ctx); err != nil {
		log.Fatalf("Failed to start consumer: %v", err)
	}
	log.Printf("✅ Worker started, consuming from queue: %s", queue.CampaignQueue)

	go pollScheduled(ctx, a.Campaigns, cfg.SMS.SchedulePoll)

	<-ctx.Done()
	log.Println("🛑 Shutting down gracefully...")

	consumer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("Error flushing traces: %v", err)
	}

	log.Println("✅ Worker stopped")
}

// deliverJob delivers a queued campaign. Jobs for campaigns that no longer
// exist or are already final are acknowledged and dropped.
func deliverJob(campaigns *service.CampaignService) queue.JobHandler {
	return func(ctx context.Context, job *queue.CampaignJob) error {
		log.Printf("📨 Processing campaign %s", job.CampaignID)

		campaign, err := campaigns.Deliver(ctx, job.CampaignID)
		var conflict *service.ConflictError
		switch {
		case service.IsNotFound(err):
			log.Printf("⚠️  Campaign %s not found, dropping job", job.CampaignID)
			return nil
		case errors.As(err, &conflict):
			log.Printf("⚠️  %s, dropping job", conflict.Message)
			return nil
		case err != nil && campaign == nil:
			// delivery never started, so a retry cannot double-send
			log.Printf("❌ Campaign %s could not be loaded: %v", job.CampaignID, err)
			return err
		case err != nil:
			// already recorded as failed; requeueing would resend it
			log.Printf("❌ Campaign %s failed: %v", job.CampaignID, err)
			return nil
		}

		log.Printf("✅ Campaign %s sent: %d ok, %d failed", campaign.ID, campaign.SuccessCount, campaign.FailureCount)
		return nil
	}
}

// pollScheduled delivers scheduled campaigns as they fall due
func pollScheduled(ctx context.Context, campaigns *service.CampaignService, every time.Duration) {
	if every <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := campaigns.DeliverDue(ctx)
			if err != nil {
				log.Printf("❌ Scheduled delivery: %v", err)
			}
			if n > 0 {
				log.Printf("📅 Delivered %d scheduled campaign(s)", n)
			}
		}
	}
}
