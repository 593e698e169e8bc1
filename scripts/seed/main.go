package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"loyaltytracker/internal/app"
	"loyaltytracker/internal/config"
	"loyaltytracker/internal/models"
	"loyaltytracker/internal/service"
)

// ANSI color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Command-line flags
var (
	customersCount = flag.Int("customers", 12, "Number of customers to create")
	maxVisits      = flag.Int("visits", 12, "Most visits any seeded customer gets")
	campaignsCount = flag.Int("campaigns", 2, "Number of scheduled campaigns to create")
	clearData      = flag.Bool("clear", false, "Clear all loyalty data before seeding")
	showHelp       = flag.Bool("help", false, "Show usage information")
)

var (
	firstNames = []string{"Michael", "Sophia", "James", "Olivia", "Daniel", "Emma", "Benjamin", "Ava", "Lucas", "Mia", "Noah", "Isabella"}
	lastNames  = []string{"Kamau", "Wanjiku", "Ochieng", "Atieno", "Mwangi", "Akinyi", "Kipchoge", "Chebet", "Mutua", "Omondi"}
	services   = []string{"Haircut", "Beard Trim", "Braids", "Manicure", "Hair Colour", "Shave"}
)

func main() {
	flag.Parse()

	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	// Load .env file (ignore error if not present)
	_ = godotenv.Load()

	printInfo("=== Loyalty Tracker Seeder ===\n")

	cfg, err := config.Load()
	if err != nil {
		printError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}
	if !cfg.UsesPostgres() {
		printWarning("STORAGE_DRIVER is memory: seeded data disappears when the seeder exits")
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		printError(fmt.Sprintf("Failed to start services: %v", err))
		os.Exit(1)
	}
	defer a.Close()

	if *clearData {
		printWarning("Clearing existing loyalty data...")
		if !a.Loyalty.ClearAllData(ctx) {
			printError("Failed to clear loyalty data")
			os.Exit(1)
		}
		printSuccess("✓ Data cleared\n")
	}

	checkIns := service.NewCheckInService(a.Loyalty, nil)

	customersCreated, visitsCreated, err := seedCustomers(ctx, a.Loyalty, checkIns, *customersCount, *maxVisits)
	if err != nil {
		printError(fmt.Sprintf("Failed to seed customers: %v", err))
		os.Exit(1)
	}

	campaignsCreated, err := seedCampaigns(ctx, a.Campaigns, *campaignsCount)
	if err != nil {
		printError(fmt.Sprintf("Failed to seed campaigns: %v", err))
		os.Exit(1)
	}

	summary := a.Loyalty.Summary()
	printInfo("\n=== Seeding Summary ===")
	printSuccess(fmt.Sprintf("✓ Customers created: %d", customersCreated))
	printSuccess(fmt.Sprintf("✓ Visits recorded: %d", visitsCreated))
	printSuccess(fmt.Sprintf("✓ Rewards outstanding: %d", summary.RewardsEarned))
	printSuccess(fmt.Sprintf("✓ Campaigns scheduled: %d", campaignsCreated))
	printInfo("\nSeeding completed successfully!")
}

// seedCustomers registers demo customers and checks each in a varying
// number of times so rewards are issued the normal way. Phones already
// registered are skipped, which makes reruns harmless.
func seedCustomers(ctx context.Context, loyalty *service.LoyaltyService, checkIns *service.CheckInService, count, maxVisits int) (int, int, error) {
	printInfo(fmt.Sprintf("Seeding %d customers...", count))

	created, visits := 0, 0
	for i := 1; i <= count; i++ {
		phone := fmt.Sprintf("0700010%03d", i)
		if _, exists := loyalty.CustomerByPhone(phone); exists {
			continue
		}

		customer, err := loyalty.AddCustomer(ctx, models.Customer{
			Name:     firstNames[i%len(firstNames)] + " " + lastNames[i%len(lastNames)],
			Phone:    phone,
			JoinDate: time.Now().UTC().AddDate(0, 0, -i*7),
		})
		if err != nil {
			return created, visits, fmt.Errorf("failed to add customer %s: %w", phone, err)
		}
		created++

		n := 0
		if maxVisits > 0 {
			n = (i * 5) % (maxVisits + 1)
		}
		for v := 0; v < n; v++ {
			_, err := checkIns.CheckIn(ctx, &service.CheckInRequest{
				CustomerID:  customer.ID,
				ServiceType: services[(i+v)%len(services)],
			})
			if err != nil {
				return created, visits, fmt.Errorf("failed to check in %s: %w", phone, err)
			}
			visits++
		}
	}

	printSuccess(fmt.Sprintf("✓ Seeded %d customers (skipped %d existing)", created, count-created))
	return created, visits, nil
}

// seedCampaigns schedules demo campaigns for the coming days
func seedCampaigns(ctx context.Context, campaigns *service.CampaignService, count int) (int, error) {
	printInfo(fmt.Sprintf("Seeding %d campaigns...", count))

	templates := campaigns.Templates()
	created := 0
	for i := 0; i < count && i < len(templates); i++ {
		when := time.Now().UTC().Add(time.Duration(i+1) * 24 * time.Hour)
		_, err := campaigns.ScheduleCampaign(ctx, &service.SendMessageRequest{
			Name:          templates[i].Name,
			Type:          templates[i].Type,
			Message:       templates[i].Message,
			Audience:      models.AudienceAll,
			ScheduledDate: &when,
		})
		if err != nil {
			return created, fmt.Errorf("failed to schedule %q: %w", templates[i].Name, err)
		}
		created++
	}

	printSuccess(fmt.Sprintf("✓ Scheduled %d campaigns", created))
	return created, nil
}

func printSuccess(msg string) {
	fmt.Printf("%s%s%s\n", colorGreen, msg, colorReset)
}

func printError(msg string) {
	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorRed, msg, colorReset)
}

func printInfo(msg string) {
	fmt.Printf("%s%s%s\n", colorCyan, msg, colorReset)
}

func printWarning(msg string) {
	fmt.Printf("%s%s%s\n", colorYellow, msg, colorReset)
}

func printUsage() {
	printInfo("=== Loyalty Tracker Seeder ===\n")
	fmt.Println("Usage: go run ./scripts/seed [flags]")
	fmt.Println("\nFlags:")
	flag.PrintDefaults()
	fmt.Println("\nExamples:")
	fmt.Println("  go run ./scripts/seed")
	fmt.Println("  go run ./scripts/seed -customers=30 -visits=25")
	fmt.Println("  go run ./scripts/seed -clear")
}
