// Command main fills the database with fake companies, colleagues and confessions.
package main

import (
	"context"
	"flag"
	"log"

	"spilledin/internal/config"
	"spilledin/internal/database"
	"spilledin/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()

	companies := flag.Int("companies", defaults.Companies, "Number of companies to create")
	users := flag.Int("users", defaults.UsersPerCompany, "Users per company")
	confessions := flag.Int("confessions", defaults.ConfessionsPerUser, "Confessions per user")
	votes := flag.Int("max-votes", defaults.MaxVotesPerConfession, "Maximum votes per confession")
	days := flag.Int("days", defaults.MaxDays, "Spread confessions over the last N days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Skip bcrypt and store a placeholder password hash")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	randomSeed := flag.Int64("seed", 0, "Random seed for reproducible runs")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	summary, err := seed.Seed(context.Background(), db, seed.Options{
		Companies:             *companies,
		UsersPerCompany:       *users,
		ConfessionsPerUser:    *confessions,
		MaxVotesPerConfession: *votes,
		MaxDays:               *days,
		ShouldClean:           *shouldClean,
		SkipBcrypt:            *fast,
		DryRun:                *dryRun,
		RandomSeed:            *randomSeed,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ Created %d companies, %d users, %d confessions and %d votes.",
		summary.Companies, summary.Users, summary.Confessions, summary.Votes)
	log.Printf("📧 Join with invite code %s. All seeded users have the password: %s", seed.SeedCompanyInvite, seed.DefaultPassword)
}
