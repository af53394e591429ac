package seed

import (
	"context"
	"fmt"
	"log"

	"spilledin/internal/models"

	"gorm.io/gorm"
)

// SeedCompanyInvite is the invite code of the first generated company. It is
// fixed so a seeded database can always be joined.
const SeedCompanyInvite = "SEED2025"

// Options configuration for the seeder
type Options struct {
	Companies          int
	UsersPerCompany    int
	ConfessionsPerUser int
	// MaxVotesPerConfession caps how many colleagues vote on each confession.
	MaxVotesPerConfession int
	// MaxDays spreads confession timestamps over the last N days.
	MaxDays     int
	ShouldClean bool
	SkipBcrypt  bool
	DryRun      bool
	// RandomSeed makes runs reproducible. Zero uses the clock.
	RandomSeed int64
}

// DefaultOptions is a small but lively dataset.
func DefaultOptions() Options {
	return Options{
		Companies:             2,
		UsersPerCompany:       12,
		ConfessionsPerUser:    4,
		MaxVotesPerConfession: 8,
		MaxDays:               90,
	}
}

// Summary counts what a run created.
type Summary struct {
	Companies   int
	Users       int
	Confessions int
	Votes       int
}

// Seed populates the database with fake companies, users, confessions and
// votes.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	log.Printf("🌱 Starting database seeding: %d companies x %d users x %d confessions...",
		opts.Companies, opts.UsersPerCompany, opts.ConfessionsPerUser)

	if opts.ShouldClean && !opts.DryRun {
		if err := ClearData(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for i := 0; i < opts.Companies; i++ {
		var overrides []func(*models.Company)
		if i == 0 {
			overrides = append(overrides, func(c *models.Company) {
				c.Name = "Seed Corp"
				c.InviteCode = SeedCompanyInvite
			})
		}
		company, err := f.CreateCompany(ctx, overrides...)
		if err != nil {
			return nil, fmt.Errorf("failed to create company: %w", err)
		}
		summary.Companies++

		users := make([]*models.UserProfile, 0, opts.UsersPerCompany)
		for j := 0; j < opts.UsersPerCompany; j++ {
			user, err := f.CreateUser(ctx, company)
			if err != nil {
				return nil, fmt.Errorf("failed to create user: %w", err)
			}
			users = append(users, user)
		}
		summary.Users += len(users)
		log.Printf("✓ %s (%s): %d users", company.Name, company.InviteCode, len(users))

		confessions := make([]*models.Confession, 0, len(users)*opts.ConfessionsPerUser)
		for _, user := range users {
			for k := 0; k < opts.ConfessionsPerUser; k++ {
				confessions = append(confessions, f.BuildConfession(user))
			}
		}
		if err := f.CreateConfessionsBatch(ctx, confessions); err != nil {
			return nil, fmt.Errorf("failed to create confessions: %w", err)
		}
		summary.Confessions += len(confessions)

		votes, err := seedVotes(ctx, f, users, confessions, opts.MaxVotesPerConfession)
		if err != nil {
			return nil, fmt.Errorf("failed to create votes: %w", err)
		}
		summary.Votes += votes
		log.Printf("✓ %d confessions, %d votes", len(confessions), votes)
	}

	log.Println("🎉 Database seeding completed successfully!")
	return summary, nil
}

// seedVotes has a random subset of colleagues vote on each confession.
func seedVotes(ctx context.Context, f *Factory, users []*models.UserProfile, confessions []*models.Confession, maxVotes int) (int, error) {
	if maxVotes <= 0 || len(users) == 0 {
		return 0, nil
	}
	total := 0
	for _, c := range confessions {
		n := f.faker.Number(0, min(maxVotes, len(users)))
		start := f.faker.Number(0, len(users)-1)
		for k := 0; k < n; k++ {
			voter := users[(start+k)%len(users)]
			if err := f.CastVote(ctx, voter, c, f.RandomVoteType()); err != nil {
				return total, err
			}
			total++
		}
	}
	return total, nil
}

// ClearData removes every row from the application tables.
func ClearData(ctx context.Context, db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	tables := []string{"toxicity_events", "awards", "monthly_recaps", "votes", "confessions", "user_profiles", "companies"}
	if db.Dialector.Name() == "postgres" {
		return db.WithContext(ctx).Exec(`TRUNCATE TABLE toxicity_events, awards, monthly_recaps, votes, confessions, user_profiles, companies RESTART IDENTITY CASCADE;`).Error
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
