// Package seed provides helpers to create demo and load-test data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"spilledin/internal/models"
	"spilledin/internal/repository"
	"spilledin/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every generated account.
const DefaultPassword = "Password123!"

const batchSize = 100

var confessionTemplates = []string{
	"I told %[1]s the %[2]s was done. I have not started the %[2]s.",
	"Every time %[1]s says \"%[3]s\" in a meeting I take a sip of coffee. I am now very awake.",
	"I have been muting myself on calls for a year to eat snacks. Nobody has noticed, not even %[1]s.",
	"Our %[2]s is held together by one spreadsheet that only I understand.",
	"I scheduled a meeting about %[3]s just to get out of another meeting about %[3]s.",
	"%[1]s took credit for my %[2]s and I am plotting a very polite revenge.",
	"I still do not know what %[3]s means and I have been here three years.",
	"The %[2]s outage last week was me. I am taking this to my grave.",
	"I put \"%[3]s\" on my self review and got a raise.",
	"I have a folder called \"%[2]s final FINAL v7\" and I am not sorry.",
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db        *gorm.DB
	opts      Options
	faker     *gofakeit.Faker
	usernames *service.UsernameGenerator
	users     repository.UserRepository
	votes     repository.VoteRepository
	password  string
	now       func() time.Time
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB. db may be
// nil in DryRun mode.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seedValue := opts.RandomSeed
	if seedValue == 0 {
		seedValue = time.Now().UnixNano()
	}
	f := &Factory{
		db:     db,
		opts:   opts,
		faker:  gofakeit.New(seedValue),
		now:    time.Now,
		nextID: 1000,
	}

	var exists func(ctx context.Context, username string) (bool, error)
	if db != nil && !opts.DryRun {
		f.users = repository.NewUserRepository(db)
		f.votes = repository.NewVoteRepository(db)
		exists = f.users.UsernameExists
	}
	usernames, err := service.NewUsernameGenerator(exists)
	if err != nil {
		return nil, err
	}
	f.usernames = usernames

	if opts.SkipBcrypt {
		f.password = DefaultPassword
	} else {
		hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash seed password: %w", err)
		}
		f.password = string(hashed)
	}
	return f, nil
}

func (f *Factory) assignID() uint {
	f.nextID++
	return f.nextID
}

// CreateCompany constructs and persists a company with a random name and
// invite code. Optional overrides run before saving.
func (f *Factory) CreateCompany(ctx context.Context, overrides ...func(*models.Company)) (*models.Company, error) {
	company := &models.Company{
		Name:       f.faker.Company(),
		InviteCode: strings.ToUpper(f.faker.LetterN(4)) + f.faker.DigitN(4),
	}
	for _, override := range overrides {
		override(company)
	}

	if f.opts.DryRun {
		company.ID = f.assignID()
		log.Printf("[dry-run] CreateCompany: %s (%s)", company.Name, company.InviteCode)
		return company, nil
	}
	if err := f.db.WithContext(ctx).Create(company).Error; err != nil {
		return nil, err
	}
	return company, nil
}

// CreateUser constructs and persists a profile in the company with a unique
// anonymous username.
func (f *Factory) CreateUser(ctx context.Context, company *models.Company, overrides ...func(*models.UserProfile)) (*models.UserProfile, error) {
	user := &models.UserProfile{
		CompanyID: company.ID,
		Email:     strings.ToLower(fmt.Sprintf("%s.%s@%s.example.com", f.faker.FirstName(), f.faker.LastName(), f.faker.LetterN(6))),
		Password:  f.password,
	}

	if f.opts.DryRun {
		user.AnonymousUsername = f.usernames.Generate()
	} else {
		name, err := f.usernames.GenerateUnique(ctx)
		if err != nil {
			return nil, err
		}
		user.AnonymousUsername = name
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		user.ID = f.assignID()
		log.Printf("[dry-run] CreateUser: %s in company %d", user.AnonymousUsername, user.CompanyID)
		return user, nil
	}
	if err := f.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildConfession constructs a confession by user without persisting it.
// CreatedAt is spread over the last MaxDays days.
func (f *Factory) BuildConfession(user *models.UserProfile, overrides ...func(*models.Confession)) *models.Confession {
	template := confessionTemplates[f.faker.Number(0, len(confessionTemplates)-1)]
	content := fmt.Sprintf(template, f.faker.FirstName(), strings.ToLower(f.faker.NounAbstract()), f.faker.BuzzWord())
	if len(content) > models.MaxConfessionLength {
		content = content[:models.MaxConfessionLength]
	}

	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	offset := time.Duration(f.faker.Number(0, maxDays*24*60-1)) * time.Minute

	confession := &models.Confession{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Content:   content,
		CreatedAt: f.now().UTC().Add(-offset),
	}
	if f.faker.Number(1, 100) <= 20 {
		url := fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID())
		confession.ImageURL = &url
	}

	for _, override := range overrides {
		override(confession)
	}
	return confession
}

// CreateConfessionsBatch persists multiple confessions in batched inserts.
func (f *Factory) CreateConfessionsBatch(ctx context.Context, confessions []*models.Confession) error {
	if f.opts.DryRun {
		for _, c := range confessions {
			c.ID = f.assignID()
		}
		log.Printf("[dry-run] CreateConfessionsBatch: %d confessions (no DB write)", len(confessions))
		return nil
	}
	if len(confessions) == 0 {
		return nil
	}
	return f.db.WithContext(ctx).CreateInBatches(&confessions, batchSize).Error
}

// CastVote records voter's vote through the same transactional path the API
// uses, so tallies, scores and toxicity history stay consistent.
func (f *Factory) CastVote(ctx context.Context, voter *models.UserProfile, confession *models.Confession, voteType models.VoteType) error {
	if f.opts.DryRun {
		return nil
	}
	_, err := f.votes.CastVote(ctx, voter.CompanyID, voter.ID, confession.ID, voteType)
	return err
}

// RandomVoteType returns an upvote about 70% of the time.
func (f *Factory) RandomVoteType() models.VoteType {
	if f.faker.Number(1, 10) <= 7 {
		return models.VoteUpvote
	}
	return models.VoteDownvote
}
