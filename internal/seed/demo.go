package seed

import (
	"context"
	"errors"
	"fmt"
	"log"

	"spilledin/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Demo account credentials for local development.
const (
	DemoEmail    = "demo@spilledin.com"
	DemoPassword = "demo123"
	DemoUsername = "SneakyPanda42"
)

// DemoCompanies are created on development startup so the registration page
// has invite codes to try.
var DemoCompanies = []models.Company{
	{Name: "TechCorp Inc", InviteCode: "TECH2024"},
	{Name: "StartupXYZ", InviteCode: "STARTUP123"},
	{Name: "MegaCorp Ltd", InviteCode: "MEGA456"},
}

// EnsureDemo creates the demo companies and the demo account if they are
// missing. Existing rows are left untouched.
func EnsureDemo(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var first *models.Company
		for _, demo := range DemoCompanies {
			company := demo
			if err := tx.Where(models.Company{InviteCode: demo.InviteCode}).
				Attrs(models.Company{Name: demo.Name}).
				FirstOrCreate(&company).Error; err != nil {
				return fmt.Errorf("ensure company %s: %w", demo.InviteCode, err)
			}
			if first == nil {
				first = &company
			}
		}

		var existing models.UserProfile
		err := tx.Where("email = ?", DemoEmail).First(&existing).Error
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash demo password: %w", err)
		}
		demoUser := models.UserProfile{
			CompanyID:         first.ID,
			Email:             DemoEmail,
			Password:          string(hashed),
			AnonymousUsername: DemoUsername,
		}
		if err := tx.Create(&demoUser).Error; err != nil {
			return fmt.Errorf("create demo user: %w", err)
		}
		log.Printf("development demo account ensured (%s in %s)", DemoEmail, first.Name)
		return nil
	})
}
