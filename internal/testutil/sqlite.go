// Package testutil provides shared fixtures for tests that need a real database.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"spilledin/internal/database"
	"spilledin/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// NewDB returns an isolated in-memory sqlite database with the full schema.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := fmt.Sprintf("%s_%d", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()), dbSeq.Add(1))
	db, err := database.OpenSQLiteMemory(name)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Company inserts a company.
func Company(t testing.TB, db *gorm.DB, name, code string) *models.Company {
	t.Helper()
	c := &models.Company{Name: name, InviteCode: code}
	require.NoError(t, db.Create(c).Error)
	return c
}

// User inserts a user profile in the company. The password field holds a
// placeholder; tests that log in set a real hash.
func User(t testing.TB, db *gorm.DB, companyID uint, username string) *models.UserProfile {
	t.Helper()
	u := &models.UserProfile{
		CompanyID:         companyID,
		Email:             strings.ToLower(username) + "@example.com",
		Password:          "x",
		AnonymousUsername: username,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// Confession inserts a confession by the user at the given time.
func Confession(t testing.TB, db *gorm.DB, author *models.UserProfile, content string, at time.Time) *models.Confession {
	t.Helper()
	c := &models.Confession{
		UserID:    author.ID,
		CompanyID: author.CompanyID,
		Content:   content,
		CreatedAt: at.UTC(),
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// Reload returns the current row for the user.
func Reload(t testing.TB, db *gorm.DB, userID uint) *models.UserProfile {
	t.Helper()
	var u models.UserProfile
	require.NoError(t, db.First(&u, userID).Error)
	return &u
}
