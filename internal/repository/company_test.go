package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"spilledin/internal/cache"
	"spilledin/internal/models"
	"spilledin/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestCompanyRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCompanyRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		id           uint
		mockBehavior func()
		wantName     string
		wantCode     string
	}{
		{
			name: "Success",
			id:   1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "name", "invite_code"}).
					AddRow(1, "TechCorp Inc", "TECH2024")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "companies" WHERE "companies"."id" = $1 ORDER BY "companies"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			wantName: "TechCorp Inc",
		},
		{
			name: "Not Found",
			id:   99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "companies" WHERE "companies"."id" = $1 ORDER BY "companies"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			wantCode: models.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			company, err := repo.GetByID(ctx, tt.id)

			if tt.wantCode != "" {
				var appErr *models.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, tt.wantCode, appErr.Code)
			} else if assert.NoError(t, err) {
				assert.Equal(t, tt.wantName, company.Name)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCompanyRepository_InviteCodes(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCompanyRepository(db)
	ctx := context.Background()

	company := &models.Company{Name: "TechCorp Inc", InviteCode: "TECH2024"}
	require.NoError(t, repo.Create(ctx, company))

	found, err := repo.GetByInviteCode(ctx, "TECH2024")
	require.NoError(t, err)
	assert.Equal(t, company.ID, found.ID)

	_, err = repo.GetByInviteCode(ctx, "NOPE")
	assert.Equal(t, 404, models.StatusFor(err))

	err = repo.Create(ctx, &models.Company{Name: "Copycat", InviteCode: "TECH2024"})
	assert.Equal(t, 409, models.StatusFor(err))

	updated, err := repo.UpdateInviteCode(ctx, company.ID, "TECH2025")
	require.NoError(t, err)
	assert.Equal(t, "TECH2025", updated.InviteCode)

	_, err = repo.GetByInviteCode(ctx, "TECH2024")
	assert.Error(t, err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCompanyRepository_RotateInviteDropsCachedProfiles(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	db := testutil.NewDB(t)
	repo := NewCompanyRepository(db)
	ctx := context.Background()
	acme := testutil.Company(t, db, "Acme", "ACME01")
	other := testutil.Company(t, db, "Other", "OTHER1")
	alice := testutil.User(t, db, acme.ID, "SneakyOtter11")
	outsider := testutil.User(t, db, other.ID, "QuietMole33")

	for _, id := range []uint{alice.ID, outsider.ID} {
		require.NoError(t, cache.SetJSON(ctx, cache.ProfileKey(id), map[string]string{"invite_code": "stale"}, cache.ProfileTTL))
	}

	_, err := repo.UpdateInviteCode(ctx, acme.ID, "ACME02")
	require.NoError(t, err)

	assert.False(t, mr.Exists(cache.ProfileKey(alice.ID)))
	assert.True(t, mr.Exists(cache.ProfileKey(outsider.ID)))
}

func TestRecapRepository_SaveUpserts(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewRecapRepository(db)
	ctx := context.Background()
	company := testutil.Company(t, db, "Acme", "ACME01")

	_, found, err := repo.Get(ctx, company.ID, 5, 2025)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Save(ctx, &models.MonthlyRecap{
		CompanyID: company.ID, Month: 5, Year: 2025, Summary: "first", GeneratedAt: time.Now().UTC(),
	}))
	require.NoError(t, repo.Save(ctx, &models.MonthlyRecap{
		CompanyID: company.ID, Month: 5, Year: 2025, Summary: "second", GeneratedAt: time.Now().UTC(),
	}))

	recap, found, err := repo.Get(ctx, company.ID, 5, 2025)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "second", recap.Summary)

	var count int64
	require.NoError(t, db.Model(&models.MonthlyRecap{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
