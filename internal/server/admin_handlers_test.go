package server

import (
	"net/http"
	"testing"
	"time"

	"spilledin/internal/models"
	"spilledin/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRoutesRequireAdmin(t *testing.T) {
	env := newTestEnv(t, false)
	company := testutil.Company(t, env.db, "Acme Corp", "ACME2024")
	_, token := env.user(t, company, "SneakyPanda42")

	var body models.ErrorResponse
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/admin/companies", token, nil, &body))
	assert.Equal(t, "Admin access required", body.Error)
}

func TestAdminCompanies(t *testing.T) {
	env := newTestEnv(t, true)
	company := testutil.Company(t, env.db, "Acme Corp", "ACME2024")
	admin, token := env.user(t, company, "BossMode01")
	require.NoError(t, env.db.Model(admin).Update("is_admin", true).Error)

	var created models.Company
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/admin/companies", token,
		fiber.Map{"name": " Globex ", "invite_code": "globex99"}, &created))
	assert.Equal(t, "Globex", created.Name)
	assert.Equal(t, "GLOBEX99", created.InviteCode)

	var body models.ErrorResponse
	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, "/api/admin/companies", token,
		fiber.Map{"name": "Globex Again", "invite_code": "GLOBEX99"}, &body))
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/admin/companies", token,
		fiber.Map{"name": "Bad", "invite_code": "no!"}, &body))
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/admin/companies", token,
		fiber.Map{"name": "  ", "invite_code": "VALID123"}, &body))
	assert.Equal(t, "Company name is required", body.Error)

	var list struct {
		Companies []models.Company `json:"companies"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/admin/companies", token, nil, &list))
	require.Len(t, list.Companies, 2)
	assert.Equal(t, "Acme Corp", list.Companies[0].Name)
	assert.Equal(t, "Globex", list.Companies[1].Name)

	// The new invite code is immediately usable.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/auth/invite/GLOBEX99", "", nil, nil))
}

func TestAdminGrantMonthlyAwards(t *testing.T) {
	env := newTestEnv(t, false)
	company := testutil.Company(t, env.db, "Acme Corp", "ACME2024")
	admin, token := env.user(t, company, "BossMode01")
	require.NoError(t, env.db.Model(admin).Update("is_admin", true).Error)
	author := testutil.User(t, env.db, company.ID, "SneakyPanda42")
	testutil.Confession(t, env.db, author, "I reheat fish at noon.", time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC))

	var resp struct {
		Awards []models.Award `json:"awards"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/admin/awards", token,
		fiber.Map{"company_id": company.ID, "month": 3, "year": 2024}, &resp))
	require.NotEmpty(t, resp.Awards)
	for _, a := range resp.Awards {
		assert.Equal(t, author.ID, a.UserID)
		assert.Equal(t, 3, a.Month)
	}

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/admin/awards", token,
		fiber.Map{"company_id": company.ID, "month": 3, "year": 2024}, &resp))
	assert.Empty(t, resp.Awards)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/admin/awards", token,
		fiber.Map{"company_id": 999, "month": 3, "year": 2024}, nil))
}
