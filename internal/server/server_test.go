package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"spilledin/internal/config"
	"spilledin/internal/models"
	"spilledin/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

// stubSummarizer returns a fixed recap text.
type stubSummarizer struct {
	text  string
	err   error
	calls int
}

func (s *stubSummarizer) Summarize(context.Context, string, string) (string, error) {
	s.calls++
	return s.text, s.err
}

type testEnv struct {
	srv        *Server
	app        *fiber.App
	db         *gorm.DB
	mr         *miniredis.Miniredis
	summarizer *stubSummarizer
}

// newTestEnv builds a full app over an in-memory sqlite database and
// miniredis. Pass withRedis=false to run without Redis.
func newTestEnv(t *testing.T, withRedis bool) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db := testutil.NewDB(t)
	env := &testEnv{db: db, summarizer: &stubSummarizer{text: "A spicy month at the office."}}

	var rdb *redis.Client
	if withRedis {
		env.mr = miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: env.mr.Addr()})
	}

	cfg := &config.Config{
		Env:                  "test",
		Port:                 "0",
		JWTSecret:            testSecret,
		JWTTTLHours:          1,
		ImageUploadDir:       t.TempDir(),
		ImageMaxUploadSizeMB: 5,
	}
	srv, err := NewServerWithDeps(cfg, db, rdb, WithSummarizer(env.summarizer))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = srv.hub.Shutdown(context.Background())
		if rdb != nil {
			_ = rdb.Close()
		}
	})

	env.srv = srv
	env.app = srv.NewApp()
	return env
}

// user inserts a user with a real password hash and returns a bearer token.
func (e *testEnv) user(t *testing.T, company *models.Company, username string) (*models.UserProfile, string) {
	t.Helper()
	u := testutil.User(t, e.db, company.ID, username)
	hash, err := bcrypt.GenerateFromPassword([]byte("Sup3rSecret!pw"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, e.db.Model(u).Update("password", string(hash)).Error)

	token, _, err := e.srv.issueToken(u)
	require.NoError(t, err)
	return u, token
}

// do sends a request and decodes a JSON body into out when non-nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.send(t, req, out)
}

func (e *testEnv) send(t *testing.T, req *http.Request, out any) int {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, true)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/live", "", nil, nil))

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", "", nil, &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"])
	assert.Equal(t, "healthy", body.Checks["redis"])
}

func TestHealthWithoutRedis(t *testing.T) {
	env := newTestEnv(t, false)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/ready", "", nil, &body))
	assert.Equal(t, "disabled", body.Checks["redis"])
}

func TestUnknownProtectedRouteRequiresAuth(t *testing.T) {
	env := newTestEnv(t, false)

	var body models.ErrorResponse
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/feed", "", nil, &body))
	assert.Equal(t, "No token provided", body.Error)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/feed", "not-a-jwt", nil, &body))
	assert.Equal(t, "Invalid token", body.Error)
}
