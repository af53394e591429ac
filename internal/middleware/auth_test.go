package middleware

import (
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func TestIssueAndParseToken(t *testing.T) {
	signed, issued, err := IssueToken(testSecret, 42, "SneakyPanda17", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, issued.JTI)
	_, err = uuid.Parse(issued.JTI)
	require.NoError(t, err, "jti is a UUID")

	_, other, err := IssueToken(testSecret, 42, "SneakyPanda17", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, issued.JTI, other.JTI)

	claims, err := ParseToken(testSecret, signed)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "SneakyPanda17", claims.Username)
	assert.Equal(t, issued.JTI, claims.JTI)
	assert.WithinDuration(t, issued.ExpiresAt, claims.ExpiresAt, time.Second)
}

func TestParseTokenRejects(t *testing.T) {
	sign := func(claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": strconv.Itoa(7),
			"iss": TokenIssuer,
			"aud": TokenAudience,
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	expired := base()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	wrongIssuer := base()
	wrongIssuer["iss"] = "someone-else"
	wrongAudience := base()
	wrongAudience["aud"] = "other-client"
	noExp := base()
	delete(noExp, "exp")
	badSub := base()
	badSub["sub"] = "abc"

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"expired", sign(expired, jwt.SigningMethodHS256, []byte(testSecret))},
		{"wrong secret", sign(base(), jwt.SigningMethodHS256, []byte("another-secret"))},
		{"wrong issuer", sign(wrongIssuer, jwt.SigningMethodHS256, []byte(testSecret))},
		{"wrong audience", sign(wrongAudience, jwt.SigningMethodHS256, []byte(testSecret))},
		{"missing exp", sign(noExp, jwt.SigningMethodHS256, []byte(testSecret))},
		{"non numeric subject", sign(badSub, jwt.SigningMethodHS256, []byte(testSecret))},
		{"none algorithm", sign(base(), jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(testSecret, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestBearerToken(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		tok, err := BearerToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).SendString(err.Error())
		}
		return c.SendString(tok)
	})

	tests := []struct {
		header string
		status int
	}{
		{"Bearer abc.def", fiber.StatusOK},
		{"bearer abc.def", fiber.StatusOK},
		{"", fiber.StatusUnauthorized},
		{"Basic dXNlcjpwYXNz", fiber.StatusUnauthorized},
		{"Bearer ", fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tt.status, resp.StatusCode, "header %q", tt.header)
	}
}
