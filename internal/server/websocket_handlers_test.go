package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"spilledin/internal/cache"
	"spilledin/internal/models"
	"spilledin/internal/notifications"
	"spilledin/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ticketResponse struct {
	Ticket    string `json:"ticket"`
	ExpiresIn int    `json:"expires_in"`
}

func TestIssueWSTicket(t *testing.T) {
	env := newTestEnv(t, true)
	company := testutil.Company(t, env.db, "Acme Corp", "ACME2024")
	u, token := env.user(t, company, "SneakyPanda42")

	var ticket ticketResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/ws/ticket", token, nil, &ticket))
	assert.NotEmpty(t, ticket.Ticket)
	assert.Equal(t, 30, ticket.ExpiresIn)

	raw, err := env.mr.Get(cache.WSTicketKey(ticket.Ticket))
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprintf(`{"user_id":%d}`, u.ID), raw)

	// A plain GET consumes the ticket but cannot upgrade.
	path := "/api/ws?ticket=" + ticket.Ticket
	assert.Equal(t, fiber.StatusUpgradeRequired, env.do(t, http.MethodGet, path, "", nil, nil))

	var body models.ErrorResponse
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, path, "", nil, &body))
	assert.Equal(t, "Invalid or expired WebSocket ticket", body.Error)

	// Bearer tokens are not accepted on the socket itself.
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/ws", token, nil, nil))
}

func TestIssueWSTicketWithoutRedis(t *testing.T) {
	env := newTestEnv(t, false)
	company := testutil.Company(t, env.db, "Acme Corp", "ACME2024")
	_, token := env.user(t, company, "SneakyPanda42")

	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodPost, "/api/ws/ticket", token, nil, nil))
}

func TestWebSocketFeedDeliversCompanyEvents(t *testing.T) {
	env := newTestEnv(t, true)
	acme := testutil.Company(t, env.db, "Acme Corp", "ACME2024")
	globex := testutil.Company(t, env.db, "Globex", "GLOBEX99")
	_, viewerToken := env.user(t, acme, "SneakyPanda42")
	_, authorToken := env.user(t, acme, "QuietOtter07")
	_, outsiderToken := env.user(t, globex, "LoudMoose33")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, env.srv.hub.StartWiring(ctx, env.srv.notifier))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = env.app.Listener(ln) }()
	t.Cleanup(func() { _ = env.app.Shutdown() })

	dial := func(t *testing.T, token string) *websocket.Conn {
		t.Helper()
		var ticket ticketResponse
		require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/ws/ticket", token, nil, &ticket))
		conn, resp, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/api/ws?ticket=%s", ln.Addr(), ticket.Ticket), nil)
		require.NoError(t, err)
		_ = resp.Body.Close()
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	}

	viewer := dial(t, viewerToken)
	outsider := dial(t, outsiderToken)
	require.Eventually(t, func() bool { return env.srv.hub.ConnectionCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	var created confessionResponse
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/confession/create", authorToken,
		fiber.Map{"content": "I joined this call from bed."}, &created))

	require.NoError(t, viewer.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := viewer.ReadMessage()
	require.NoError(t, err)

	var event struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg, &event))
	assert.Equal(t, notifications.EventConfessionCreated, event.Type)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, float64(created.Confession.ID), payload["id"])
	assert.Equal(t, "I joined this call from bed.", payload["content"])
	assert.NotContains(t, payload, "user_vote")
	assert.NotContains(t, payload, "is_own")

	// Other companies never see the event.
	require.NoError(t, outsider.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = outsider.ReadMessage()
	assert.Error(t, err)
}
