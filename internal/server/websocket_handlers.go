package server

import (
	"context"
	"errors"
	"log"

	"spilledin/internal/cache"
	"spilledin/internal/models"
	"spilledin/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// wsTicket is stored in Redis until the socket handshake consumes it.
type wsTicket struct {
	UserID uint `json:"user_id"`
}

// IssueWSTicket handles POST /api/ws/ticket
// @Summary Issue a single-use WebSocket ticket
// @Description Pass the ticket as ?ticket= on /api/ws within 30 seconds
// @Tags realtime
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewUnavailableError("Realtime feed unavailable", "", nil))
	}

	ticket := uuid.NewString()
	if err := cache.SetJSON(c.UserContext(), cache.WSTicketKey(ticket), wsTicket{UserID: userID(c)}, cache.WSTicketTTL); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(cache.WSTicketTTL.Seconds()),
	})
}

// WebSocketUpgrade rejects plain HTTP requests to the feed socket.
func (s *Server) WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// WebSocketFeed streams the company feed events to the socket.
func (s *Server) WebSocketFeed() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(uint)
		companyID, _ := conn.Locals("companyID").(uint)
		if userID == 0 || companyID == 0 {
			log.Printf("WebSocket feed: unauthenticated connection attempt")
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(companyID, userID, conn)
		if err != nil {
			log.Printf("WebSocket feed: failed to register user %d: %v", userID, err)
			msg := `{"error":"unavailable"}`
			if errors.Is(err, notifications.ErrUserLimit) {
				msg = `{"error":"too many connections"}`
			}
			_ = conn.WriteMessage(websocket.TextMessage, []byte(msg))
			_ = conn.Close()
			return
		}

		// Text frames from the client are ignored; the feed is one-way.
		client.IncomingHandler = func(*notifications.Client, []byte) {}

		go client.WritePump()
		client.ReadPump()
	})
}

// realtimeContext detaches publishing from the request lifetime.
func realtimeContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
