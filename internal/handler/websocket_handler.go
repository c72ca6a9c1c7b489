package handler

import (
	"context"
	"net/http"

	"github.com/dafibh/kitty/kitty-backend/internal/websocket"
	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// SubscriberValidator resolves a bearer token to the member a dashboard
// connection subscribes as
type SubscriberValidator interface {
	ValidateToken(ctx context.Context, token string) (websocket.Subscriber, error)
}

// WebSocketHandler upgrades dashboard connections and attaches them to the
// hub under their member
type WebSocketHandler struct {
	hub       *websocket.Hub
	validator SubscriberValidator
	origins   map[string]bool
	upgrader  ws.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *websocket.Hub, validator SubscriberValidator, allowedOrigins []string) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:       hub,
		validator: validator,
		origins:   make(map[string]bool, len(allowedOrigins)),
	}
	for _, origin := range allowedOrigins {
		h.origins[origin] = true
	}
	h.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts configured browser origins and non-browser clients
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.origins[origin] {
		return true
	}
	log.Warn().Str("origin", origin).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// HandleWS handles GET /ws. Browsers cannot set headers on the upgrade, so
// the token comes in the query string.
func (h *WebSocketHandler) HandleWS(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	sub, err := h.validator.ValidateToken(c.Request().Context(), token)
	if err != nil {
		log.Debug().Err(err).Msg("WebSocket connection rejected: invalid token")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	if !sub.Active {
		log.Info().
			Str("member_id", sub.MemberID.String()).
			Msg("WebSocket connection rejected: membership is inactive")
		return echo.NewHTTPError(http.StatusForbidden, "membership is inactive")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Str("member_id", sub.MemberID.String()).Msg("WebSocket upgrade failed")
		return err
	}

	client := websocket.NewClient(conn, sub, h.hub)
	client.Start()

	log.Info().
		Str("member_id", sub.MemberID.String()).
		Str("group_id", sub.GroupID.String()).
		Bool("admin", sub.Admin).
		Str("client_id", client.ID()).
		Int("member_connections", h.hub.ClientCount(sub.MemberID)).
		Msg("WebSocket client connected")
	return nil
}
