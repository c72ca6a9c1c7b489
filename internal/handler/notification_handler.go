package handler

import (
	"net/http"
	"strconv"

	"github.com/dafibh/kitty/kitty-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles the caller's notification inbox
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// MarkAllReadResponse reports how many notifications were marked read
type MarkAllReadResponse struct {
	Updated int `json:"updated"`
}

// ListNotifications godoc
// @Summary List the caller's notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param unread query bool false "Only unread"
// @Param limit query int false "Maximum results (default 50, max 200)"
// @Success 200 {object} NotificationListResponse
// @Router /me/notifications [get]
func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	actor, _, ok, err := actorFrom(c)
	if !ok {
		return err
	}

	unreadOnly := false
	if v := c.QueryParam("unread"); v != "" {
		if unreadOnly, err = strconv.ParseBool(v); err != nil {
			return NewValidationError(c, "Invalid unread flag", []ValidationError{
				{Field: "unread", Message: "Must be true or false"},
			})
		}
	}
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 {
			return NewValidationError(c, "Invalid limit", []ValidationError{
				{Field: "limit", Message: "Must be a positive integer"},
			})
		}
	}

	ctx := c.Request().Context()
	notifications, err := h.notificationService.ListForMember(ctx, actor.MemberID, unreadOnly, limit)
	if err != nil {
		return handleServiceError(c, err, "list notifications")
	}
	unread, err := h.notificationService.CountUnread(ctx, actor.MemberID)
	if err != nil {
		return handleServiceError(c, err, "count notifications")
	}

	return c.JSON(http.StatusOK, NotificationListResponse{
		Notifications: toNotificationResponses(notifications),
		UnreadCount:   unread,
	})
}

// MarkRead godoc
// @Summary Mark one notification read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} NotificationResponse
// @Failure 404 {object} ProblemDetails
// @Router /me/notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	actor, _, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	id, ok, err := uuidParam(c, "id")
	if !ok {
		return err
	}

	n, err := h.notificationService.MarkRead(c.Request().Context(), actor.MemberID, id)
	if err != nil {
		return handleServiceError(c, err, "mark notification read")
	}
	return c.JSON(http.StatusOK, toNotificationResponse(n))
}

// MarkAllRead godoc
// @Summary Mark every notification read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MarkAllReadResponse
// @Router /me/notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	actor, _, ok, err := actorFrom(c)
	if !ok {
		return err
	}

	n, err := h.notificationService.MarkAllRead(c.Request().Context(), actor.MemberID)
	if err != nil {
		return handleServiceError(c, err, "mark notifications read")
	}
	return c.JSON(http.StatusOK, MarkAllReadResponse{Updated: n})
}
