package service

import (
	"context"
	"strings"
	"time"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/dafibh/kitty/kitty-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultNotificationListLimit caps member notification listings
	DefaultNotificationListLimit = 50
	MaxNotificationListLimit     = 200
)

// Notifier accepts member notifications produced by accounting operations.
// Implementations must never fail the caller: the financial change has
// already committed when Notify is called.
type Notifier interface {
	Notify(ctx context.Context, notification *domain.Notification)
}

// NotificationService writes notifications to the member inbox and pushes
// them to connected dashboards
type NotificationService struct {
	notificationRepo domain.NotificationRepository
	eventPublisher   websocket.EventPublisher
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notificationRepo domain.NotificationRepository) *NotificationService {
	return &NotificationService{notificationRepo: notificationRepo}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *NotificationService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// Deliver appends an unread notification. Failures are returned as
// NotificationDeliveryError.
func (s *NotificationService) Deliver(ctx context.Context, n *domain.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.Title = strings.TrimSpace(n.Title)
	n.Read = false

	created, err := s.notificationRepo.Create(ctx, n)
	if err != nil {
		return &domain.NotificationDeliveryError{MemberID: n.MemberID, Err: err}
	}

	if s.eventPublisher != nil {
		s.eventPublisher.Publish(created.MemberID, websocket.NotificationCreated(created))
	}
	return nil
}

// Notify implements Notifier by delivering inline and logging failures
func (s *NotificationService) Notify(ctx context.Context, n *domain.Notification) {
	if err := s.Deliver(ctx, n); err != nil {
		log.Error().
			Err(err).
			Str("member_id", n.MemberID.String()).
			Str("title", n.Title).
			Msg("Failed to deliver notification")
	}
}

// ListForMember returns a member's notifications, newest first
func (s *NotificationService) ListForMember(ctx context.Context, memberID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = DefaultNotificationListLimit
	}
	if limit > MaxNotificationListLimit {
		limit = MaxNotificationListLimit
	}
	return s.notificationRepo.ListByMember(ctx, memberID, unreadOnly, limit)
}

// CountUnread returns the number of unread notifications for a member
func (s *NotificationService) CountUnread(ctx context.Context, memberID uuid.UUID) (int, error) {
	return s.notificationRepo.CountUnread(ctx, memberID)
}

// MarkRead marks one of the member's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, memberID, id uuid.UUID) (*domain.Notification, error) {
	return s.notificationRepo.MarkRead(ctx, memberID, id)
}

// MarkAllRead marks every notification of the member as read
func (s *NotificationService) MarkAllRead(ctx context.Context, memberID uuid.UUID) (int, error) {
	return s.notificationRepo.MarkAllRead(ctx, memberID)
}
