package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypePayment NotificationType = "payment"
	NotificationTypeLoan    NotificationType = "loan"
	NotificationTypeSystem  NotificationType = "system"
)

// Notification is a member-facing message shown on the member dashboard
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	MemberID  uuid.UUID        `json:"memberId"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	LinkHint  string           `json:"linkHint,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) (*Notification, error)
	ListByMember(ctx context.Context, memberID uuid.UUID, unreadOnly bool, limit int) ([]*Notification, error)
	CountUnread(ctx context.Context, memberID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, memberID, id uuid.UUID) (*Notification, error)
	MarkAllRead(ctx context.Context, memberID uuid.UUID) (int, error)
}
