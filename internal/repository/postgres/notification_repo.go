package postgres

import (
	"context"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const notificationColumns = `id, member_id, title, message, type, link_hint, read, created_at`

// NotificationRepository implements domain.NotificationRepository using PostgreSQL
type NotificationRepository struct {
	baseRepository
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{baseRepository{pool: pool}}
}

func scanNotification(row scanner) (*domain.Notification, error) {
	var n domain.Notification
	var kind string
	if err := row.Scan(&n.ID, &n.MemberID, &n.Title, &n.Message, &kind, &n.LinkHint, &n.Read, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Type = domain.NotificationType(kind)
	return &n, nil
}

// Create inserts an unread notification
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	created, err := scanNotification(r.db(ctx).QueryRow(ctx, `
		INSERT INTO notifications (id, member_id, title, message, type, link_hint, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		RETURNING `+notificationColumns,
		n.ID, n.MemberID, n.Title, n.Message, string(n.Type), n.LinkHint, n.CreatedAt))
	if err != nil {
		return nil, translate(err, nil)
	}
	return created, nil
}

// ListByMember returns a member's notifications, newest first
func (r *NotificationRepository) ListByMember(ctx context.Context, memberID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	rows, err := r.db(ctx).Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE member_id = $1 AND (NOT $2 OR NOT read)
		ORDER BY created_at DESC, id
		LIMIT $3`, memberID, unreadOnly, limit)
	if err != nil {
		return nil, translate(err, nil)
	}
	defer rows.Close()

	notifications := make([]*domain.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// CountUnread counts a member's unread notifications
func (r *NotificationRepository) CountUnread(ctx context.Context, memberID uuid.UUID) (int, error) {
	var count int
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE member_id = $1 AND NOT read`, memberID).Scan(&count)
	if err != nil {
		return 0, translate(err, nil)
	}
	return count, nil
}

// MarkRead marks one of the member's notifications as read
func (r *NotificationRepository) MarkRead(ctx context.Context, memberID, id uuid.UUID) (*domain.Notification, error) {
	n, err := scanNotification(r.db(ctx).QueryRow(ctx, `
		UPDATE notifications SET read = TRUE
		WHERE id = $1 AND member_id = $2
		RETURNING `+notificationColumns, id, memberID))
	if err != nil {
		return nil, translate(err, domain.ErrNotificationNotFound)
	}
	return n, nil
}

// MarkAllRead marks every unread notification of the member as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, memberID uuid.UUID) (int, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE member_id = $1 AND NOT read`, memberID)
	if err != nil {
		return 0, translate(err, nil)
	}
	return int(tag.RowsAffected()), nil
}
