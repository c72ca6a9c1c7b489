package postgres

import (
	"context"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentEventRepository implements domain.PaymentEventRepository using PostgreSQL
type PaymentEventRepository struct {
	baseRepository
}

// NewPaymentEventRepository creates a new PaymentEventRepository
func NewPaymentEventRepository(pool *pgxpool.Pool) *PaymentEventRepository {
	return &PaymentEventRepository{baseRepository{pool: pool}}
}

// Append inserts an event
func (r *PaymentEventRepository) Append(ctx context.Context, e *domain.PaymentEvent) error {
	_, err := r.db(ctx).Exec(ctx, `
		INSERT INTO payment_events (id, payment_id, period_id, kind, member_id, amount, status, actor_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.PaymentID, e.PeriodID, string(e.Kind), e.MemberID, e.Amount, string(e.Status), e.ActorID, e.OccurredAt)
	return translate(err, nil)
}

// ListByPayment returns a payment's events, oldest first
func (r *PaymentEventRepository) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]*domain.PaymentEvent, error) {
	rows, err := r.db(ctx).Query(ctx, `
		SELECT id, payment_id, period_id, kind, member_id, amount, status, actor_id, occurred_at
		FROM payment_events
		WHERE payment_id = $1
		ORDER BY occurred_at, seq`, paymentID)
	if err != nil {
		return nil, translate(err, nil)
	}
	defer rows.Close()

	events := make([]*domain.PaymentEvent, 0)
	for rows.Next() {
		var e domain.PaymentEvent
		var kind, status string
		if err := rows.Scan(&e.ID, &e.PaymentID, &e.PeriodID, &kind, &e.MemberID, &e.Amount, &status, &e.ActorID, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.Kind = domain.PaymentEventKind(kind)
		e.Status = domain.PaymentStatus(status)
		events = append(events, &e)
	}
	return events, rows.Err()
}
