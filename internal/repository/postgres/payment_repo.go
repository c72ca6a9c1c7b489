package postgres

import (
	"context"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const paymentColumns = `id, period_id, member_id, amount, status, payment_date, recorded_by, receipt_path, created_at, updated_at`

// PaymentRepository implements domain.PaymentRepository using PostgreSQL
type PaymentRepository struct {
	baseRepository
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{baseRepository{pool: pool}}
}

func scanPayment(row scanner) (*domain.Payment, error) {
	var p domain.Payment
	var status string
	err := row.Scan(&p.ID, &p.PeriodID, &p.MemberID, &p.Amount, &status, &p.PaymentDate,
		&p.RecordedBy, &p.ReceiptPath, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = domain.PaymentStatus(status)
	return &p, nil
}

// Create inserts a payment
func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	created, err := scanPayment(r.db(ctx).QueryRow(ctx, `
		INSERT INTO payments (id, period_id, member_id, amount, status, payment_date, recorded_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+paymentColumns,
		p.ID, p.PeriodID, p.MemberID, p.Amount, string(p.Status), p.PaymentDate, p.RecordedBy, p.CreatedAt, p.UpdatedAt))
	if err != nil {
		return nil, translate(err, nil)
	}
	return created, nil
}

// GetByID retrieves a payment by ID
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	p, err := scanPayment(r.db(ctx).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, domain.ErrPaymentNotFound)
	}
	return p, nil
}

// ListByPeriod returns a period's payments in recording order
func (r *PaymentRepository) ListByPeriod(ctx context.Context, periodID uuid.UUID) ([]*domain.Payment, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE period_id = $1 ORDER BY created_at, id`, periodID)
	if err != nil {
		return nil, translate(err, nil)
	}
	defer rows.Close()

	payments := make([]*domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// UpdateStatus changes a payment's status
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) (*domain.Payment, error) {
	p, err := scanPayment(r.db(ctx).QueryRow(ctx, `
		UPDATE payments SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+paymentColumns, id, string(status)))
	if err != nil {
		return nil, translate(err, domain.ErrPaymentNotFound)
	}
	return p, nil
}

// Update overwrites member, amount, status and payment date
func (r *PaymentRepository) Update(ctx context.Context, id uuid.UUID, data *domain.UpdatePaymentData) (*domain.Payment, error) {
	p, err := scanPayment(r.db(ctx).QueryRow(ctx, `
		UPDATE payments
		SET member_id = $2, amount = $3, status = $4, payment_date = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+paymentColumns,
		id, data.MemberID, data.Amount, string(data.Status), data.PaymentDate))
	if err != nil {
		return nil, translate(err, domain.ErrPaymentNotFound)
	}
	return p, nil
}

// SetReceiptPath stores the receipt object path
func (r *PaymentRepository) SetReceiptPath(ctx context.Context, id uuid.UUID, path string) (*domain.Payment, error) {
	p, err := scanPayment(r.db(ctx).QueryRow(ctx, `
		UPDATE payments SET receipt_path = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+paymentColumns, id, path))
	if err != nil {
		return nil, translate(err, domain.ErrPaymentNotFound)
	}
	return p, nil
}

// Delete removes a payment. Its event log rows are kept.
func (r *PaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return translate(err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}
