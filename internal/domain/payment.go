package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusOverdue PaymentStatus = "overdue"
)

// ParsePaymentStatus normalizes a status string. "rejected" is accepted as an
// alias of overdue.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentStatusPending:
		return PaymentStatusPending, nil
	case PaymentStatusPaid:
		return PaymentStatusPaid, nil
	case PaymentStatusPartial:
		return PaymentStatusPartial, nil
	case PaymentStatusOverdue, "rejected":
		return PaymentStatusOverdue, nil
	}
	return "", ErrPaymentStatusInvalid
}

// IsValid reports whether the status is one of the recognized values
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusPartial, PaymentStatusOverdue:
		return true
	}
	return false
}

// Payment is a single payment event row. A member may have several payments
// in the same period.
type Payment struct {
	ID          uuid.UUID       `json:"id"`
	PeriodID    uuid.UUID       `json:"periodId"`
	MemberID    uuid.UUID       `json:"memberId"`
	Amount      decimal.Decimal `json:"amount"`
	Status      PaymentStatus   `json:"status"`
	PaymentDate time.Time       `json:"paymentDate"`
	RecordedBy  uuid.UUID       `json:"recordedBy"`
	ReceiptPath *string         `json:"receiptPath,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CountsTowardCollected reports whether the payment is included in the
// period's collected total
func (p *Payment) CountsTowardCollected() bool {
	return p.Status == PaymentStatusPaid
}

func (p *Payment) Validate() error {
	if p.MemberID == uuid.Nil {
		return ErrMemberRequired
	}
	if !p.Amount.IsPositive() {
		return ErrAmountInvalid
	}
	if !p.Status.IsValid() {
		return ErrPaymentStatusInvalid
	}
	return nil
}

// SumCollected totals the amounts of paid payments
func SumCollected(payments []*Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.CountsTowardCollected() {
			total = total.Add(p.Amount)
		}
	}
	return total
}

type PaymentEventKind string

const (
	PaymentEventCreated PaymentEventKind = "created"
	PaymentEventUpdated PaymentEventKind = "updated"
	PaymentEventDeleted PaymentEventKind = "deleted"
)

// PaymentEvent is an append-only record of a payment mutation with the state
// of the payment after it (or before it, for deletions).
type PaymentEvent struct {
	ID         uuid.UUID        `json:"id"`
	PaymentID  uuid.UUID        `json:"paymentId"`
	PeriodID   uuid.UUID        `json:"periodId"`
	Kind       PaymentEventKind `json:"kind"`
	MemberID   uuid.UUID        `json:"memberId"`
	Amount     decimal.Decimal  `json:"amount"`
	Status     PaymentStatus    `json:"status"`
	ActorID    uuid.UUID        `json:"actorId"`
	OccurredAt time.Time        `json:"occurredAt"`
}

// NewPaymentEvent snapshots a payment for the event log
func NewPaymentEvent(kind PaymentEventKind, p *Payment, actor Actor, at time.Time) *PaymentEvent {
	return &PaymentEvent{
		ID:         uuid.New(),
		PaymentID:  p.ID,
		PeriodID:   p.PeriodID,
		Kind:       kind,
		MemberID:   p.MemberID,
		Amount:     p.Amount,
		Status:     p.Status,
		ActorID:    actor.MemberID,
		OccurredAt: at,
	}
}

// UpdatePaymentData holds the overwritable fields of a payment
type UpdatePaymentData struct {
	MemberID    uuid.UUID
	Amount      decimal.Decimal
	Status      PaymentStatus
	PaymentDate time.Time
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) (*Payment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	ListByPeriod(ctx context.Context, periodID uuid.UUID) ([]*Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) (*Payment, error)
	Update(ctx context.Context, id uuid.UUID, data *UpdatePaymentData) (*Payment, error)
	SetReceiptPath(ctx context.Context, id uuid.UUID, path string) (*Payment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type PaymentEventRepository interface {
	Append(ctx context.Context, event *PaymentEvent) error
	ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]*PaymentEvent, error)
}
