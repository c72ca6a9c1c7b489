package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/dafibh/kitty/kitty-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PaymentService records member payments and keeps the period total in step.
// Every mutation locks the period row, writes the payment, appends to the
// payment event log and recomputes TotalCollected in one transaction.
type PaymentService struct {
	tx             domain.Transactor
	memberRepo     domain.MemberRepository
	periodRepo     domain.PeriodRepository
	paymentRepo    domain.PaymentRepository
	eventRepo      domain.PaymentEventRepository
	guard          PeriodLockGuard
	notifier       Notifier
	eventPublisher websocket.EventPublisher
	now            func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	tx domain.Transactor,
	memberRepo domain.MemberRepository,
	periodRepo domain.PeriodRepository,
	paymentRepo domain.PaymentRepository,
	eventRepo domain.PaymentEventRepository,
	notifier Notifier,
) *PaymentService {
	return &PaymentService{
		tx:          tx,
		memberRepo:  memberRepo,
		periodRepo:  periodRepo,
		paymentRepo: paymentRepo,
		eventRepo:   eventRepo,
		guard:       FinalizationGuard{},
		notifier:    notifier,
		now:         time.Now,
	}
}

// SetLockGuard replaces the default finalization guard
func (s *PaymentService) SetLockGuard(guard PeriodLockGuard) {
	s.guard = guard
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *PaymentService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// PaymentResult is a written payment with the period totals after the write
type PaymentResult struct {
	Payment *domain.Payment            `json:"payment"`
	Period  *domain.ContributionPeriod `json:"period"`
}

// RecordPaymentInput contains input for recording a payment
type RecordPaymentInput struct {
	PeriodID uuid.UUID
	MemberID uuid.UUID
	Amount   decimal.Decimal
	Status   domain.PaymentStatus
}

// RecordPayment adds a payment to a period
func (s *PaymentService) RecordPayment(ctx context.Context, actor domain.Actor, input RecordPaymentInput) (*PaymentResult, error) {
	draft := &domain.Payment{
		PeriodID:   input.PeriodID,
		MemberID:   input.MemberID,
		Amount:     input.Amount,
		Status:     input.Status,
		RecordedBy: actor.MemberID,
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	var result *PaymentResult
	err := runInTx(ctx, s.tx, "record_payment", func(ctx context.Context) error {
		period, err := s.lockMutablePeriod(ctx, input.PeriodID)
		if err != nil {
			return err
		}
		if _, err := memberInGroup(ctx, s.memberRepo, input.MemberID, period.GroupID); err != nil {
			return err
		}

		now := s.now()
		payment := *draft
		payment.ID = uuid.New()
		payment.PaymentDate = now
		payment.CreatedAt = now
		payment.UpdatedAt = now

		created, err := s.paymentRepo.Create(ctx, &payment)
		if err != nil {
			return err
		}
		result, err = s.finish(ctx, domain.PaymentEventCreated, created, actor, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("payment_id", result.Payment.ID.String()).
		Str("period_id", result.Period.ID.String()).
		Str("status", string(result.Payment.Status)).
		Str("total_collected", result.Period.TotalCollected.StringFixed(2)).
		Msg("Payment recorded")

	if result.Payment.Status == domain.PaymentStatusPaid {
		s.notify(ctx, result.Payment.MemberID, "Payment received",
			fmt.Sprintf("Your payment of %s for %s has been recorded as paid.",
				result.Payment.Amount.StringFixed(2), result.Period.Label()),
			result.Period)
	}
	s.publish(ctx, result.Period.GroupID, websocket.PaymentCreated(result), actor.MemberID, result.Payment.MemberID)
	return result, nil
}

// UpdatePaymentStatus moves a payment to any status, including back from paid
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, actor domain.Actor, paymentID uuid.UUID, status domain.PaymentStatus) (*PaymentResult, error) {
	if !status.IsValid() {
		return nil, domain.ErrPaymentStatusInvalid
	}

	var (
		result   *PaymentResult
		previous domain.PaymentStatus
	)
	err := runInTx(ctx, s.tx, "update_payment_status", func(ctx context.Context) error {
		_, current, err := s.lockPaymentPeriod(ctx, paymentID)
		if err != nil {
			return err
		}
		previous = current.Status

		updated, err := s.paymentRepo.UpdateStatus(ctx, paymentID, status)
		if err != nil {
			return err
		}
		result, err = s.finish(ctx, domain.PaymentEventUpdated, updated, actor, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("payment_id", paymentID.String()).
		Str("from", string(previous)).
		Str("to", string(status)).
		Str("total_collected", result.Period.TotalCollected.StringFixed(2)).
		Msg("Payment status updated")

	if previous != status {
		s.notify(ctx, result.Payment.MemberID, "Payment status updated",
			fmt.Sprintf("Your payment of %s for %s is now %s.",
				result.Payment.Amount.StringFixed(2), result.Period.Label(), status),
			result.Period)
	}
	s.publish(ctx, result.Period.GroupID, websocket.PaymentUpdated(result), actor.MemberID, result.Payment.MemberID)
	return result, nil
}

// EditPaymentInput contains the replacement values for a payment
type EditPaymentInput struct {
	MemberID uuid.UUID
	Amount   decimal.Decimal
	Status   domain.PaymentStatus
}

// EditPayment overwrites member, amount and status. PaymentDate is reset to now.
func (s *PaymentService) EditPayment(ctx context.Context, actor domain.Actor, paymentID uuid.UUID, input EditPaymentInput) (*PaymentResult, error) {
	if input.MemberID == uuid.Nil {
		return nil, domain.ErrMemberRequired
	}
	if !input.Amount.IsPositive() {
		return nil, domain.ErrAmountInvalid
	}
	if !input.Status.IsValid() {
		return nil, domain.ErrPaymentStatusInvalid
	}

	var result *PaymentResult
	err := runInTx(ctx, s.tx, "edit_payment", func(ctx context.Context) error {
		period, _, err := s.lockPaymentPeriod(ctx, paymentID)
		if err != nil {
			return err
		}
		if _, err := memberInGroup(ctx, s.memberRepo, input.MemberID, period.GroupID); err != nil {
			return err
		}

		now := s.now()
		updated, err := s.paymentRepo.Update(ctx, paymentID, &domain.UpdatePaymentData{
			MemberID:    input.MemberID,
			Amount:      input.Amount,
			Status:      input.Status,
			PaymentDate: now,
		})
		if err != nil {
			return err
		}
		result, err = s.finish(ctx, domain.PaymentEventUpdated, updated, actor, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("payment_id", paymentID.String()).
		Str("member_id", input.MemberID.String()).
		Str("total_collected", result.Period.TotalCollected.StringFixed(2)).
		Msg("Payment edited")

	s.notify(ctx, result.Payment.MemberID, "Payment updated",
		fmt.Sprintf("Your payment for %s was updated to %s (%s).",
			result.Period.Label(), result.Payment.Amount.StringFixed(2), result.Payment.Status),
		result.Period)
	s.publish(ctx, result.Period.GroupID, websocket.PaymentUpdated(result), actor.MemberID, result.Payment.MemberID)
	return result, nil
}

// DeletePayment removes a payment and returns the period after recomputation
func (s *PaymentService) DeletePayment(ctx context.Context, actor domain.Actor, paymentID uuid.UUID) (*domain.ContributionPeriod, error) {
	var (
		period  *domain.ContributionPeriod
		removed *domain.Payment
	)
	err := runInTx(ctx, s.tx, "delete_payment", func(ctx context.Context) error {
		var err error
		_, removed, err = s.lockPaymentPeriod(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := s.paymentRepo.Delete(ctx, paymentID); err != nil {
			return err
		}
		now := s.now()
		if err := s.eventRepo.Append(ctx, domain.NewPaymentEvent(domain.PaymentEventDeleted, removed, actor, now)); err != nil {
			return err
		}
		period, err = s.periodRepo.RecomputeCollected(ctx, removed.PeriodID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("payment_id", paymentID.String()).
		Str("period_id", period.ID.String()).
		Str("total_collected", period.TotalCollected.StringFixed(2)).
		Msg("Payment deleted")

	s.notify(ctx, removed.MemberID, "Payment removed",
		fmt.Sprintf("Your payment of %s for %s has been removed.",
			removed.Amount.StringFixed(2), period.Label()),
		period)
	s.publish(ctx, period.GroupID, websocket.PaymentDeleted(&PaymentResult{Payment: removed, Period: period}), actor.MemberID, removed.MemberID)
	return period, nil
}

// AttachReceipt stores the receipt object path on a payment
func (s *PaymentService) AttachReceipt(ctx context.Context, actor domain.Actor, paymentID uuid.UUID, path string) (*domain.Payment, error) {
	var updated *domain.Payment
	err := runInTx(ctx, s.tx, "attach_receipt", func(ctx context.Context) error {
		if _, _, err := s.lockPaymentPeriod(ctx, paymentID); err != nil {
			return err
		}
		var err error
		updated, err = s.paymentRepo.SetReceiptPath(ctx, paymentID, path)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("payment_id", paymentID.String()).
		Str("actor_id", actor.MemberID.String()).
		Msg("Receipt attached to payment")
	return updated, nil
}

// GetPayment retrieves a payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	return s.paymentRepo.GetByID(ctx, id)
}

// ListPaymentsByPeriod returns every payment of a period
func (s *PaymentService) ListPaymentsByPeriod(ctx context.Context, periodID uuid.UUID) ([]*domain.Payment, error) {
	if _, err := s.periodRepo.GetByID(ctx, periodID); err != nil {
		return nil, err
	}
	return s.paymentRepo.ListByPeriod(ctx, periodID)
}

// ListPaymentEvents returns the event log of a payment, oldest first.
// The log outlives the payment itself. A payment that never existed has no
// events and is reported as not found.
func (s *PaymentService) ListPaymentEvents(ctx context.Context, paymentID uuid.UUID) ([]*domain.PaymentEvent, error) {
	events, err := s.eventRepo.ListByPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, domain.ErrPaymentNotFound
	}
	return events, nil
}

// lockMutablePeriod locks the period row and checks the lock guard
func (s *PaymentService) lockMutablePeriod(ctx context.Context, periodID uuid.UUID) (*domain.ContributionPeriod, error) {
	period, err := s.periodRepo.GetByIDForUpdate(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.EnsureMutable(period); err != nil {
		return nil, err
	}
	return period, nil
}

// lockPaymentPeriod locks the period owning a payment and re-reads the
// payment under that lock
func (s *PaymentService) lockPaymentPeriod(ctx context.Context, paymentID uuid.UUID) (*domain.ContributionPeriod, *domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	period, err := s.lockMutablePeriod(ctx, payment.PeriodID)
	if err != nil {
		return nil, nil, err
	}
	payment, err = s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	return period, payment, nil
}

// finish appends the event and recomputes the period total
func (s *PaymentService) finish(ctx context.Context, kind domain.PaymentEventKind, payment *domain.Payment, actor domain.Actor, at time.Time) (*PaymentResult, error) {
	if err := s.eventRepo.Append(ctx, domain.NewPaymentEvent(kind, payment, actor, at)); err != nil {
		return nil, err
	}
	period, err := s.periodRepo.RecomputeCollected(ctx, payment.PeriodID)
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Payment: payment, Period: period}, nil
}

func (s *PaymentService) notify(ctx context.Context, memberID uuid.UUID, title, message string, period *domain.ContributionPeriod) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, &domain.Notification{
		MemberID: memberID,
		Title:    title,
		Message:  message,
		Type:     domain.NotificationTypePayment,
		LinkHint: "/periods/" + period.ID.String(),
	})
}

// publish sends the event to the group's admins and the given members
func (s *PaymentService) publish(ctx context.Context, groupID uuid.UUID, event websocket.Event, members ...uuid.UUID) {
	if s.eventPublisher == nil {
		return
	}
	for _, id := range eventAudience(ctx, s.memberRepo, groupID, members...) {
		s.eventPublisher.Publish(id, event)
	}
}
