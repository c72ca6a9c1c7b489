package service

import (
	"context"
	"errors"
	"time"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/dafibh/kitty/kitty-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PeriodService manages contribution periods and their derived totals
type PeriodService struct {
	tx             domain.Transactor
	groupRepo      domain.GroupRepository
	memberRepo     domain.MemberRepository
	periodRepo     domain.PeriodRepository
	paymentRepo    domain.PaymentRepository
	eventPublisher websocket.EventPublisher
	now            func() time.Time
}

// NewPeriodService creates a new PeriodService
func NewPeriodService(
	tx domain.Transactor,
	groupRepo domain.GroupRepository,
	memberRepo domain.MemberRepository,
	periodRepo domain.PeriodRepository,
	paymentRepo domain.PaymentRepository,
) *PeriodService {
	return &PeriodService{
		tx:          tx,
		groupRepo:   groupRepo,
		memberRepo:  memberRepo,
		periodRepo:  periodRepo,
		paymentRepo: paymentRepo,
		now:         time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *PeriodService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// CreatePeriodInput contains input for opening a contribution period
type CreatePeriodInput struct {
	GroupID                uuid.UUID
	Year                   int
	Month                  int
	PerMemberAmount        decimal.Decimal
	BeneficiaryID          *uuid.UUID
	BeneficiaryBankName    *string
	BeneficiaryBankAccount *string
}

// CreatePeriod opens the period for a month. TotalExpected is snapshotted from
// the active membership at creation time.
func (s *PeriodService) CreatePeriod(ctx context.Context, actor domain.Actor, input CreatePeriodInput) (*domain.ContributionPeriod, error) {
	if err := domain.ValidatePeriodMonth(input.Year, input.Month); err != nil {
		return nil, err
	}
	if !input.PerMemberAmount.IsPositive() {
		return nil, domain.ErrAmountInvalid
	}

	var created *domain.ContributionPeriod
	err := runInTx(ctx, s.tx, "create_period", func(ctx context.Context) error {
		if _, err := s.groupRepo.GetByID(ctx, input.GroupID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrGroupNotFound
			}
			return err
		}

		_, err := s.periodRepo.GetByGroupMonth(ctx, input.GroupID, input.Year, input.Month)
		if err == nil {
			return domain.ErrPeriodAlreadyExists
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if input.BeneficiaryID != nil {
			if _, err := memberInGroup(ctx, s.memberRepo, *input.BeneficiaryID, input.GroupID); err != nil {
				return err
			}
		}

		totalExpected, err := s.expectedTotal(ctx, input.GroupID, input.PerMemberAmount)
		if err != nil {
			return err
		}

		now := s.now()
		created, err = s.periodRepo.Create(ctx, &domain.ContributionPeriod{
			ID:                     uuid.New(),
			GroupID:                input.GroupID,
			Month:                  input.Month,
			Year:                   input.Year,
			BeneficiaryID:          input.BeneficiaryID,
			BeneficiaryBankName:    input.BeneficiaryBankName,
			BeneficiaryBankAccount: input.BeneficiaryBankAccount,
			PerMemberAmount:        input.PerMemberAmount,
			TotalExpected:          totalExpected,
			TotalCollected:         decimal.Zero,
			CreatedBy:              actor.MemberID,
			CreatedAt:              now,
			UpdatedAt:              now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("period_id", created.ID.String()).
		Str("group_id", created.GroupID.String()).
		Str("total_expected", created.TotalExpected.StringFixed(2)).
		Msg("Contribution period created")
	return created, nil
}

// expectedTotal sums each active member's expected amount
func (s *PeriodService) expectedTotal(ctx context.Context, groupID uuid.UUID, perMember decimal.Decimal) (decimal.Decimal, error) {
	members, err := s.memberRepo.ListActiveByGroup(ctx, groupID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, m := range members {
		total = total.Add(m.ExpectedFor(perMember))
	}
	return total, nil
}

// GetPeriod retrieves a period by ID
func (s *PeriodService) GetPeriod(ctx context.Context, id uuid.UUID) (*domain.ContributionPeriod, error) {
	return s.periodRepo.GetByID(ctx, id)
}

// ListPeriodsByGroup returns the group's periods, newest month first
func (s *PeriodService) ListPeriodsByGroup(ctx context.Context, groupID uuid.UUID) ([]*domain.ContributionPeriod, error) {
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}
	return s.periodRepo.ListByGroup(ctx, groupID)
}

// GetPeriodSummary returns the period with its payments
func (s *PeriodService) GetPeriodSummary(ctx context.Context, id uuid.UUID) (*domain.PeriodSummary, error) {
	period, err := s.periodRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.ListByPeriod(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.PeriodSummary{Period: period, Payments: payments}, nil
}

// RecomputeCollected rescans the period's payments and rewrites
// TotalCollected. It is idempotent and safe to run on finalized periods.
func (s *PeriodService) RecomputeCollected(ctx context.Context, id uuid.UUID) (*domain.ContributionPeriod, error) {
	var period *domain.ContributionPeriod
	err := runInTx(ctx, s.tx, "recompute_collected", func(ctx context.Context) error {
		if _, err := s.periodRepo.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		var err error
		period, err = s.periodRepo.RecomputeCollected(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return period, nil
}

// RecalculateExpected re-snapshots TotalExpected from the current active
// membership. Finalized periods keep their snapshot.
func (s *PeriodService) RecalculateExpected(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.ContributionPeriod, error) {
	var period *domain.ContributionPeriod
	err := runInTx(ctx, s.tx, "recalculate_expected", func(ctx context.Context) error {
		locked, err := s.periodRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := (FinalizationGuard{}).EnsureMutable(locked); err != nil {
			return err
		}
		total, err := s.expectedTotal(ctx, locked.GroupID, locked.PerMemberAmount)
		if err != nil {
			return err
		}
		period, err = s.periodRepo.UpdateTotalExpected(ctx, id, total)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("period_id", id.String()).
		Str("actor_id", actor.MemberID.String()).
		Str("total_expected", period.TotalExpected.StringFixed(2)).
		Msg("Period expected total recalculated")
	s.publish(ctx, period, actor.MemberID)
	return period, nil
}

// FinalizePeriod closes the period for payment changes. It cannot be undone.
func (s *PeriodService) FinalizePeriod(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.ContributionPeriod, error) {
	var period *domain.ContributionPeriod
	err := runInTx(ctx, s.tx, "finalize_period", func(ctx context.Context) error {
		locked, err := s.periodRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if locked.IsFinalized {
			return &domain.PeriodLockedError{PeriodID: id}
		}
		if _, err := s.periodRepo.RecomputeCollected(ctx, id); err != nil {
			return err
		}
		period, err = s.periodRepo.Finalize(ctx, id, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("period_id", id.String()).
		Str("actor_id", actor.MemberID.String()).
		Str("total_collected", period.TotalCollected.StringFixed(2)).
		Msg("Contribution period finalized")
	s.publish(ctx, period, actor.MemberID)
	return period, nil
}

func (s *PeriodService) publish(ctx context.Context, period *domain.ContributionPeriod, members ...uuid.UUID) {
	if s.eventPublisher == nil {
		return
	}
	event := websocket.PeriodRecomputed(period)
	for _, id := range eventAudience(ctx, s.memberRepo, period.GroupID, members...) {
		s.eventPublisher.Publish(id, event)
	}
}
