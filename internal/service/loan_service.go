package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/dafibh/kitty/kitty-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// LoanService handles loan issuance and repayment
type LoanService struct {
	tx             domain.Transactor
	groupRepo      domain.GroupRepository
	memberRepo     domain.MemberRepository
	loanRepo       domain.LoanRepository
	repaymentRepo  domain.LoanRepaymentRepository
	notifier       Notifier
	eventPublisher websocket.EventPublisher
	now            func() time.Time
}

// NewLoanService creates a new LoanService
func NewLoanService(
	tx domain.Transactor,
	groupRepo domain.GroupRepository,
	memberRepo domain.MemberRepository,
	loanRepo domain.LoanRepository,
	repaymentRepo domain.LoanRepaymentRepository,
	notifier Notifier,
) *LoanService {
	return &LoanService{
		tx:            tx,
		groupRepo:     groupRepo,
		memberRepo:    memberRepo,
		loanRepo:      loanRepo,
		repaymentRepo: repaymentRepo,
		notifier:      notifier,
		now:           time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *LoanService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// IssueLoanInput contains input for issuing a loan
type IssueLoanInput struct {
	GroupID          uuid.UUID
	MemberID         uuid.UUID
	Principal        decimal.Decimal
	MonthlyRepayment *decimal.Decimal
	Notes            *string
}

// IssueLoan lends the principal to a member. The outstanding balance starts
// at the principal.
func (s *LoanService) IssueLoan(ctx context.Context, actor domain.Actor, input IssueLoanInput) (*domain.Loan, error) {
	now := s.now()
	loan := &domain.Loan{
		ID:                 uuid.New(),
		MemberID:           input.MemberID,
		GroupID:            input.GroupID,
		PrincipalAmount:    input.Principal,
		OutstandingBalance: input.Principal,
		MonthlyRepayment:   input.MonthlyRepayment,
		Status:             domain.LoanStatusActive,
		IssuedDate:         now,
		IssuedBy:           actor.MemberID,
		Notes:              input.Notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := loan.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.groupRepo.GetByID(ctx, input.GroupID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}
	if _, err := memberInGroup(ctx, s.memberRepo, input.MemberID, input.GroupID); err != nil {
		return nil, err
	}

	created, err := s.loanRepo.Create(ctx, loan)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("loan_id", created.ID.String()).
		Str("member_id", created.MemberID.String()).
		Str("principal", created.PrincipalAmount.StringFixed(2)).
		Msg("Loan issued")

	s.notify(ctx, created, "Loan issued",
		fmt.Sprintf("A loan of %s has been issued to you. Outstanding balance: %s.",
			created.PrincipalAmount.StringFixed(2), created.OutstandingBalance.StringFixed(2)))
	return created, nil
}

// RecordRepaymentInput contains input for recording a repayment
type RecordRepaymentInput struct {
	LoanID        uuid.UUID
	Amount        decimal.Decimal
	RepaymentType domain.RepaymentType
	Notes         *string
}

// RecordRepayment reduces the loan balance, clamping at zero. The balance
// update and the repayment log entry commit together.
func (s *LoanService) RecordRepayment(ctx context.Context, actor domain.Actor, input RecordRepaymentInput) (*domain.RepaymentResult, error) {
	if !input.Amount.IsPositive() {
		return nil, domain.ErrAmountInvalid
	}
	if input.RepaymentType == "" {
		input.RepaymentType = domain.RepaymentTypeManual
	}
	if !input.RepaymentType.IsValid() {
		return nil, domain.ErrRepaymentTypeInvalid
	}

	var result *domain.RepaymentResult
	err := runInTx(ctx, s.tx, "record_repayment", func(ctx context.Context) error {
		if _, err := s.activeLoan(ctx, input.LoanID); err != nil {
			return err
		}

		loan, previous, err := s.loanRepo.ApplyRepayment(ctx, input.LoanID, input.Amount)
		if err != nil {
			return err
		}
		if !previous.IsPositive() {
			return domain.ErrLoanAlreadyPaid
		}

		now := s.now()
		repayment, err := s.repaymentRepo.Create(ctx, &domain.LoanRepayment{
			ID:            uuid.New(),
			LoanID:        loan.ID,
			Amount:        input.Amount,
			AppliedAmount: previous.Sub(loan.OutstandingBalance),
			RepaymentType: input.RepaymentType,
			Notes:         input.Notes,
			RecordedBy:    actor.MemberID,
			RepaymentDate: now,
			CreatedAt:     now,
		})
		if err != nil {
			return err
		}
		result = &domain.RepaymentResult{Loan: loan, Repayment: repayment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	loan := result.Loan
	log.Info().
		Str("loan_id", loan.ID.String()).
		Str("amount", input.Amount.StringFixed(2)).
		Str("applied", result.Repayment.AppliedAmount.StringFixed(2)).
		Str("outstanding", loan.OutstandingBalance.StringFixed(2)).
		Str("status", string(loan.Status)).
		Msg("Loan repayment recorded")

	s.notify(ctx, loan, "Loan repayment received",
		fmt.Sprintf("A repayment of %s was recorded on your loan. Outstanding balance: %s.",
			input.Amount.StringFixed(2), loan.OutstandingBalance.StringFixed(2)))
	if loan.Status == domain.LoanStatusPaid {
		s.notify(ctx, loan, "Loan fully repaid",
			fmt.Sprintf("Your loan of %s has been fully repaid.", loan.PrincipalAmount.StringFixed(2)))
	}
	if s.eventPublisher != nil {
		event := websocket.LoanRepaid(result)
		for _, id := range eventAudience(ctx, s.memberRepo, loan.GroupID, actor.MemberID, loan.MemberID) {
			s.eventPublisher.Publish(id, event)
		}
	}
	return result, nil
}

// DeleteLoan archives a loan. Its repayment history stays readable.
func (s *LoanService) DeleteLoan(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	loan, err := s.activeLoan(ctx, id)
	if err != nil {
		return err
	}
	if err := s.loanRepo.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}

	log.Info().
		Str("loan_id", id.String()).
		Str("actor_id", actor.MemberID.String()).
		Msg("Loan archived")

	s.notify(ctx, loan, "Loan removed",
		fmt.Sprintf("Your loan of %s has been removed by an administrator.", loan.PrincipalAmount.StringFixed(2)))
	return nil
}

// GetLoan retrieves a loan, including archived ones
func (s *LoanService) GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return s.loanRepo.GetByID(ctx, id)
}

// ListLoansByGroup returns the group's loans that are not archived
func (s *LoanService) ListLoansByGroup(ctx context.Context, groupID uuid.UUID) ([]*domain.Loan, error) {
	return s.loanRepo.ListByGroup(ctx, groupID)
}

// ListLoansByMember returns the member's loans that are not archived
func (s *LoanService) ListLoansByMember(ctx context.Context, memberID uuid.UUID) ([]*domain.Loan, error) {
	return s.loanRepo.ListByMember(ctx, memberID)
}

// ListRepayments returns the repayment log of a loan, archived or not
func (s *LoanService) ListRepayments(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanRepayment, error) {
	if _, err := s.loanRepo.GetByID(ctx, loanID); err != nil {
		return nil, err
	}
	return s.repaymentRepo.ListByLoan(ctx, loanID)
}

// ReconcileLoan checks the stored balance against principal minus the sum of
// recorded repayments, clamped at zero
func (s *LoanService) ReconcileLoan(ctx context.Context, loanID uuid.UUID) (*domain.LoanReconciliation, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	total, err := s.repaymentRepo.SumByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	derived := loan.PrincipalAmount.Sub(total)
	if derived.IsNegative() {
		derived = decimal.Zero
	}
	rec := &domain.LoanReconciliation{
		LoanID:          loan.ID,
		StoredBalance:   loan.OutstandingBalance,
		DerivedBalance:  derived,
		TotalRepayments: total,
		Consistent:      derived.Equal(loan.OutstandingBalance),
	}
	if !rec.Consistent {
		log.Warn().
			Str("loan_id", loan.ID.String()).
			Str("stored", rec.StoredBalance.StringFixed(2)).
			Str("derived", rec.DerivedBalance.StringFixed(2)).
			Msg("Loan balance does not match repayment log")
	}
	return rec, nil
}

// activeLoan returns the loan unless it is archived
func (s *LoanService) activeLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loan.DeletedAt != nil {
		return nil, domain.ErrLoanNotFound
	}
	return loan, nil
}

func (s *LoanService) notify(ctx context.Context, loan *domain.Loan, title, message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, &domain.Notification{
		MemberID: loan.MemberID,
		Title:    title,
		Message:  message,
		Type:     domain.NotificationTypeLoan,
		LinkHint: "/loans/" + loan.ID.String(),
	})
}
