package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusActive LoanStatus = "active"
	LoanStatusPaid   LoanStatus = "paid"
)

// Loan is money lent to a member out of the group pot.
// OutstandingBalance == 0 if and only if Status == paid.
type Loan struct {
	ID                 uuid.UUID        `json:"id"`
	MemberID           uuid.UUID        `json:"memberId"`
	GroupID            uuid.UUID        `json:"groupId"`
	PrincipalAmount    decimal.Decimal  `json:"principalAmount"`
	OutstandingBalance decimal.Decimal  `json:"outstandingBalance"`
	MonthlyRepayment   *decimal.Decimal `json:"monthlyRepayment,omitempty"`
	Status             LoanStatus       `json:"status"`
	IssuedDate         time.Time        `json:"issuedDate"`
	IssuedBy           uuid.UUID        `json:"issuedBy"`
	Notes              *string          `json:"notes,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
	DeletedAt          *time.Time       `json:"deletedAt,omitempty"`
}

func (l *Loan) Validate() error {
	if l.MemberID == uuid.Nil {
		return ErrMemberRequired
	}
	if !l.PrincipalAmount.IsPositive() {
		return ErrPrincipalInvalid
	}
	if l.MonthlyRepayment != nil && !l.MonthlyRepayment.IsPositive() {
		return ErrMonthlyRepaymentInvalid
	}
	return nil
}

// RepaidAmount is principal minus outstanding balance
func (l *Loan) RepaidAmount() decimal.Decimal {
	return l.PrincipalAmount.Sub(l.OutstandingBalance)
}

// ApplyRepaymentAmount subtracts amount from balance, clamping at zero, and
// derives the resulting status.
func ApplyRepaymentAmount(balance, amount decimal.Decimal) (decimal.Decimal, LoanStatus) {
	newBalance := balance.Sub(amount)
	if !newBalance.IsPositive() {
		return decimal.Zero, LoanStatusPaid
	}
	return newBalance, LoanStatusActive
}

type RepaymentType string

const (
	RepaymentTypeManual        RepaymentType = "manual"
	RepaymentTypeAutoDeduction RepaymentType = "auto_deduction"
	RepaymentTypePartial       RepaymentType = "partial"
	RepaymentTypeBankTransfer  RepaymentType = "bank_transfer"
)

// ParseRepaymentType normalizes a repayment type. An empty value means manual.
func ParseRepaymentType(s string) (RepaymentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(RepaymentTypeManual):
		return RepaymentTypeManual, nil
	case string(RepaymentTypeAutoDeduction), "contribution_deduction", "contribution-deduction", "auto-deduction":
		return RepaymentTypeAutoDeduction, nil
	case string(RepaymentTypePartial):
		return RepaymentTypePartial, nil
	case string(RepaymentTypeBankTransfer), "bank-transfer":
		return RepaymentTypeBankTransfer, nil
	}
	return "", ErrRepaymentTypeInvalid
}

func (t RepaymentType) IsValid() bool {
	switch t {
	case RepaymentTypeManual, RepaymentTypeAutoDeduction, RepaymentTypePartial, RepaymentTypeBankTransfer:
		return true
	}
	return false
}

// LoanRepayment is an append-only log entry. AppliedAmount is the part of
// Amount that reduced the balance after clamping.
type LoanRepayment struct {
	ID            uuid.UUID       `json:"id"`
	LoanID        uuid.UUID       `json:"loanId"`
	Amount        decimal.Decimal `json:"amount"`
	AppliedAmount decimal.Decimal `json:"appliedAmount"`
	RepaymentType RepaymentType   `json:"repaymentType"`
	Notes         *string         `json:"notes,omitempty"`
	RecordedBy    uuid.UUID       `json:"recordedBy"`
	RepaymentDate time.Time       `json:"repaymentDate"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// RepaymentResult is the outcome of recording a repayment
type RepaymentResult struct {
	Loan      *Loan          `json:"loan"`
	Repayment *LoanRepayment `json:"repayment"`
}

// LoanReconciliation compares the stored balance with the repayment log
type LoanReconciliation struct {
	LoanID          uuid.UUID       `json:"loanId"`
	StoredBalance   decimal.Decimal `json:"storedBalance"`
	DerivedBalance  decimal.Decimal `json:"derivedBalance"`
	TotalRepayments decimal.Decimal `json:"totalRepayments"`
	Consistent      bool            `json:"consistent"`
}

type LoanRepository interface {
	Create(ctx context.Context, loan *Loan) (*Loan, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Loan, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*Loan, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]*Loan, error)
	// ApplyRepayment atomically decrements the outstanding balance (clamped at
	// zero) and derives the status. It returns the updated loan and the balance
	// it had before.
	ApplyRepayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*Loan, decimal.Decimal, error)
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
}

type LoanRepaymentRepository interface {
	Create(ctx context.Context, repayment *LoanRepayment) (*LoanRepayment, error)
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*LoanRepayment, error)
	SumByLoan(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error)
}
