package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContributionPeriod is one month of contributions for a group.
// TotalCollected is derived state and only written by recomputation.
type ContributionPeriod struct {
	ID                     uuid.UUID       `json:"id"`
	GroupID                uuid.UUID       `json:"groupId"`
	Month                  int             `json:"month"`
	Year                   int             `json:"year"`
	BeneficiaryID          *uuid.UUID      `json:"beneficiaryId,omitempty"`
	BeneficiaryBankName    *string         `json:"beneficiaryBankName,omitempty"`
	BeneficiaryBankAccount *string         `json:"beneficiaryBankAccount,omitempty"`
	PerMemberAmount        decimal.Decimal `json:"perMemberAmount"`
	TotalExpected          decimal.Decimal `json:"totalExpected"`
	TotalCollected         decimal.Decimal `json:"totalCollected"`
	IsFinalized            bool            `json:"isFinalized"`
	FinalizedAt            *time.Time      `json:"finalizedAt,omitempty"`
	CreatedBy              uuid.UUID       `json:"createdBy"`
	CreatedAt              time.Time       `json:"createdAt"`
	UpdatedAt              time.Time       `json:"updatedAt"`
}

// Label returns a human readable period name like "March 2025"
func (p *ContributionPeriod) Label() string {
	return fmt.Sprintf("%s %d", time.Month(p.Month).String(), p.Year)
}

// Outstanding is what is still to be collected, never negative
func (p *ContributionPeriod) Outstanding() decimal.Decimal {
	remaining := p.TotalExpected.Sub(p.TotalCollected)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// ValidatePeriodMonth checks the month/year identity of a period
func ValidatePeriodMonth(year, month int) error {
	if month < 1 || month > 12 {
		return ErrPeriodMonthInvalid
	}
	if year < 2000 || year > 2100 {
		return ErrPeriodYearInvalid
	}
	return nil
}

// PeriodSummary is a period with its payment set
type PeriodSummary struct {
	Period   *ContributionPeriod `json:"period"`
	Payments []*Payment          `json:"payments"`
}

type PeriodRepository interface {
	Create(ctx context.Context, period *ContributionPeriod) (*ContributionPeriod, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ContributionPeriod, error)
	// GetByIDForUpdate locks the period row for the rest of the transaction
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*ContributionPeriod, error)
	GetByGroupMonth(ctx context.Context, groupID uuid.UUID, year, month int) (*ContributionPeriod, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*ContributionPeriod, error)
	// RecomputeCollected sets total_collected to the sum of paid payments and
	// returns the updated period
	RecomputeCollected(ctx context.Context, id uuid.UUID) (*ContributionPeriod, error)
	UpdateTotalExpected(ctx context.Context, id uuid.UUID, total decimal.Decimal) (*ContributionPeriod, error)
	Finalize(ctx context.Context, id uuid.UUID, at time.Time) (*ContributionPeriod, error)
}
