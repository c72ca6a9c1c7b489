package service

import "github.com/dafibh/kitty/kitty-backend/internal/domain"

// PeriodLockGuard decides whether payments in a period may still change.
// Every payment-mutating call consults it after locking the period row.
type PeriodLockGuard interface {
	EnsureMutable(period *domain.ContributionPeriod) error
}

// FinalizationGuard rejects mutations once a period is finalized
type FinalizationGuard struct{}

// EnsureMutable implements PeriodLockGuard
func (FinalizationGuard) EnsureMutable(period *domain.ContributionPeriod) error {
	if period.IsFinalized {
		return &domain.PeriodLockedError{PeriodID: period.ID}
	}
	return nil
}
