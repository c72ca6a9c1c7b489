package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const periodColumns = `id, group_id, month, year, beneficiary_id, beneficiary_bank_name,
	beneficiary_bank_account, per_member_amount, total_expected, total_collected,
	is_finalized, finalized_at, created_by, created_at, updated_at`

// PeriodRepository implements domain.PeriodRepository using PostgreSQL
type PeriodRepository struct {
	baseRepository
}

// NewPeriodRepository creates a new PeriodRepository
func NewPeriodRepository(pool *pgxpool.Pool) *PeriodRepository {
	return &PeriodRepository{baseRepository{pool: pool}}
}

func scanPeriod(row scanner) (*domain.ContributionPeriod, error) {
	var p domain.ContributionPeriod
	err := row.Scan(
		&p.ID, &p.GroupID, &p.Month, &p.Year, &p.BeneficiaryID, &p.BeneficiaryBankName,
		&p.BeneficiaryBankAccount, &p.PerMemberAmount, &p.TotalExpected, &p.TotalCollected,
		&p.IsFinalized, &p.FinalizedAt, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a period. A second period for the same group and month
// returns domain.ErrPeriodAlreadyExists.
func (r *PeriodRepository) Create(ctx context.Context, p *domain.ContributionPeriod) (*domain.ContributionPeriod, error) {
	created, err := scanPeriod(r.db(ctx).QueryRow(ctx, `
		INSERT INTO contribution_periods (
			id, group_id, month, year, beneficiary_id, beneficiary_bank_name,
			beneficiary_bank_account, per_member_amount, total_expected, total_collected,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+periodColumns,
		p.ID, p.GroupID, p.Month, p.Year, p.BeneficiaryID, p.BeneficiaryBankName,
		p.BeneficiaryBankAccount, p.PerMemberAmount, p.TotalExpected, p.TotalCollected,
		p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	))
	if err != nil {
		err = translate(err, nil)
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrPeriodAlreadyExists
		}
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a period by ID
func (r *PeriodRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContributionPeriod, error) {
	p, err := scanPeriod(r.db(ctx).QueryRow(ctx,
		`SELECT `+periodColumns+` FROM contribution_periods WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, domain.ErrPeriodNotFound)
	}
	return p, nil
}

// GetByIDForUpdate locks the period row until the surrounding transaction ends
func (r *PeriodRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.ContributionPeriod, error) {
	p, err := scanPeriod(r.db(ctx).QueryRow(ctx,
		`SELECT `+periodColumns+` FROM contribution_periods WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, translate(err, domain.ErrPeriodNotFound)
	}
	return p, nil
}

// GetByGroupMonth retrieves the period of a group for a month
func (r *PeriodRepository) GetByGroupMonth(ctx context.Context, groupID uuid.UUID, year, month int) (*domain.ContributionPeriod, error) {
	p, err := scanPeriod(r.db(ctx).QueryRow(ctx,
		`SELECT `+periodColumns+` FROM contribution_periods WHERE group_id = $1 AND year = $2 AND month = $3`,
		groupID, year, month))
	if err != nil {
		return nil, translate(err, domain.ErrPeriodNotFound)
	}
	return p, nil
}

// ListByGroup returns a group's periods, newest month first
func (r *PeriodRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*domain.ContributionPeriod, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+periodColumns+` FROM contribution_periods WHERE group_id = $1 ORDER BY year DESC, month DESC`,
		groupID)
	if err != nil {
		return nil, translate(err, nil)
	}
	defer rows.Close()

	periods := make([]*domain.ContributionPeriod, 0)
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// RecomputeCollected rewrites total_collected from the payment rows in one
// statement
func (r *PeriodRepository) RecomputeCollected(ctx context.Context, id uuid.UUID) (*domain.ContributionPeriod, error) {
	p, err := scanPeriod(r.db(ctx).QueryRow(ctx, `
		UPDATE contribution_periods cp
		SET total_collected = (
				SELECT COALESCE(SUM(p.amount), 0)
				FROM payments p
				WHERE p.period_id = cp.id AND p.status = 'paid'
			),
			updated_at = NOW()
		WHERE cp.id = $1
		RETURNING `+periodColumns, id))
	if err != nil {
		return nil, translate(err, domain.ErrPeriodNotFound)
	}
	return p, nil
}

// UpdateTotalExpected overwrites the expected total snapshot
func (r *PeriodRepository) UpdateTotalExpected(ctx context.Context, id uuid.UUID, total decimal.Decimal) (*domain.ContributionPeriod, error) {
	p, err := scanPeriod(r.db(ctx).QueryRow(ctx, `
		UPDATE contribution_periods SET total_expected = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+periodColumns, id, total))
	if err != nil {
		return nil, translate(err, domain.ErrPeriodNotFound)
	}
	return p, nil
}

// Finalize marks the period finalized
func (r *PeriodRepository) Finalize(ctx context.Context, id uuid.UUID, at time.Time) (*domain.ContributionPeriod, error) {
	p, err := scanPeriod(r.db(ctx).QueryRow(ctx, `
		UPDATE contribution_periods SET is_finalized = TRUE, finalized_at = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+periodColumns, id, at))
	if err != nil {
		return nil, translate(err, domain.ErrPeriodNotFound)
	}
	return p, nil
}
