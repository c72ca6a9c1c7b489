package postgres

import (
	"context"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const repaymentColumns = `id, loan_id, amount, applied_amount, repayment_type, notes, recorded_by, repayment_date, created_at`

// LoanRepaymentRepository implements domain.LoanRepaymentRepository using PostgreSQL
type LoanRepaymentRepository struct {
	baseRepository
}

// NewLoanRepaymentRepository creates a new LoanRepaymentRepository
func NewLoanRepaymentRepository(pool *pgxpool.Pool) *LoanRepaymentRepository {
	return &LoanRepaymentRepository{baseRepository{pool: pool}}
}

func scanRepayment(row scanner) (*domain.LoanRepayment, error) {
	var rp domain.LoanRepayment
	var kind string
	err := row.Scan(&rp.ID, &rp.LoanID, &rp.Amount, &rp.AppliedAmount, &kind, &rp.Notes,
		&rp.RecordedBy, &rp.RepaymentDate, &rp.CreatedAt)
	if err != nil {
		return nil, err
	}
	rp.RepaymentType = domain.RepaymentType(kind)
	return &rp, nil
}

// Create appends a repayment
func (r *LoanRepaymentRepository) Create(ctx context.Context, rp *domain.LoanRepayment) (*domain.LoanRepayment, error) {
	created, err := scanRepayment(r.db(ctx).QueryRow(ctx, `
		INSERT INTO loan_repayments (id, loan_id, amount, applied_amount, repayment_type, notes, recorded_by, repayment_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+repaymentColumns,
		rp.ID, rp.LoanID, rp.Amount, rp.AppliedAmount, string(rp.RepaymentType), rp.Notes,
		rp.RecordedBy, rp.RepaymentDate, rp.CreatedAt))
	if err != nil {
		return nil, translate(err, nil)
	}
	return created, nil
}

// ListByLoan returns a loan's repayments, oldest first
func (r *LoanRepaymentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanRepayment, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+repaymentColumns+` FROM loan_repayments WHERE loan_id = $1 ORDER BY repayment_date, id`, loanID)
	if err != nil {
		return nil, translate(err, nil)
	}
	defer rows.Close()

	repayments := make([]*domain.LoanRepayment, 0)
	for rows.Next() {
		rp, err := scanRepayment(rows)
		if err != nil {
			return nil, err
		}
		repayments = append(repayments, rp)
	}
	return repayments, rows.Err()
}

// SumByLoan totals the recorded repayment amounts of a loan
func (r *LoanRepaymentRepository) SumByLoan(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM loan_repayments WHERE loan_id = $1`, loanID).Scan(&total)
	if err != nil {
		return decimal.Zero, translate(err, nil)
	}
	return total, nil
}
