package postgres

import (
	"context"
	"time"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const loanColumns = `id, member_id, group_id, principal_amount, outstanding_balance, monthly_repayment,
	status, issued_date, issued_by, notes, created_at, updated_at, deleted_at`

// LoanRepository implements domain.LoanRepository using PostgreSQL
type LoanRepository struct {
	baseRepository
}

// NewLoanRepository creates a new LoanRepository
func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{baseRepository{pool: pool}}
}

// scanLoan reads loanColumns followed by any extra destinations
func scanLoan(row scanner, extra ...any) (*domain.Loan, error) {
	var l domain.Loan
	var monthly decimal.NullDecimal
	var status string
	dest := append([]any{
		&l.ID, &l.MemberID, &l.GroupID, &l.PrincipalAmount, &l.OutstandingBalance, &monthly,
		&status, &l.IssuedDate, &l.IssuedBy, &l.Notes, &l.CreatedAt, &l.UpdatedAt, &l.DeletedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	l.Status = domain.LoanStatus(status)
	if monthly.Valid {
		l.MonthlyRepayment = &monthly.Decimal
	}
	return &l, nil
}

// Create inserts a loan
func (r *LoanRepository) Create(ctx context.Context, l *domain.Loan) (*domain.Loan, error) {
	var monthly decimal.NullDecimal
	if l.MonthlyRepayment != nil {
		monthly = decimal.NewNullDecimal(*l.MonthlyRepayment)
	}

	created, err := scanLoan(r.db(ctx).QueryRow(ctx, `
		INSERT INTO loans (
			id, member_id, group_id, principal_amount, outstanding_balance, monthly_repayment,
			status, issued_date, issued_by, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+loanColumns,
		l.ID, l.MemberID, l.GroupID, l.PrincipalAmount, l.OutstandingBalance, monthly,
		string(l.Status), l.IssuedDate, l.IssuedBy, l.Notes, l.CreatedAt, l.UpdatedAt))
	if err != nil {
		return nil, translate(err, nil)
	}
	return created, nil
}

// GetByID retrieves a loan by ID, including archived loans
func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	l, err := scanLoan(r.db(ctx).QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, domain.ErrLoanNotFound)
	}
	return l, nil
}

func (r *LoanRepository) list(ctx context.Context, where string, arg uuid.UUID) ([]*domain.Loan, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE `+where+` AND deleted_at IS NULL ORDER BY issued_date DESC, id`, arg)
	if err != nil {
		return nil, translate(err, nil)
	}
	defer rows.Close()

	loans := make([]*domain.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// ListByGroup returns a group's loans that are not archived
func (r *LoanRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*domain.Loan, error) {
	return r.list(ctx, "group_id = $1", groupID)
}

// ListByMember returns a member's loans that are not archived
func (r *LoanRepository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*domain.Loan, error) {
	return r.list(ctx, "member_id = $1", memberID)
}

// ApplyRepayment decrements the balance in a single statement. The row lock
// taken by the sub-select serializes concurrent repayments on the same loan,
// and the second one sees the first one's balance.
func (r *LoanRepository) ApplyRepayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*domain.Loan, decimal.Decimal, error) {
	var previous decimal.Decimal
	l, err := scanLoan(r.db(ctx).QueryRow(ctx, `
		UPDATE loans l
		SET outstanding_balance = GREATEST(prev.balance - $2, 0),
			status = CASE WHEN prev.balance - $2 <= 0 THEN 'paid' ELSE 'active' END,
			updated_at = NOW()
		FROM (
			SELECT id, outstanding_balance AS balance
			FROM loans
			WHERE id = $1 AND deleted_at IS NULL
			FOR UPDATE
		) prev
		WHERE l.id = prev.id
		RETURNING l.id, l.member_id, l.group_id, l.principal_amount, l.outstanding_balance, l.monthly_repayment,
			l.status, l.issued_date, l.issued_by, l.notes, l.created_at, l.updated_at, l.deleted_at, prev.balance`,
		id, amount), &previous)
	if err != nil {
		return nil, decimal.Zero, translate(err, domain.ErrLoanNotFound)
	}
	return l, previous, nil
}

// SoftDelete archives a loan. Repayment rows are untouched.
func (r *LoanRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE loans SET deleted_at = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return translate(err, nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}
