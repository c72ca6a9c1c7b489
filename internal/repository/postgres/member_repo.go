package postgres

import (
	"context"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const memberColumns = `id, group_id, auth_subject, name, email, role, active, expected_amount, joined_at`

// MemberRepository implements domain.MemberRepository using PostgreSQL
type MemberRepository struct {
	baseRepository
}

// NewMemberRepository creates a new MemberRepository
func NewMemberRepository(pool *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{baseRepository{pool: pool}}
}

func scanMember(row scanner) (*domain.Member, error) {
	var m domain.Member
	var role string
	var expected decimal.NullDecimal
	if err := row.Scan(&m.ID, &m.GroupID, &m.AuthSubject, &m.Name, &m.Email, &role, &m.Active, &expected, &m.JoinedAt); err != nil {
		return nil, err
	}
	m.Role = domain.MemberRole(role)
	if expected.Valid {
		m.ExpectedAmount = &expected.Decimal
	}
	return &m, nil
}

// GetByID retrieves a member by ID
func (r *MemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	m, err := scanMember(r.db(ctx).QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, domain.ErrMemberNotFound)
	}
	return m, nil
}

// GetByAuthSubject retrieves a member by identity provider subject
func (r *MemberRepository) GetByAuthSubject(ctx context.Context, subject string) (*domain.Member, error) {
	m, err := scanMember(r.db(ctx).QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE auth_subject = $1`, subject))
	if err != nil {
		return nil, translate(err, domain.ErrMemberNotFound)
	}
	return m, nil
}

// ListActiveByGroup returns the active members of a group in join order
func (r *MemberRepository) ListActiveByGroup(ctx context.Context, groupID uuid.UUID) ([]*domain.Member, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+memberColumns+` FROM members WHERE group_id = $1 AND active ORDER BY joined_at`, groupID)
	if err != nil {
		return nil, translate(err, nil)
	}
	defer rows.Close()

	members := make([]*domain.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
