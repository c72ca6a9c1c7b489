package postgres

import (
	"context"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// scanner is implemented by pgx.Row and pgx.Rows
type scanner interface {
	Scan(dest ...any) error
}

// GroupRepository implements domain.GroupRepository using PostgreSQL
type GroupRepository struct {
	baseRepository
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{baseRepository{pool: pool}}
}

// GetByID retrieves a group by ID
func (r *GroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	var g domain.Group
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, name, currency, created_at FROM groups WHERE id = $1`, id,
	).Scan(&g.ID, &g.Name, &g.Currency, &g.CreatedAt)
	if err != nil {
		return nil, translate(err, domain.ErrGroupNotFound)
	}
	return &g, nil
}
