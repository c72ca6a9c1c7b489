package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemberRole distinguishes group administrators from contributors
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

// Group is a savings circle. The registry is maintained outside the engine.
type Group struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
}

// Member is a contributor profile. ExpectedAmount overrides the period's
// per-member amount when set.
type Member struct {
	ID             uuid.UUID        `json:"id"`
	GroupID        uuid.UUID        `json:"groupId"`
	AuthSubject    string           `json:"-"`
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	Role           MemberRole       `json:"role"`
	Active         bool             `json:"active"`
	ExpectedAmount *decimal.Decimal `json:"expectedAmount,omitempty"`
	JoinedAt       time.Time        `json:"joinedAt"`
}

// IsAdmin reports whether the member may call accounting operations
func (m *Member) IsAdmin() bool {
	return m.Role == MemberRoleAdmin
}

// ExpectedFor returns what this member owes in a period with the given default
func (m *Member) ExpectedFor(perMember decimal.Decimal) decimal.Decimal {
	if m.ExpectedAmount != nil {
		return *m.ExpectedAmount
	}
	return perMember
}

// Actor identifies the admin performing an operation. It is passed explicitly
// into every engine call and recorded on the rows it writes.
type Actor struct {
	MemberID    uuid.UUID
	AuthSubject string
}

type GroupRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Group, error)
}

type MemberRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Member, error)
	GetByAuthSubject(ctx context.Context, subject string) (*Member, error)
	ListActiveByGroup(ctx context.Context, groupID uuid.UUID) ([]*Member, error)
}
