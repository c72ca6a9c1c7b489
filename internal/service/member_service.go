package service

import (
	"context"
	"errors"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/dafibh/kitty/kitty-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MemberService resolves authenticated identities to group members
type MemberService struct {
	memberRepo domain.MemberRepository
}

// NewMemberService creates a new MemberService
func NewMemberService(memberRepo domain.MemberRepository) *MemberService {
	return &MemberService{memberRepo: memberRepo}
}

// GetByAuthSubject returns the member linked to an identity provider subject
func (s *MemberService) GetByAuthSubject(ctx context.Context, subject string) (*domain.Member, error) {
	if subject == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.memberRepo.GetByAuthSubject(ctx, subject)
}

// LookupSubscriber implements websocket.MemberLookup
func (s *MemberService) LookupSubscriber(ctx context.Context, subject string) (websocket.Subscriber, error) {
	member, err := s.GetByAuthSubject(ctx, subject)
	if err != nil {
		return websocket.Subscriber{}, err
	}
	return websocket.Subscriber{
		MemberID: member.ID,
		GroupID:  member.GroupID,
		Admin:    member.IsAdmin(),
		Active:   member.Active,
	}, nil
}

// memberInGroup loads a member and checks it belongs to the group
func memberInGroup(ctx context.Context, memberRepo domain.MemberRepository, memberID, groupID uuid.UUID) (*domain.Member, error) {
	if memberID == uuid.Nil {
		return nil, domain.ErrMemberRequired
	}
	member, err := memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	if member.GroupID != groupID {
		return nil, domain.ErrMemberNotInGroup
	}
	return member, nil
}

// eventAudience lists the members who receive a group's accounting events:
// every active admin plus the given members, without duplicates. When the
// admins cannot be listed only the given members are returned.
func eventAudience(ctx context.Context, memberRepo domain.MemberRepository, groupID uuid.UUID, members ...uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var audience []uuid.UUID
	add := func(id uuid.UUID) {
		if id == uuid.Nil || seen[id] {
			return
		}
		seen[id] = true
		audience = append(audience, id)
	}

	active, err := memberRepo.ListActiveByGroup(ctx, groupID)
	if err != nil {
		log.Warn().Err(err).Str("group_id", groupID.String()).Msg("Failed to list event audience")
	}
	for _, m := range active {
		if m.IsAdmin() {
			add(m.ID)
		}
	}
	for _, id := range members {
		add(id)
	}
	return audience
}
