package handler

import (
	"strings"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/dafibh/kitty/kitty-backend/internal/middleware"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// uuidParam parses a path parameter. When ok is false the problem response
// has been written.
func uuidParam(c echo.Context, name string) (id uuid.UUID, ok bool, err error) {
	id, perr := uuid.Parse(c.Param(name))
	if perr != nil {
		return uuid.Nil, false, NewValidationError(c, "Invalid "+name, []ValidationError{
			{Field: name, Message: "Must be a valid UUID"},
		})
	}
	return id, true, nil
}

// optionalUUID parses an optional UUID field already checked by the validator
func optionalUUID(s *string) *uuid.UUID {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil
	}
	return &id
}

// money parses an amount already checked by the money tag
func money(s string) decimal.Decimal {
	return decimal.RequireFromString(strings.TrimSpace(s))
}

// actorFrom returns the authenticated member as an actor. When ok is false
// the problem response has been written.
func actorFrom(c echo.Context) (actor domain.Actor, member *domain.Member, ok bool, err error) {
	member = middleware.GetMember(c)
	if member == nil {
		return domain.Actor{}, nil, false, NewUnauthorizedError(c, "Authentication required")
	}
	return domain.Actor{MemberID: member.ID, AuthSubject: member.AuthSubject}, member, true, nil
}

// sameGroup rejects callers outside the group that owns the resource
func sameGroup(c echo.Context, member *domain.Member, groupID uuid.UUID) (ok bool, err error) {
	if member.GroupID != groupID {
		return false, NewForbiddenError(c, "Not a member of this group")
	}
	return true, nil
}

// confirmed reports whether a destructive request carries ?confirm=true
func confirmed(c echo.Context) bool {
	return strings.EqualFold(c.QueryParam("confirm"), "true")
}
