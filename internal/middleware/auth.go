package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// CustomClaims contains the custom claims from Auth0 JWT
type CustomClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"
	// AuthSubjectKey is the context key for the identity-provider subject
	AuthSubjectKey contextKey = "auth_subject"
	// MemberKey is the context key for the resolved group member
	MemberKey contextKey = "member"
)

// TokenValidator validates a raw bearer token
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (interface{}, error)
}

// MemberResolver resolves a token subject to a group member
type MemberResolver interface {
	GetByAuthSubject(ctx context.Context, subject string) (*domain.Member, error)
}

// AuthMiddleware provides JWT validation middleware
type AuthMiddleware struct {
	validator TokenValidator
	members   MemberResolver
}

// NewAuthMiddleware creates a new AuthMiddleware with Auth0 configuration
func NewAuthMiddleware(domain, audience string, members MemberResolver) (*AuthMiddleware, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	return NewAuthMiddlewareWithValidator(jwtValidator, members), nil
}

// NewAuthMiddlewareWithValidator builds the middleware around an existing validator
func NewAuthMiddlewareWithValidator(v TokenValidator, members MemberResolver) *AuthMiddleware {
	return &AuthMiddleware{validator: v, members: members}
}

// Authenticate returns an Echo middleware that validates JWT tokens and
// resolves the caller to a member
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorizedError(c, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return unauthorizedError(c, "invalid authorization header format")
			}

			claims, err := m.validator.ValidateToken(c.Request().Context(), parts[1])
			if err != nil {
				log.Debug().Err(err).Msg("Token validation failed")
				return unauthorizedError(c, "invalid token")
			}

			validatedClaims, ok := claims.(*validator.ValidatedClaims)
			if !ok {
				return unauthorizedError(c, "invalid claims")
			}

			subject := validatedClaims.RegisteredClaims.Subject

			ctx := context.WithValue(c.Request().Context(), ClaimsKey, validatedClaims)
			ctx = context.WithValue(ctx, AuthSubjectKey, subject)

			member, err := m.members.GetByAuthSubject(ctx, subject)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnauthorized) {
					log.Debug().Str("auth_subject", subject).Msg("Token subject is not a member")
					return forbiddenError(c, "not a member of any group")
				}
				log.Error().Err(err).Str("auth_subject", subject).Msg("Member lookup failed")
				return c.JSON(http.StatusInternalServerError, problemDetails{
					Type:     errorTypeInternal,
					Title:    "Internal Server Error",
					Status:   http.StatusInternalServerError,
					Detail:   "failed to resolve member",
					Instance: c.Request().URL.Path,
				})
			}
			if !member.Active {
				return forbiddenError(c, "membership is inactive")
			}

			ctx = context.WithValue(ctx, MemberKey, member)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequireAdmin rejects callers whose member role is not admin
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			member := GetMember(c)
			if member == nil {
				return unauthorizedError(c, "authentication required")
			}
			if !member.IsAdmin() {
				return forbiddenError(c, "admin role required")
			}
			return next(c)
		}
	}
}

// GetAuthSubject extracts the identity-provider subject from the context
func GetAuthSubject(c echo.Context) string {
	if id, ok := c.Request().Context().Value(AuthSubjectKey).(string); ok {
		return id
	}
	return ""
}

// GetClaims extracts the validated claims from the context
func GetClaims(c echo.Context) *validator.ValidatedClaims {
	if claims, ok := c.Request().Context().Value(ClaimsKey).(*validator.ValidatedClaims); ok {
		return claims
	}
	return nil
}

// GetMember extracts the resolved member from the context
func GetMember(c echo.Context) *domain.Member {
	if m, ok := c.Request().Context().Value(MemberKey).(*domain.Member); ok {
		return m
	}
	return nil
}

// GetActor builds the acting member for service calls
func GetActor(c echo.Context) (domain.Actor, bool) {
	member := GetMember(c)
	if member == nil {
		return domain.Actor{}, false
	}
	return domain.Actor{MemberID: member.ID, AuthSubject: member.AuthSubject}, true
}
