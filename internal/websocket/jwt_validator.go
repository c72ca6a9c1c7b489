package websocket

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

// ErrInvalidToken is returned when JWT validation fails
var ErrInvalidToken = errors.New("invalid token")

// ErrMemberNotFound is returned when the token subject is not a known member
var ErrMemberNotFound = errors.New("member not found")

// MemberLookup resolves an identity-provider subject to the member a
// connection will subscribe as
type MemberLookup interface {
	LookupSubscriber(ctx context.Context, subject string) (Subscriber, error)
}

// CustomClaims contains the custom claims from Auth0 JWT
type CustomClaims struct{}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// Auth0JWTValidator validates Auth0 JWT tokens for WebSocket connections.
// Browsers cannot set headers on the upgrade request so the token arrives as
// a query parameter.
type Auth0JWTValidator struct {
	validator    *validator.Validator
	memberLookup MemberLookup
}

// NewAuth0JWTValidator creates a new Auth0JWTValidator
func NewAuth0JWTValidator(domain, audience string, memberLookup MemberLookup) (*Auth0JWTValidator, error) {
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

	return &Auth0JWTValidator{
		validator:    jwtValidator,
		memberLookup: memberLookup,
	}, nil
}

// ValidateToken validates a JWT token and returns the member it belongs to
func (v *Auth0JWTValidator) ValidateToken(ctx context.Context, token string) (Subscriber, error) {
	claims, err := v.validator.ValidateToken(ctx, token)
	if err != nil {
		return Subscriber{}, ErrInvalidToken
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return Subscriber{}, ErrInvalidToken
	}

	sub, err := v.memberLookup.LookupSubscriber(ctx, validatedClaims.RegisteredClaims.Subject)
	if err != nil {
		return Subscriber{}, ErrMemberNotFound
	}
	return sub, nil
}
