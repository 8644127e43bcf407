package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const sessionKey = "auth_session"

// Session is the authenticated caller of a request.
type Session struct {
	Actor   domain.Actor
	Profile *domain.Profile
}

// Authenticator resolves a bearer token to the caller's profile.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Profile, error)
}

// AuthMiddleware validates bearer tokens and loads sessions.
type AuthMiddleware struct {
	authenticator Authenticator
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(authenticator Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	profile, err := m.authenticator.Authenticate(c.UserContext(), strings.TrimSpace(parts[1]))
	if err != nil {
		return err
	}

	c.Locals(sessionKey, &Session{
		Actor:   domain.Actor{ID: profile.ID, Role: profile.Role},
		Profile: profile,
	})
	return c.Next()
}

// SessionFromContext retrieves the authenticated session.
func SessionFromContext(c *fiber.Ctx) (*Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	session, ok := val.(*Session)
	return session, ok
}

// ActorFromContext returns the caller or an UNAUTHORIZED error.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, error) {
	session, ok := SessionFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return session.Actor, nil
}
