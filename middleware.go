package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
)

// IdentityContextKey is the Locals key the middleware stores the
// resolved identity under.
const IdentityContextKey = "auth_identity"

// RequireToken guards a route with the opaque token scheme. It accepts
// both "Token <key>" and "Bearer <key>" authorization headers and
// stores the resolved identity in Locals for downstream handlers.
func RequireToken(auther Authenticator, opts ...RequireTokenOption) router.MiddlewareFunc {
	cfg := &requireTokenConfig{
		logger: defLogger{},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			key := tokenFromHeader(ctx.Header("Authorization"))
			if key == "" {
				return unauthorized(ctx)
			}

			identity, err := auther.IdentityFromToken(ctx.Context(), key)
			if err != nil {
				cfg.logger.Debug("token resolution failed: %v", err)
				return unauthorized(ctx)
			}

			if cfg.role != "" && identity.Role() != string(cfg.role) {
				return ctx.JSON(fiber.StatusForbidden, router.ViewContext{
					"error": ErrRoleMismatch.Message,
				})
			}

			ctx.Locals(IdentityContextKey, identity)
			return next(ctx)
		}
	}
}

type requireTokenConfig struct {
	logger Logger
	role   UserRole
}

type RequireTokenOption func(*requireTokenConfig)

func WithRequireTokenLogger(logger Logger) RequireTokenOption {
	return func(cfg *requireTokenConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithRequiredRole restricts the route to one role on top of token
// possession.
func WithRequiredRole(role UserRole) RequireTokenOption {
	return func(cfg *requireTokenConfig) {
		cfg.role = role
	}
}

// IdentityFromRouterContext retrieves the identity stored by
// RequireToken.
func IdentityFromRouterContext(ctx router.Context) (Identity, bool) {
	identity, ok := ctx.Locals(IdentityContextKey).(Identity)
	return identity, ok
}

func tokenFromHeader(header string) string {
	if header == "" {
		return ""
	}

	for _, scheme := range []string{"Token ", "Bearer "} {
		if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
			return strings.TrimSpace(header[len(scheme):])
		}
	}

	return ""
}

func unauthorized(ctx router.Context) error {
	return ctx.JSON(fiber.StatusUnauthorized, router.ViewContext{
		"error": ErrInvalidToken.Message,
	})
}
