package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"propflow/api/internal/apperr"
	"propflow/api/internal/authz"
	"propflow/api/internal/models"
	"propflow/api/internal/services"
)

const (
	// ContextKeyPrincipal holds the verified *services.Principal in Gin context.
	ContextKeyPrincipal = "principal"
)

// CallerResolver turns an access token into a principal.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, accessToken string) (*services.Principal, error)
}

func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthMiddleware requires a valid token for an active account.
func AuthMiddleware(resolver CallerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortWithError(c, apperr.ErrUnauthenticated)
			return
		}
		p, err := resolver.ResolveCaller(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !p.Caller.IsActive {
			abortWithError(c, apperr.ErrDeactivated)
			return
		}
		c.Set(ContextKeyPrincipal, p)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches a principal when a usable token is
// presented. Missing, invalid or deactivated callers continue anonymously.
func OptionalAuthMiddleware(resolver CallerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		p, err := resolver.ResolveCaller(c.Request.Context(), token)
		switch {
		case err != nil:
			slog.DebugContext(c.Request.Context(), "Ignoring unusable token on public route", "error", err)
		case !p.Caller.IsActive:
			slog.DebugContext(c.Request.Context(), "Ignoring deactivated caller on public route", "user_id", p.Caller.ID)
		default:
			c.Set(ContextKeyPrincipal, p)
		}
		c.Next()
	}
}

// RoleMiddleware restricts a route to the given roles. Assumes
// AuthMiddleware runs first.
func RoleMiddleware(roles ...models.Role) gin.HandlerFunc {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	message := "Forbidden: requires role " + strings.Join(names, " or ")

	return func(c *gin.Context) {
		caller := CallerFrom(c)
		if caller == nil {
			abortWithError(c, apperr.ErrUnauthenticated)
			return
		}
		if !slices.Contains(roles, caller.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": message})
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the principal set by the auth middleware, or nil.
func PrincipalFrom(c *gin.Context) *services.Principal {
	v, ok := c.Get(ContextKeyPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*services.Principal)
	return p
}

// CallerFrom returns the request's caller; nil means anonymous.
func CallerFrom(c *gin.Context) *authz.Caller {
	if p := PrincipalFrom(c); p != nil {
		return p.Caller
	}
	return nil
}

func abortWithError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Upstream {
		slog.ErrorContext(c.Request.Context(), "Request failed in middleware", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), gin.H{"error": apperr.MessageOf(err, "Internal server error")})
}
