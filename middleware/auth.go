package middleware

import (
	"errors"
	"net/http"
	"strings"

	"cyber_case_app_go/db"
	"cyber_case_app_go/models"
	"cyber_case_app_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const (
	// ContextKeyUser is the context key for the authenticated user
	ContextKeyUser = "user"
	// ContextKeyActor is the context key for the user's resolved scope and audit identity
	ContextKeyActor = "actor"
	// ContextKeyClaims is the context key for the verified token claims
	ContextKeyClaims = "claims"
)

func unauthorized(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return echo.NewHTTPError(http.StatusUnauthorized, services.ErrInvalidToken.Error())
}

// bearerToken extracts the token from "Authorization: Bearer <token>"
func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth is middleware that requires a valid bearer token for an
// active user. The user's scope is resolved once here and shared with every
// handler through the actor.
func RequireAuth(issuer *services.TokenIssuer, policy services.ScopePolicy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				return unauthorized(c)
			}

			claims, err := issuer.Parse(token)
			if err != nil {
				return unauthorized(c)
			}

			var user models.User
			if err := db.DB.Where("username = ?", claims.Subject).First(&user).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return unauthorized(c)
				}
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load user")
			}

			if !user.IsActive {
				return echo.NewHTTPError(http.StatusBadRequest, services.ErrInactiveUser.Error())
			}

			actor := services.NewActor(&user, policy)
			actor.Audit.IPAddress = c.RealIP()
			actor.Audit.UserAgent = c.Request().UserAgent()

			c.Set(ContextKeyUser, &user)
			c.Set(ContextKeyActor, actor)
			c.Set(ContextKeyClaims, claims)

			return next(c)
		}
	}
}

// RequireRole is middleware that requires one of the given roles
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := services.RequireRole(GetCurrentUser(c), roles...)
			services.RecordAuthorizationDecision("role", err == nil)
			if err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
			}
			return next(c)
		}
	}
}

// RequireRank is middleware that requires min or a higher rank
func RequireRank(min models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := services.RequireRank(GetCurrentUser(c), min)
			services.RecordAuthorizationDecision("rank", err == nil)
			if err != nil {
				return echo.NewHTTPError(http.StatusForbidden, err.Error())
			}
			return next(c)
		}
	}
}

// GetCurrentUser retrieves the current user from context
func GetCurrentUser(c echo.Context) *models.User {
	user, ok := c.Get(ContextKeyUser).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetActor retrieves the current actor from context
func GetActor(c echo.Context) *services.Actor {
	actor, ok := c.Get(ContextKeyActor).(*services.Actor)
	if !ok {
		return nil
	}
	return actor
}
