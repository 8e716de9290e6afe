package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/cloudgames-users/internal/application"
	"github.com/oksasatya/cloudgames-users/internal/domain/entity"
	"github.com/oksasatya/cloudgames-users/pkg/helpers"
	"github.com/oksasatya/cloudgames-users/pkg/metrics"
	"github.com/oksasatya/cloudgames-users/pkg/response"
)

const (
	CtxUserIDKey   = "userID"
	CtxUserRoleKey = "userRole"
)

// TokenValidator is satisfied by *helpers.JWTManager.
type TokenValidator interface {
	ValidateToken(token string) (*helpers.Claims, error)
}

// Auth validates the access token from the Authorization header or the
// access_token cookie and stores the caller's id and role in the Gin context.
func Auth(tokens TokenValidator, logger *logrus.Logger, m *metrics.Collectors) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			c.Abort()
			return
		}
		claims, err := tokens.ValidateToken(token)
		if err != nil {
			reason := helpers.TokenFailureReason(err)
			m.TokenRejected(reason)
			logger.WithFields(logrus.Fields{
				"reason":     reason,
				"request_id": c.GetString("request_id"),
				"path":       c.FullPath(),
			}).Warn("access token rejected")
			response.Error[any](c, http.StatusUnauthorized, "invalid access token", reason)
			c.Abort()
			return
		}
		c.Set(CtxUserIDKey, claims.UserID())
		c.Set(CtxUserRoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole lets only callers with role through. It must run after Auth.
func RequireRole(role entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if entity.Role(c.GetString(CtxUserRoleKey)) != role {
			response.Error[any](c, http.StatusForbidden, "forbidden", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorFrom returns the authenticated caller set by Auth.
func ActorFrom(c *gin.Context) application.Actor {
	return application.Actor{
		ID:   c.GetString(CtxUserIDKey),
		Role: entity.Role(c.GetString(CtxUserRoleKey)),
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	token, err := c.Cookie(helpers.AccessTokenCookie)
	if err != nil {
		return ""
	}
	return token
}
