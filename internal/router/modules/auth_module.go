package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	handlers "github.com/oksasatya/cloudgames-users/internal/interface/http"
	"github.com/oksasatya/cloudgames-users/internal/interface/middleware"
	"github.com/oksasatya/cloudgames-users/pkg/helpers"
	"github.com/oksasatya/cloudgames-users/pkg/metrics"
)

// AuthConfig carries what modules need to protect and rate limit their routes.
type AuthConfig struct {
	JWT     *helpers.JWTManager
	Logger  *logrus.Logger
	Metrics *metrics.Collectors
	Counter middleware.Counter
	Max     int
	Window  time.Duration
}

// Required returns the bearer token middleware.
func (a AuthConfig) Required() gin.HandlerFunc {
	return middleware.Auth(a.JWT, a.Logger, a.Metrics)
}

// PublicLimiter limits anonymous endpoints per IP and route.
func (a AuthConfig) PublicLimiter() gin.HandlerFunc {
	return middleware.RateLimit(a.Counter, a.Max, a.Window, middleware.KeyByIPAndPath(), nil)
}

// UserLimiter is the softer per-user limit on authenticated routes.
func (a AuthConfig) UserLimiter() gin.HandlerFunc {
	return middleware.RateLimit(a.Counter, a.Max*10, a.Window, middleware.KeyByUserID(), nil)
}

// AuthModule exposes POST /api/auth/login (public) and POST /api/auth/logout.
type AuthModule struct {
	Handler *handlers.AuthHandler
	Auth    AuthConfig
}

func NewAuthModule(h *handlers.AuthHandler, auth AuthConfig) *AuthModule {
	return &AuthModule{Handler: h, Auth: auth}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/login", m.Auth.PublicLimiter(), m.Handler.Login)

	auth := rg.Group("/")
	auth.Use(m.Auth.Required())
	{
		auth.POST("/auth/logout", m.Handler.Logout)
	}
}
