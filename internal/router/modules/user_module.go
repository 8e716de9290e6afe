package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/cloudgames-users/internal/domain/entity"
	handlers "github.com/oksasatya/cloudgames-users/internal/interface/http"
	"github.com/oksasatya/cloudgames-users/internal/interface/middleware"
)

// UserModule wires user HTTP handlers into routes
// Public: POST /api/users
// Protected: GET /api/users, GET /api/users/:id, PUT /api/users/:id
// Admin: GET /api/users/search
type UserModule struct {
	Handler *handlers.UserHandler
	Auth    AuthConfig
}

func NewUserModule(h *handlers.UserHandler, auth AuthConfig) *UserModule {
	return &UserModule{Handler: h, Auth: auth}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rg.POST("/users", m.Auth.PublicLimiter(), m.Handler.Create)

	auth := rg.Group("/")
	auth.Use(m.Auth.Required(), m.Auth.UserLimiter())
	{
		auth.GET("/users", m.Handler.List)
		auth.GET("/users/search", middleware.RequireRole(entity.RoleAdmin), m.Handler.Search)
		auth.GET("/users/:id", m.Handler.Get)
		auth.PUT("/users/:id", m.Handler.Update)
	}
}
