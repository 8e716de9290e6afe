package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/cloudgames-users/internal/interface/http"
)

// EventModule exposes the audit log: GET /api/events/:subjectId
type EventModule struct {
	Handler *handlers.EventHandler
	Auth    AuthConfig
}

func NewEventModule(h *handlers.EventHandler, auth AuthConfig) *EventModule {
	return &EventModule{Handler: h, Auth: auth}
}

func (m *EventModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(m.Auth.Required(), m.Auth.UserLimiter())
	{
		auth.GET("/events/:subjectId", m.Handler.ListBySubject)
	}
}
