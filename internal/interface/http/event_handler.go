package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/cloudgames-users/internal/application"
	"github.com/oksasatya/cloudgames-users/internal/interface/middleware"
	"github.com/oksasatya/cloudgames-users/pkg/response"
)

type EventHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewEventHandler(svc *application.Service, logger *logrus.Logger) *EventHandler {
	return &EventHandler{Svc: svc, Logger: logger}
}

// ListBySubject returns the audit records of one user in append order.
func (h *EventHandler) ListBySubject(c *gin.Context) {
	recs, err := h.Svc.Events(c.Request.Context(), middleware.ActorFrom(c), c.Param("subjectId"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, recs, "events", map[string]any{"count": len(recs)})
}
