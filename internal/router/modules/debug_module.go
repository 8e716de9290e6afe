package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oksasatya/cloudgames-users/internal/interface/middleware"
)

type DebugModule struct {
	Gatherer prometheus.Gatherer
	Counter  middleware.Counter
}

func NewDebugModule(g prometheus.Gatherer, counter middleware.Counter) *DebugModule {
	return &DebugModule{Gatherer: g, Counter: counter}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// Prometheus exposition, rate-limited per IP; in-cluster scrapers bypass the limit
	rl := middleware.RateLimit(m.Counter, 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/debug/metrics", rl, gin.WrapH(promhttp.HandlerFor(m.Gatherer, promhttp.HandlerOpts{})))
}
