package container

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/cloudgames-users/config"
	"github.com/oksasatya/cloudgames-users/internal/application"
	"github.com/oksasatya/cloudgames-users/internal/interface/middleware"
	"github.com/oksasatya/cloudgames-users/pkg/helpers"
	"github.com/oksasatya/cloudgames-users/pkg/metrics"
)

// Container holds the components built once in main and shared by the router modules.
type Container struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Service *application.Service
	JWT     *helpers.JWTManager
	Metrics *metrics.Collectors
	// Gatherer backs the metrics endpoint; nil hides it.
	Gatherer prometheus.Gatherer
	// RateCounter is nil when Redis is unavailable, which disables rate limiting.
	RateCounter middleware.Counter
}
