package router

import (
	"github.com/oksasatya/cloudgames-users/internal/container"
	handlers "github.com/oksasatya/cloudgames-users/internal/interface/http"
	"github.com/oksasatya/cloudgames-users/internal/router/modules"
)

// InitModules builds the handlers from c and registers every module with r.
// Call it once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	auth := modules.AuthConfig{
		JWT:     c.JWT,
		Logger:  c.Logger,
		Metrics: c.Metrics,
		Counter: c.RateCounter,
		Max:     c.Config.RateLimitMax,
		Window:  c.Config.RateLimitWindow,
	}

	r.Add(modules.NewHealthModule(&handlers.HealthHandler{Service: c.Config.AppName}))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(c.Service, c.Logger), auth))
	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(c.Service, c.Logger, c.Config.CookieDomain, c.Config.CookieSecure), auth))
	r.Add(modules.NewEventModule(handlers.NewEventHandler(c.Service, c.Logger), auth))
	if c.Config.MetricsEnabled && c.Gatherer != nil {
		r.Add(modules.NewDebugModule(c.Gatherer, c.RateCounter))
	}
}
