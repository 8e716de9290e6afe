// Package metrics holds the Prometheus collectors of the service.
// All methods are safe on a nil *Collectors so components can run without metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Collectors struct {
	FactsAppended *prometheus.CounterVec
	LoginAttempts *prometheus.CounterVec
	TokenFailures *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		FactsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "user_facts_appended_total",
			Help: "Domain facts appended to the audit log.",
		}, []string{"fact_type"}),
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "user_login_attempts_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		TokenFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "access_token_failures_total",
			Help: "Rejected access tokens by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(c.FactsAppended, c.LoginAttempts, c.TokenFailures)
	return c
}

func (c *Collectors) FactAppended(factType string) {
	if c == nil {
		return
	}
	c.FactsAppended.WithLabelValues(factType).Inc()
}

// Login records a login attempt; outcome is "success", "failure" or "unknown_user".
func (c *Collectors) Login(outcome string) {
	if c == nil {
		return
	}
	c.LoginAttempts.WithLabelValues(outcome).Inc()
}

func (c *Collectors) TokenRejected(reason string) {
	if c == nil {
		return
	}
	c.TokenFailures.WithLabelValues(reason).Inc()
}
