package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/attack-monitor/iam-service/internal/infra/config"
)

// Provider represents a telemetry provider handle.
type Provider struct {
	loginAttempts *prometheus.CounterVec
	tokensIssued  prometheus.Counter
}

// Attach registers service-level collectors and returns a provider handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	namespace := cfg.Telemetry.Namespace
	if namespace == "" {
		namespace = "iam"
	}

	loginAttempts := promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts partitioned by outcome.",
	}, []string{"outcome"})

	tokensIssued := promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_tokens_issued_total",
		Help:      "Total number of session tokens issued.",
	})

	return &Provider{
		loginAttempts: loginAttempts,
		tokensIssued:  tokensIssued,
	}, nil
}

// ObserveLogin records a login attempt with the given outcome label.
func (p *Provider) ObserveLogin(outcome string) {
	if p == nil || p.loginAttempts == nil {
		return
	}
	p.loginAttempts.WithLabelValues(outcome).Inc()
}

// ObserveTokenIssued increments the issued-token counter.
func (p *Provider) ObserveTokenIssued() {
	if p == nil || p.tokensIssued == nil {
		return
	}
	p.tokensIssued.Inc()
}
