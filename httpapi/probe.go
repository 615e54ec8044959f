package httpapi

import (
	"context"
	"time"

	loginpage "github.com/MamBoota/LoginPage"
)

// DefaultProbeInterval is the delay between health checks
const DefaultProbeInterval = 5 * time.Second

// HealthChecker is satisfied by Client
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Prober feeds a ConnectivityMonitor from periodic health checks
type Prober struct {
	checker  HealthChecker
	monitor  *loginpage.ConnectivityMonitor
	interval time.Duration
	timeout  time.Duration
	logger   loginpage.Logger
}

// ProberOption customizes a Prober
type ProberOption func(*Prober)

// WithProbeInterval sets the delay between checks
func WithProbeInterval(d time.Duration) ProberOption {
	return func(p *Prober) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithProbeTimeout bounds a single check
func WithProbeTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithProberLogger overrides the prober logger
func WithProberLogger(logger loginpage.Logger) ProberOption {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProber returns a prober updating monitor
func NewProber(checker HealthChecker, monitor *loginpage.ConnectivityMonitor, opts ...ProberOption) *Prober {
	p := &Prober{
		checker:  checker,
		monitor:  monitor,
		interval: DefaultProbeInterval,
		timeout:  time.Second,
		logger:   loginpage.DefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// Check runs one health check and records the result
func (p *Prober) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.checker.Health(ctx)
	online := err == nil
	if !online {
		p.logger.Debug("health check failed: %v", err)
	}

	p.monitor.SetOnline(online)
	return online
}

// Run checks immediately and then on every interval until ctx is done
func (p *Prober) Run(ctx context.Context) {
	p.Check(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}
