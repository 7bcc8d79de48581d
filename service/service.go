package service

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/saythanks/mobile-harness/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = "8080"

	MetricsHost = "0.0.0.0"
	MetricsPort = "7300"

	shutdownTimeout = 5 * time.Second
)

type Config struct {
	Log          log.Logger
	ServeHealthz bool // Serve /healthz and /status on HealthzAddr
	HealthzAddr  string
	ServeMetrics bool // Serve /metrics on MetricsAddr
	MetricsAddr  string
}

// Service runs the enabled HTTP servers alongside a run. Disabled servers
// are nil.
type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	log log.Logger
}

func New(cfg Config, state StateProvider) *Service {
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	if cfg.HealthzAddr == "" {
		cfg.HealthzAddr = net.JoinHostPort(HealthzHost, HealthzPort)
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = net.JoinHostPort(MetricsHost, MetricsPort)
	}

	s := &Service{log: cfg.Log}
	if cfg.ServeHealthz {
		s.Healthz = NewHealthzServer(cfg.Log, state, cfg.HealthzAddr)
	}
	if cfg.ServeMetrics {
		s.Metrics = NewMetricsServer(cfg.MetricsAddr)
	}
	return s
}

// Start launches the enabled servers in the background.
func (s *Service) Start() {
	s.log.Info("service starting")

	if s.Healthz != nil {
		s.log.Info("starting healthz server", "addr", s.Healthz.server.Addr)
		go s.serve("healthz_server", s.Healthz.Start)
	}
	if s.Metrics != nil {
		s.log.Info("starting metrics server", "addr", s.Metrics.server.Addr)
		go s.serve("metrics_server", s.Metrics.Start)
	}

	s.log.Info("service started")
}

func (s *Service) serve(name string, start func() error) {
	if err := start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("error starting server", "server", name, "err", err)
		metrics.RecordErrorDetails(name, err)
	}
}

func (s *Service) Shutdown() {
	s.log.Info("service shutting down")

	if s.Healthz != nil {
		_ = s.Healthz.Shutdown()
		s.log.Info("healthz stopped")
	}
	if s.Metrics != nil {
		_ = s.Metrics.Shutdown()
		s.log.Info("metrics stopped")
	}

	s.log.Info("service stopped")
}
