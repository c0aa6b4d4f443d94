package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-perfrun/metrics"
)

const (
	HealthzPath = "/healthz"
	MetricsPath = "/metrics"
)

// Config holds the listen addresses of the servers.
type Config struct {
	HealthzHost string
	HealthzPort int
	MetricsHost string
	MetricsPort int
	// Phase reports what the run is currently doing, served on /healthz
	Phase func() string
}

type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	cfg Config
}

func New(cfg Config) *Service {
	s := &Service{
		Healthz: &HealthzServer{phase: cfg.Phase},
		Metrics: &MetricsServer{},
		cfg:     cfg,
	}
	return s
}

func (s *Service) Start(ctx context.Context) {
	log.Info("service starting")

	// Servers are built here so that a Shutdown racing the goroutines below still closes them
	healthzAddr := net.JoinHostPort(s.cfg.HealthzHost, strconv.Itoa(s.cfg.HealthzPort))
	s.Healthz.setup(ctx, healthzAddr)
	metricsAddr := net.JoinHostPort(s.cfg.MetricsHost, strconv.Itoa(s.cfg.MetricsPort))
	s.Metrics.setup(ctx, metricsAddr)

	go func() {
		log.Info("starting healthz server", "addr", healthzAddr)
		if err := s.Healthz.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("error starting healthz server", "err", err)
			metrics.RecordErrorDetails("error starting healthz server", err)
		}
	}()

	go func() {
		log.Info("starting metrics server", "addr", metricsAddr)
		if err := s.Metrics.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("error starting metrics server", "err", err)
			metrics.RecordErrorDetails("error starting metrics server", err)
		}
	}()

	log.Info("service started")
}

func (s *Service) Shutdown() {
	log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	log.Info("healthz stopped")

	_ = s.Metrics.Shutdown()
	log.Info("metrics stopped")

	log.Info("service stopped")
}
