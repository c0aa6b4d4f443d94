package service

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer exposes the Prometheus metrics of the current run.
type MetricsServer struct {
	ctx    context.Context
	server *http.Server
}

func (m *MetricsServer) setup(ctx context.Context, addr string) {
	hdlr := http.NewServeMux()
	hdlr.Handle(MetricsPath, promhttp.Handler())
	m.server = &http.Server{
		Handler: hdlr,
		Addr:    addr,
	}
	m.ctx = ctx
}

func (m *MetricsServer) Serve() error {
	return m.server.ListenAndServe()
}

func (m *MetricsServer) Shutdown() error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(m.ctx)
}
