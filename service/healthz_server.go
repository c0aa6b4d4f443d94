package service

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
)

// HealthzServer answers liveness probes while a run is in progress.
// The response body is the current phase of the run.
type HealthzServer struct {
	ctx    context.Context
	server *http.Server
	phase  func() string
}

// setup builds the server. It must run before Serve and Shutdown.
func (h *HealthzServer) setup(ctx context.Context, addr string) {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc(HealthzPath, h.Handle)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	h.server = &http.Server{
		Handler: c.Handler(hdlr),
		Addr:    addr,
	}
	h.ctx = ctx
}

// Serve listens until Shutdown. It returns http.ErrServerClosed if Shutdown came first.
func (h *HealthzServer) Serve() error {
	return h.server.ListenAndServe()
}

func (h *HealthzServer) Shutdown() error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(h.ctx)
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	log.Debug("Received health check request", "path", r.URL.Path)
	phase := "OK"
	if h.phase != nil {
		phase = h.phase()
	}
	w.Write([]byte(phase)) //nolint:errcheck
}
