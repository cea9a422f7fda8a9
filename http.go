package f1bot

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// StatusServer exposes health and Prometheus metrics over HTTP.
type StatusServer struct {
	server *http.Server
	port   int
	ready  func() bool
}

func NewStatusServer(port int, ready func() bool) *StatusServer {
	return &StatusServer{
		port:  port,
		ready: ready,
	}
}

func (s *StatusServer) Listen() error {
	logrus.Infof("Status server listening on port: %d", s.port)

	s.server = &http.Server{
		Handler: s.Router(),
		Addr:    fmt.Sprintf(":%d", s.port),
	}

	go func() {
		err := s.server.ListenAndServe()

		if err == http.ErrServerClosed {
			return
		} else if err != nil {
			logrus.WithError(err).Errorf("Could not start status server")
		}
	}()

	return nil
}

func (s *StatusServer) Router() http.Handler {
	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", s.Health)
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		logrus.Debugf("Could not find HTTP response for URL: %s", r.URL.String())

		http.NotFound(w, r)
	})

	return router
}

func (s *StatusServer) Health(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil && !s.ready() {
		http.Error(w, "not connected", http.StatusServiceUnavailable)
		return
	}

	fmt.Fprintln(w, "ok")
}

func (s *StatusServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}
