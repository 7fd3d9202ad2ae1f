package exporter

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

type CollectorManager struct {
	addr       string
	collectors []prometheus.Collector
	logger     *log.Entry
}

func NewCollectorManager(addr string, collectors ...prometheus.Collector) *CollectorManager {
	return &CollectorManager{
		addr:       addr,
		collectors: collectors,
		logger:     log.WithFields(log.Fields{"Module": "Exporter", "addr": addr}),
	}
}

type route struct {
	Name    string
	Method  string
	Pattern string
	Handler http.Handler
}

// Handler serves every registered collector on a private registry
func (mc *CollectorManager) Handler() http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	for _, c := range mc.collectors {
		registry.MustRegister(c)
	}

	router := mux.NewRouter().StrictSlash(true)
	for _, r := range mc.buildRoutes(registry) {
		router.Name(r.Name).Methods(r.Method).Path(r.Pattern).Handler(r.Handler)
	}
	return router
}

func (mc *CollectorManager) buildRoutes(registry *prometheus.Registry) []route {
	return []route{
		{
			Name:    "Metrics",
			Method:  http.MethodGet,
			Pattern: "/metrics",
			Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{ErrorLog: mc.logger}),
		},
		{
			Name:    "Healthz",
			Method:  http.MethodGet,
			Pattern: "/healthz",
			Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
			}),
		},
	}
}

// Run serves /metrics until stopCh is closed
func (mc *CollectorManager) Run(stopCh <-chan struct{}) error {
	server := &http.Server{Addr: mc.addr, Handler: mc.Handler()}

	go func() {
		<-stopCh
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			mc.logger.WithError(err).Warn("Failed to shut down metrics server")
		}
	}()

	mc.logger.Info("Serving metrics")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
