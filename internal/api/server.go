package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"photobatch/internal/logger"
)

// RouterConfig — зависимости HTTP-слоя.
type RouterConfig struct {
	Handler     *BatchHandler
	Logger      logger.Logger
	CORSOrigins []string
	// Gatherer для /metrics; nil — реестр по умолчанию.
	Gatherer prometheus.Gatherer
}

// NewRouter создает главный роутер со всеми маршрутами пакета.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP, LoggerMiddleware(cfg.Logger), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Trace-ID"},
		ExposedHeaders: []string{"Content-Disposition", "X-Trace-ID"},
		MaxAge:         300,
	}))

	h := cfg.Handler
	r.Route("/batch", func(r chi.Router) {
		r.Post("/", h.Upload)
		r.Get("/", h.GetBatch)
		r.Delete("/", h.Reset)
		r.Get("/stats", h.GetStats)
		r.Post("/filter", h.ApplyFilter)
		r.Post("/selection", h.SetAll)
		r.Put("/tasks/{taskID}/selection", h.SetTaskSelection)
		r.Post("/run", h.Run)
		r.Get("/export", h.Export)
	})

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}
