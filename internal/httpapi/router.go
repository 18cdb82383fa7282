package httpapi

import (
	"context"
	"net/http"
	"time"

	"cafe-orders/internal/logger"
	"cafe-orders/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Registrar mounts a service's routes under /api
type Registrar interface {
	Register(r chi.Router)
}

// Pinger reports storage reachability for /health
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterOptions configures NewRouter
type RouterOptions struct {
	Logger         *logger.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	DB             Pinger
	RequestTimeout time.Duration
	Services       []Registrar
}

// NewRouter builds the service's HTTP handler
func NewRouter(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logging(opts.Logger, opts.Metrics))

	r.Get("/health", healthHandler(opts.DB))
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(opts.Gatherer))
	}

	r.Route("/api", func(api chi.Router) {
		if opts.RequestTimeout > 0 {
			api.Use(Timeout(opts.RequestTimeout))
		}
		for _, s := range opts.Services {
			s.Register(api)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusNotFound, ErrorResponse{
			Message:   "endpoint not found",
			RequestID: logger.RequestIDFrom(r.Context()),
		})
	})

	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		response := map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				response["status"] = "unhealthy"
				WriteJSON(w, http.StatusServiceUnavailable, response)
				return
			}
		}

		WriteJSON(w, http.StatusOK, response)
	}
}
