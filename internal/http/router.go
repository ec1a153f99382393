package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/taxres/internal/http/analysis"
	"github.com/MrJamesThe3rd/taxres/internal/http/calculate"
)

type Options struct {
	AllowedOrigins []string
	Timeout        time.Duration
}

func New(analysisV1 *analysis.Handler, calculateV1 *calculate.Handler, opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/cases", analysisV1.Routes)

		r.Route("/calculate", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			calculateV1.Routes(r)
		})
	})

	return router
}
