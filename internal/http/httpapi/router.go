package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"colorold/internal/http/handlers"
	"colorold/internal/middleware"
)

// Options configures the middleware stack in front of the handlers.
type Options struct {
	Logger          zerolog.Logger
	DefaultLocale   string
	CORSOrigins     []string
	CountryLookup   middleware.CountryLookup
	JWTSecret       []byte
	RateLimitPerMin int
	// StaticDir, when set, is served under /static/ so locally stored
	// uploads are reachable by the inference provider.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)

	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.RateLimit(opts.RateLimitPerMin, time.Minute),
			middleware.Identity(opts.JWTSecret),
		)
		r.Get("/v1/usage", app.Usage)
		r.Post("/v1/uploads", app.Upload)
		for _, op := range []string{"restore", "colorize"} {
			r.Route("/v1/"+op, func(r chi.Router) {
				r.Post("/", app.SubmitJob(op))
				r.Get("/{id}", app.JobStatus)
			})
		}
	})

	return r
}
