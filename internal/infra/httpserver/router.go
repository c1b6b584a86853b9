package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	appadmin "github.com/bryanwahyu/endoscan/internal/application/admin"
	appanalyses "github.com/bryanwahyu/endoscan/internal/application/analyses"
	appfeedback "github.com/bryanwahyu/endoscan/internal/application/feedback"
	appreports "github.com/bryanwahyu/endoscan/internal/application/reports"
	"github.com/bryanwahyu/endoscan/internal/domain/auth"
	"github.com/bryanwahyu/endoscan/internal/middleware"
)

const (
	rateLimitRetryAfter = 60 * time.Second
	maxJSONBody         = 1 << 20
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Analyses *appanalyses.Service
	Reports  *appreports.Service
	Feedback *appfeedback.Service
	Admin    *appadmin.Service
	Auth     auth.Authenticator
}

// Options configure the ambient parts of the router.
type Options struct {
	Logger      *slog.Logger
	Metrics     *middleware.Metrics
	Limiter     *middleware.RateLimiter
	Health      map[string]middleware.HealthChecker
	CORSOrigins []string
	// FilesDir is served under /files/ when the local blob store is used.
	FilesDir string
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
	// Production hides internal error details.
	Production bool
}

type Router struct {
	analyses *appanalyses.Service
	reports  *appreports.Service
	feedback *appfeedback.Service
	admin    *appadmin.Service
	authn    auth.Authenticator

	logger        *slog.Logger
	upgrader      websocket.Upgrader
	secureCookies bool
	production    bool
}

func NewRouter(svc Services, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = middleware.NewMetrics()
	}
	r := &Router{
		analyses:      svc.Analyses,
		reports:       svc.Reports,
		feedback:      svc.Feedback,
		admin:         svc.Admin,
		authn:         svc.Auth,
		logger:        opts.Logger,
		upgrader:      newUpgrader(opts.CORSOrigins),
		secureCookies: opts.SecureCookies,
		production:    opts.Production,
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(opts.Logger))
	mux.Use(opts.Metrics.Middleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	mux.Get("/health", middleware.HealthHandler(opts.Health))
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/health/ready", middleware.HealthHandler(opts.Health))
	mux.Get("/metrics", opts.Metrics.Handler)

	if opts.FilesDir != "" {
		mux.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(opts.FilesDir))))
	}

	requireSession := middleware.RequireSession(svc.Auth, opts.Logger)

	mux.Route("/auth", func(rt chi.Router) {
		rt.Post("/sign-up", r.wrap(r.handleSignUp))
		rt.Post("/sign-in", r.wrap(r.handleSignIn))
		rt.Post("/sign-out", r.wrap(r.handleSignOut))
		rt.With(requireSession).Get("/me", r.wrap(r.handleMe))
	})

	mux.Route("/v1", func(rt chi.Router) {
		limit := func(next http.Handler) http.Handler { return next }
		if opts.Limiter != nil {
			limit = middleware.RateLimit(opts.Limiter, rateLimitRetryAfter)
		}

		// anonymous senders may open support tickets
		rt.With(limit).Post("/feedback", r.wrap(r.handleSubmitFeedback))

		rt.Group(func(g chi.Router) {
			g.Use(requireSession)
			g.Use(limit)

			g.Post("/analyses", r.wrap(r.handleUpload))
			g.Get("/analyses", r.wrap(r.handleResults))
			g.Get("/analyses/{id}", r.wrap(r.handleGetAnalysis))
			g.Post("/analyses/{id}/processing", r.wrap(r.handleStartProcessing))
			g.Delete("/analyses/{id}/processing", r.wrap(r.handleCancelProcessing))
			g.Get("/analyses/{id}/progress/ws", r.wrap(r.handleProgressWS))

			g.Get("/dashboard", r.wrap(r.handleDashboard))
			g.Get("/reports/latest", r.wrap(r.handleLatestReport))
			g.Get("/reports/{id}", r.wrap(r.handleReport))
			g.Get("/simulation", r.wrap(r.handleSimulation))

			g.Get("/feedback", r.wrap(r.handleListFeedback))
			g.Patch("/feedback/{id}", r.wrap(r.handleReviewFeedback))

			g.Get("/admin/metrics", r.wrap(r.handleAdminOverview))
			g.Get("/admin/metrics/history", r.wrap(r.handleAdminHistory))
			g.Post("/admin/metrics/snapshot", r.wrap(r.handleAdminSnapshot))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			apiErr := toAPIError(err, !r.production)
			if apiErr.Status >= http.StatusInternalServerError {
				r.logger.ErrorContext(req.Context(), "request failed",
					slog.String("request_id", chimw.GetReqID(req.Context())),
					slog.String("path", req.URL.Path),
					slog.Any("err", err))
			}
			_ = writeJSON(w, apiErr.Status, apiErr)
		}
	}
}

// writeJSON always returns nil: once the header is out there is nothing
// left to report to the client.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
	return nil
}

func decodeJSON(w http.ResponseWriter, req *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	return nil
}

// currentUser is only called behind RequireSession.
func currentUser(req *http.Request) *auth.User {
	u, _ := middleware.UserFromContext(req.Context())
	return u
}
