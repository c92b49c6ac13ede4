package server

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"

	"namecollector/internal/config"
	"namecollector/internal/logger"
	"namecollector/internal/ratelimit"
	"namecollector/internal/submissions"
)

const (
	msgTooManySubmissions = "Too many submissions. Please wait a moment."
	msgServerBusy         = "Server busy, try again later."
	adminPage             = "admin.html"
)

// Deps are the components the router wires together.
type Deps struct {
	Submissions   *submissions.Handler
	Limiter       *ratelimit.Store
	Stats         ratelimit.StatsStore
	RequestLogger *httplog.Logger
}

var securityHeaders = map[string]string{
	"Content-Security-Policy": "default-src 'self'; base-uri 'self'; form-action 'self'; " +
		"frame-ancestors 'self'; img-src 'self' data:; object-src 'none'; " +
		"script-src 'self'; script-src-attr 'none'; style-src 'self' 'unsafe-inline'",
	"Cross-Origin-Opener-Policy":   "same-origin",
	"Cross-Origin-Resource-Policy": "same-origin",
	"Referrer-Policy":              "no-referrer",
	"X-Content-Type-Options":       "nosniff",
	"X-DNS-Prefetch-Control":       "off",
	"X-Frame-Options":              "SAMEORIGIN",
}

func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if deps.RequestLogger != nil {
		r.Use(httplog.RequestLogger(deps.RequestLogger))
	}
	r.Use(middleware.Recoverer)
	for k, v := range securityHeaders {
		r.Use(middleware.SetHeader(k, v))
	}
	r.Use(ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.Concurrency.Max,
		AcquireTimeout: cfg.Concurrency.AcquireTimeout,
		OnReject: func(w http.ResponseWriter, r *http.Request) {
			submissions.WriteError(w, r, http.StatusServiceUnavailable, msgServerBusy)
		},
	}))

	adminOnly := middleware.BasicAuth(cfg.Admin.Realm, map[string]string{
		cfg.Admin.User: cfg.Admin.Password,
	})

	r.Get("/health", health)

	r.Route("/api", func(api chi.Router) {
		if len(cfg.CORS.AllowedOrigins) > 0 {
			api.Use(cors.Handler(cors.Options{
				AllowedOrigins: cfg.CORS.AllowedOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
				MaxAge:         300,
			}))
		}

		api.With(submitLimiter(cfg, deps)).Post("/submit", deps.Submissions.Submit)

		api.Group(func(admin chi.Router) {
			admin.Use(adminOnly)
			admin.Get("/names", deps.Submissions.List)
			admin.Get("/stats", statsHandler(deps.Stats))
		})
	})

	admin := serveAdminPage(cfg.StaticDir)
	r.With(adminOnly).Get("/admin", admin)
	r.With(adminOnly).Get("/"+adminPage, admin)

	r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))

	return r
}

func submitLimiter(cfg *config.Config, deps Deps) func(http.Handler) http.Handler {
	opts := ratelimit.Options{
		Stats:               deps.Stats,
		TrustXForwardedFor:  cfg.RateLimit.TrustXFF,
		AddRateLimitHeaders: cfg.RateLimit.Headers,
		OnReject: func(w http.ResponseWriter, r *http.Request, _ ratelimit.Decision) {
			submissions.WriteError(w, r, http.StatusTooManyRequests, msgTooManySubmissions)
		},
	}
	if deps.Limiter != nil {
		opts.Store = deps.Limiter
		opts.RetryAfter = deps.Limiter.Window()
	}
	return ratelimit.Middleware(opts)
}

func health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]bool{"ok": true})
}

func serveAdminPage(staticDir string) http.HandlerFunc {
	page := filepath.Join(staticDir, adminPage)
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, page)
	}
}

type statsData struct {
	Total  ratelimit.Counters            `json:"total"`
	Routes map[string]ratelimit.Counters `json:"routes"`
}

type statsResponse struct {
	OK   bool      `json:"ok"`
	Data statsData `json:"data"`
}

func statsHandler(stats ratelimit.StatsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := statsData{Routes: map[string]ratelimit.Counters{}}
		if stats != nil {
			var err error
			if data.Total, err = stats.Totals(r.Context()); err == nil {
				data.Routes, err = stats.Routes(r.Context())
			}
			if err != nil {
				logger.FromContext(r.Context()).Error("failed to read rate limit stats", "err", err)
				submissions.WriteError(w, r, http.StatusInternalServerError, submissions.MsgInternalError)
				return
			}
		}
		render.JSON(w, r, statsResponse{OK: true, Data: data})
	}
}
