package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"teamfee/internal/cache"
	"teamfee/internal/log"
	"teamfee/internal/metrics"
	"teamfee/internal/middleware/ratelimit"
	"teamfee/internal/middleware/security"
	"teamfee/internal/middleware/trace"
	"teamfee/internal/services"
	appweb "teamfee/web"
)

const (
	summaryCacheSize = 16
	summaryCacheTTL  = 10 * time.Minute
	cacheCleanup     = 5 * time.Minute
)

// ServerConfig carries the dependencies of the HTTP server.
type ServerConfig struct {
	Addr               string
	Service            *services.TeamService
	Logger             *log.Logger
	Metrics            *metrics.Manager
	RateLimitPerMinute int
	// Ready reports whether the backing store is reachable. Nil means
	// always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	svc       *services.TeamService
	logger    *log.Logger
	templates *template.Template
	ready     func(ctx context.Context) error
	started   time.Time

	// Summaries keyed by repository revision; a mutation makes the old
	// entry unreachable.
	summaryCache *cache.LRUCache[uint64, summaryView]
	caches       *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server:       http.Server{Addr: cfg.Addr},
		svc:          cfg.Service,
		logger:       logger,
		ready:        cfg.Ready,
		started:      time.Now(),
		summaryCache: cache.NewLRUCache[uint64, summaryView](summaryCacheSize, summaryCacheTTL),
		caches:       cache.NewManager(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
		}),
		detector: security.NewDetector(),
	}
	s.caches.Register(s.summaryCache)
	s.caches.StartCleanup(cacheCleanup)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", cfg.Metrics.Handler())

	mux.HandleFunc("GET /api/teams", s.handleListTeams)
	mux.HandleFunc("POST /api/teams", s.handleCreateTeam)
	mux.HandleFunc("GET /api/teams/{id}", s.handleGetTeam)
	mux.HandleFunc("PUT /api/teams/{id}", s.handleUpdateTeam)
	mux.HandleFunc("DELETE /api/teams/{id}", s.handleDeleteTeam)

	mux.HandleFunc("GET /api/people", s.handleListPeople)
	mux.HandleFunc("POST /api/people", s.handleCreatePerson)
	mux.HandleFunc("GET /api/people/{id}", s.handleGetPerson)
	mux.HandleFunc("PUT /api/people/{id}", s.handleUpdatePerson)
	mux.HandleFunc("DELETE /api/people/{id}", s.handleDeletePerson)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)

	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)

	routeOf := func(r *http.Request) string {
		if _, pattern := mux.Handler(r); pattern != "" {
			return pattern
		}
		return "unmatched"
	}

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ClientIP, ratelimit.MutatingOnly, s.rateLimited)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(logger, cfg.Metrics, s.detector.ClientIP, routeOf).Middleware(handler)
	s.Handler = handler

	return s
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
