package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gkobilansky/ab-goat/internal/stats"
	"github.com/gkobilansky/ab-goat/internal/store"
	"github.com/gkobilansky/ab-goat/internal/warehouse"
)

type Server struct {
	store     *store.SQLiteStore
	runner    warehouse.Runner
	arms      stats.Arms
	port      int
	token     string
	tokenFile string
	router    chi.Router
	logger    *slog.Logger
	startTime time.Time
}

// Options configures New. Zero values fall back to defaults.
type Options struct {
	Port      int
	TokenFile string
	Token     string // generated when empty
	Arms      stats.Arms
	Logger    *slog.Logger
}

func New(s *store.SQLiteStore, runner warehouse.Runner, opts Options) *Server {
	if opts.Port == 0 {
		opts.Port = 8080
	}
	if opts.Token == "" {
		opts.Token = generateToken()
	}
	if opts.Arms == (stats.Arms{}) {
		opts.Arms = stats.DefaultArms()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	srv := &Server{
		store:     s,
		runner:    runner,
		arms:      opts.Arms,
		port:      opts.Port,
		token:     opts.Token,
		tokenFile: opts.TokenFile,
		router:    chi.NewRouter(),
		logger:    opts.Logger,
		startTime: time.Now(),
	}

	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)

	// Public endpoints
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})

	// Dashboard endpoints (protected)
	s.router.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/dashboard", s.handleDashboard)
		r.Post("/dashboard", s.handleDashboardQuery)
		r.Get("/dashboard/runs", s.handleDashboardRuns)
		r.Get("/dashboard/runs/{id}", s.handleDashboardRun)
		r.Post("/api/analyze", s.handleAnalyzeAPI)
		r.Get("/api/runs", s.handleRunsAPI)
	})
}

func (s *Server) Start() error {
	return s.StartWithOptions(true)
}

// StartQuiet starts the server without printing startup messages
func (s *Server) StartQuiet() error {
	return s.StartWithOptions(false)
}

func (s *Server) StartWithOptions(printMessages bool) error {
	// Write token to file for OTP command
	if s.tokenFile != "" {
		if err := os.WriteFile(s.tokenFile, []byte(s.token), 0600); err != nil {
			s.logger.Warn("failed to write token file", "path", s.tokenFile, "error", err)
		}
	}

	addr := fmt.Sprintf(":%d", s.port)

	if printMessages {
		fmt.Println()
		fmt.Printf("ab-goat running on http://localhost:%d\n", s.port)
		fmt.Printf("Dashboard: %s\n", s.DashboardURL())
		fmt.Println()
		fmt.Println("Press Ctrl+C to stop")
	}

	s.logger.Info("server listening", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// DashboardURL is the local dashboard address including the access token.
func (s *Server) DashboardURL() string {
	return fmt.Sprintf("http://localhost:%d/dashboard?token=%s", s.port, s.token)
}

func (s *Server) Token() string {
	return s.token
}

func (s *Server) StartTime() time.Time {
	return s.startTime
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func generateToken() string {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a simple token if crypto/rand fails
		return "a1b2c3d4"
	}
	return hex.EncodeToString(bytes)
}
