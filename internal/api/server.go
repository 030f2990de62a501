package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/todmy/interolog/internal/auth"
	"github.com/todmy/interolog/internal/interolog"
)

// ServerConfig holds the dependencies of the HTTP server
type ServerConfig struct {
	Service *interolog.Service
	Auth    auth.Service
}

type Server struct {
	router  *chi.Mux
	service *interolog.Service
	auth    auth.Service
}

func NewServer(config ServerConfig) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:  r,
		service: config.Service,
		auth:    config.Auth,
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	authHandlers := auth.NewHandlers(s.auth)

	// Health check
	s.router.Get("/health", s.handleHealth)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public)
		r.Post("/auth/register", authHandlers.Register)
		r.Post("/auth/login", authHandlers.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.auth))

			r.Get("/auth/me", authHandlers.Me)

			r.Route("/evidence", func(r chi.Router) {
				r.Post("/", s.handleIngest)
				r.Get("/", s.handleDump)
				r.Delete("/", s.handleClear)
				r.Post("/flush-raw", s.handleFlushRawText)
				r.Post("/filter", s.handleFilter)
				r.Get("/{id}", s.handleEvidence)
				r.Get("/{id1}/{id2}", s.handleEvidencePair)
			})

			r.Get("/partners", s.handlePartners)
			r.Get("/topology", s.handleTopology)

			r.Route("/links", func(r chi.Router) {
				r.Post("/", s.handleCreateLink)
				r.Get("/", s.handleListLinks)
				r.Get("/{linkID}", s.handleGetLink)
				r.Delete("/{linkID}", s.handleRemoveLink)
				r.Post("/{linkID}/trim", s.handleTrimLink)
				r.Get("/{linkID}/similar", s.handleSimilarHits)
				r.Get("/{linkID}/outliers", s.handleOutliers)
			})
		})
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Run(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

// Helper to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
