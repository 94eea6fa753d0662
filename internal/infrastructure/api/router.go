package api

import (
	"net/http"

	"shopify-merchant-link/internal/infrastructure/middleware"
	"shopify-merchant-link/internal/ports"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouterConfig holds what the router needs beyond the handlers
type RouterConfig struct {
	MerchantTokens ports.MerchantTokens
	SessionTokens  ports.SessionTokens
	Sessions       ports.SessionRepository
	Metrics        http.Handler
	AllowedOrigins []string
}

// NewRouter builds the chi router with the service's middleware stack
func NewRouter(h *Handlers, cfg RouterConfig, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.InputValidationMiddleware(logger))
	r.Use(middleware.AuditLoggingMiddleware(logger))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"https://*.myshopify.com", "https://admin.shopify.com"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/install", h.Install)
			r.Get("/callback", h.Callback)
			r.With(middleware.ShopifySession(cfg.SessionTokens, cfg.Sessions, logger)).Post("/login", h.Login)
		})
		r.With(middleware.MerchantAuth(cfg.MerchantTokens, logger)).Post("/store/sync", h.SyncStore)
		r.Post("/webhooks", h.Webhook)
	})

	return r
}
