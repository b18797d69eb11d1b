package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jihadsmadi/kindearth-backend/internal/auth"
	"github.com/jihadsmadi/kindearth-backend/internal/domain"
	"github.com/jihadsmadi/kindearth-backend/pkg/health"
	"github.com/jihadsmadi/kindearth-backend/pkg/middleware"
)

// RouterConfig bundles the dependencies the router needs.
type RouterConfig struct {
	AuthHandler    *AuthHandler
	CatalogHandler *CatalogHandler
	Tokens         *auth.TokenManager
	Health         *health.Handler
	Logger         *slog.Logger
	CORS           middleware.CORSConfig
	ServiceName    string
	PprofCIDRs     []string
}

// NewRouter builds the HTTP router with the full middleware chain and all
// API routes. Role policies: admins manage categories, tags, and roles;
// vendors (and admins) manage products; profile and logout need any
// authenticated user.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)
	}

	authenticate := Authenticate(cfg.Tokens, cfg.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.AuthHandler.Register)
			r.Post("/login", cfg.AuthHandler.Login)
			r.Post("/refreshToken", cfg.AuthHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				// Admin enforcement for assignRole lives in the service so
				// non-admin callers get its specific error message.
				r.Post("/assignRole", cfg.AuthHandler.AssignRole)
				r.Post("/logout", cfg.AuthHandler.Logout)
				r.Get("/profile", cfg.AuthHandler.Profile)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.With(middleware.CacheControl(300)).Get("/", cfg.CatalogHandler.ListCategories)
			r.With(middleware.CacheControl(300)).Get("/{id}", cfg.CatalogHandler.GetCategory)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, RequirePolicy(domain.AdminPolicy))
				r.Post("/", cfg.CatalogHandler.CreateCategory)
				r.Put("/{id}", cfg.CatalogHandler.UpdateCategory)
				r.Delete("/{id}", cfg.CatalogHandler.DeleteCategory)
			})
		})

		r.Route("/tags", func(r chi.Router) {
			r.With(middleware.CacheControl(300)).Get("/", cfg.CatalogHandler.ListTags)
			r.With(middleware.CacheControl(300)).Get("/{id}", cfg.CatalogHandler.GetTag)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, RequirePolicy(domain.AdminPolicy))
				r.Post("/", cfg.CatalogHandler.CreateTag)
				r.Delete("/{id}", cfg.CatalogHandler.DeleteTag)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.With(middleware.CacheControl(60)).Get("/", cfg.CatalogHandler.ListProducts)
			r.With(middleware.CacheControl(60)).Get("/{id}", cfg.CatalogHandler.GetProduct)

			r.Group(func(r chi.Router) {
				r.Use(authenticate, RequirePolicy(domain.VendorPolicy))
				r.Post("/", cfg.CatalogHandler.CreateProduct)
				r.Put("/{id}", cfg.CatalogHandler.UpdateProduct)
				r.Delete("/{id}", cfg.CatalogHandler.DeleteProduct)
				r.Put("/{id}/tags", cfg.CatalogHandler.SetProductTags)
				r.Put("/{id}/stocks", cfg.CatalogHandler.UpsertStock)
				r.Post("/{id}/images", cfg.CatalogHandler.AddImage)
			})
		})
	})

	return r
}
