package api

import (
	"net/http"

	"github.com/ashureev/agentdesk/internal/identity"
	"github.com/ashureev/agentdesk/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter builds the server's routes. Pages are served by spa behind the
// route guard.
func NewRouter(h *Handler, guard *middleware.Guard, spa http.Handler) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(h.cfg.AllowedOrigins()))
	r.Use(identity.Middleware(h.cfg.IsProduction()))

	// Session endpoints.
	r.Post("/login", h.Login)
	r.Post("/register", h.Register)
	r.Post("/logout", h.Logout)

	h.RegisterRoutes(r)

	r.Get("/ws/notifications", h.NotificationSocket)

	// Serve embedded frontend (SPA catch-all).
	pages := r.With(guard.Middleware)
	pages.Get("/login", spa.ServeHTTP)
	pages.Get("/register", spa.ServeHTTP)
	pages.Handle("/*", spa)

	return otelhttp.NewHandler(r, "agentdesk",
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/health" }),
	)
}

// RegisterRoutes registers the JSON API.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.Me)
		r.Get("/company", h.GetCompany)
		r.Put("/company", h.UpdateCompany)
		r.Get("/companies", h.ListCompanies)
		r.Post("/users", h.CreateUser)

		r.Get("/agents", h.ListAgents)
		r.Post("/agents", h.CreateAgent)
		r.Get("/agents/{agentID}", h.GetAgent)
		r.Put("/agents/{agentID}", h.UpdateAgent)
		r.Post("/agents/{agentID}/purchase", h.PurchaseAgent)

		r.Get("/purchased-agents", h.ListPurchasedAgents)
		r.Route("/purchased-agents/{purchasedAgentID}/queries", func(r chi.Router) {
			r.Get("/", h.ListQueries)
			r.Post("/", h.CreateQuery)
			r.Put("/{queryID}", h.UpdateQuery)
			r.Delete("/{queryID}", h.DeleteQuery)
		})

		r.Post("/documents", h.UploadDocument)

		r.Get("/notifications", h.ListNotifications)
		r.Get("/notifications/stream", h.StreamNotifications)
		r.Delete("/notifications/{notificationID}", h.DismissNotification)
	})
}
