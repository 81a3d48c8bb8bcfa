package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/nspace/internal/property"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *property.Service, ledger LedgerInfo, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, ledger)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/properties", func(r chi.Router) {
		r.Get("/", h.ListProperties)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetProperty)
			r.Get("/rent-status", h.RentStatus)
			r.Get("/activity", h.Activity)
			r.Get("/tenants", h.Tenants)
			r.Get("/roles", h.Roles)
		})
	})

	r.Get("/ledger", h.Ledger)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}
	return r
}
