package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/nspace/internal/apperr"
	"github.com/starford/nspace/internal/calendar"
	"github.com/starford/nspace/internal/models"
	"github.com/starford/nspace/internal/property"
	"github.com/starford/nspace/internal/records"
)

// LedgerInfo reports ledger import state. *records.DB implements it.
type LedgerInfo interface {
	Sources(ctx context.Context) ([]records.SourceInfo, error)
	Counts(ctx context.Context) (map[string]int, error)
}

// Handler holds API route handlers.
type Handler struct {
	svc    *property.Service
	ledger LedgerInfo
}

// NewHandler creates a new Handler.
func NewHandler(svc *property.Service, ledger LedgerInfo) *Handler {
	return &Handler{svc: svc, ledger: ledger}
}

// date reads the optional ?date= parameter, defaulting to the service's today.
func (h *Handler) date(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return h.svc.Today(), nil
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", apperr.ErrInvalidInput)
	}
	return d, nil
}

func requiredUser(r *http.Request) (string, error) {
	user := r.URL.Query().Get("user")
	if user == "" {
		return "", fmt.Errorf("%w: query parameter 'user' is required", apperr.ErrInvalidInput)
	}
	return user, nil
}

// ListProperties handles GET /api/properties.
//
//	@Summary		List properties, optionally only those a user has a role on
//	@Tags			properties
//	@Produce		json
//	@Param			user	query		string	false	"Only properties this user owns, manages or rents"
//	@Param			date	query		string	false	"Reference date (YYYY-MM-DD)"
//	@Success		200		{object}	PropertyListResponse
//	@Security		BearerAuth
//	@Router			/properties [get]
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	today, err := h.date(r)
	if err != nil {
		writeError(w, "list properties", err)
		return
	}

	var props []models.Property
	if user := r.URL.Query().Get("user"); user != "" {
		props, err = h.svc.AssociatedProperties(r.Context(), user, today)
	} else {
		props, err = h.svc.Properties(r.Context())
	}
	if err != nil {
		writeError(w, "list properties", err)
		return
	}

	items := make([]PropertyListItem, 0, len(props))
	for _, p := range props {
		owners := p.Owners
		if owners == nil {
			owners = []string{}
		}
		items = append(items, PropertyListItem{ID: p.ID, Address: p.FullStreetAddress(), Owners: owners})
	}
	writeJSON(w, http.StatusOK, PropertyListResponse{Properties: items, Total: len(items)})
}

// GetProperty handles GET /api/properties/{id}.
//
//	@Summary		Get a property with its rent status, tenants, listing, furnishings and access controls
//	@Tags			properties
//	@Produce		json
//	@Param			id	path		string	true	"Property id"
//	@Success		200	{object}	PropertyDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/properties/{id} [get]
func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	p, err := h.svc.Property(ctx, id)
	if err != nil {
		writeError(w, "get property", err)
		return
	}
	today := h.svc.Today()
	status, err := h.svc.RentStatus(ctx, id, today)
	if err != nil {
		writeError(w, "get property", err)
		return
	}
	tenants, err := h.svc.Tenants(ctx, id, today)
	if err != nil {
		writeError(w, "get property", err)
		return
	}
	if tenants == nil {
		tenants = []models.UserProfile{}
	}
	extras, err := h.svc.Extras(ctx, id)
	if err != nil {
		writeError(w, "get property", err)
		return
	}
	writeJSON(w, http.StatusOK, PropertyDetail{
		Property:   *p,
		Extras:     extras,
		Address:    p.FullStreetAddress(),
		RentStatus: status,
		Tenants:    tenants,
	})
}

// RentStatus handles GET /api/properties/{id}/rent-status.
//
//	@Summary		Rent status of a property on a date
//	@Tags			properties
//	@Produce		json
//	@Param			id		path		string	true	"Property id"
//	@Param			date	query		string	false	"Reference date (YYYY-MM-DD)"
//	@Success		200		{object}	RentStatusResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/properties/{id}/rent-status [get]
func (h *Handler) RentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	today, err := h.date(r)
	if err != nil {
		writeError(w, "rent status", err)
		return
	}
	status, err := h.svc.RentStatus(r.Context(), id, today)
	if err != nil {
		writeError(w, "rent status", err)
		return
	}
	writeJSON(w, http.StatusOK, RentStatusResponse{
		PropertyID: id,
		Date:       calendar.Format(today),
		Status:     status,
	})
}

// Activity handles GET /api/properties/{id}/activity.
//
//	@Summary		Activity feed of a property as seen by a user, newest first
//	@Tags			properties
//	@Produce		json
//	@Param			id		path		string	true	"Property id"
//	@Param			user	query		string	true	"Viewing user id"
//	@Param			date	query		string	false	"Reference date (YYYY-MM-DD)"
//	@Success		200		{object}	ActivityResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/properties/{id}/activity [get]
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, err := requiredUser(r)
	if err != nil {
		writeError(w, "activity", err)
		return
	}
	today, err := h.date(r)
	if err != nil {
		writeError(w, "activity", err)
		return
	}
	events, err := h.svc.Activity(r.Context(), id, user, today)
	if err != nil {
		writeError(w, "activity", err)
		return
	}
	writeJSON(w, http.StatusOK, ActivityResponse{
		PropertyID: id,
		User:       user,
		Date:       calendar.Format(today),
		Events:     events,
	})
}

// Tenants handles GET /api/properties/{id}/tenants.
//
//	@Summary		Tenants holding an active lease on a date
//	@Tags			properties
//	@Produce		json
//	@Param			id		path		string	true	"Property id"
//	@Param			date	query		string	false	"Reference date (YYYY-MM-DD)"
//	@Success		200		{object}	TenantsResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/properties/{id}/tenants [get]
func (h *Handler) Tenants(w http.ResponseWriter, r *http.Request) {
	today, err := h.date(r)
	if err != nil {
		writeError(w, "tenants", err)
		return
	}
	tenants, err := h.svc.Tenants(r.Context(), chi.URLParam(r, "id"), today)
	if err != nil {
		writeError(w, "tenants", err)
		return
	}
	if tenants == nil {
		tenants = []models.UserProfile{}
	}
	writeJSON(w, http.StatusOK, TenantsResponse{Tenants: tenants})
}

// Roles handles GET /api/properties/{id}/roles.
//
//	@Summary		Roles a user holds on a property
//	@Tags			properties
//	@Produce		json
//	@Param			id		path		string	true	"Property id"
//	@Param			user	query		string	true	"User id"
//	@Param			date	query		string	false	"Reference date (YYYY-MM-DD)"
//	@Success		200		{object}	RolesResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/properties/{id}/roles [get]
func (h *Handler) Roles(w http.ResponseWriter, r *http.Request) {
	user, err := requiredUser(r)
	if err != nil {
		writeError(w, "roles", err)
		return
	}
	today, err := h.date(r)
	if err != nil {
		writeError(w, "roles", err)
		return
	}
	roles, err := h.svc.UserRoles(r.Context(), chi.URLParam(r, "id"), user, today)
	if err != nil {
		writeError(w, "roles", err)
		return
	}
	writeJSON(w, http.StatusOK, RolesResponse{User: user, Roles: roles})
}

// Ledger handles GET /api/ledger.
//
//	@Summary		Imported ledger files and record counts
//	@Tags			ledger
//	@Produce		json
//	@Success		200	{object}	LedgerResponse
//	@Security		BearerAuth
//	@Router			/ledger [get]
func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	sources, err := h.ledger.Sources(r.Context())
	if err != nil {
		writeError(w, "ledger", err)
		return
	}
	counts, err := h.ledger.Counts(r.Context())
	if err != nil {
		writeError(w, "ledger", err)
		return
	}
	if sources == nil {
		sources = []records.SourceInfo{}
	}
	writeJSON(w, http.StatusOK, LedgerResponse{Sources: sources, Counts: counts})
}
