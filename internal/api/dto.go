package api

import (
	"github.com/starford/nspace/internal/models"
	"github.com/starford/nspace/internal/property"
	"github.com/starford/nspace/internal/records"
)

// PropertyListItem is a lightweight item in a list response.
type PropertyListItem struct {
	ID      string   `json:"id" example:"p-elm" validate:"required"`
	Address string   `json:"address" example:"12 Elm St Springfield, IL 62701" validate:"required"`
	Owners  []string `json:"owners" validate:"required"`
}

// PropertyListResponse wraps property listings.
type PropertyListResponse struct {
	Properties []PropertyListItem `json:"properties" validate:"required"`
	Total      int                `json:"total" example:"3" validate:"required"`
}

// PropertyDetail is a property with its current rent status and tenants,
// plus its listing, furnishings and access controls.
type PropertyDetail struct {
	models.Property
	property.Extras
	Address    string               `json:"address" example:"12 Elm St Springfield, IL 62701"`
	RentStatus string               `json:"rent_status" example:"Due" enums:"Paid,Due,Late,NA,!!"`
	Tenants    []models.UserProfile `json:"tenants"`
}

// RentStatusResponse is the rent status of a property on a date.
type RentStatusResponse struct {
	PropertyID string `json:"property_id" example:"p-elm" validate:"required"`
	Date       string `json:"date" example:"2024-03-03" validate:"required"`
	Status     string `json:"status" example:"Due" enums:"Paid,Due,Late,NA,!!" validate:"required"`
}

// ActivityResponse is the activity feed of a property as seen by a user.
type ActivityResponse struct {
	PropertyID string         `json:"property_id" example:"p-elm" validate:"required"`
	User       string         `json:"user" example:"u-ann" validate:"required"`
	Date       string         `json:"date" example:"2024-03-03" validate:"required"`
	Events     []models.Event `json:"events" validate:"required"`
}

// TenantsResponse lists the tenants active on a date.
type TenantsResponse struct {
	Tenants []models.UserProfile `json:"tenants" validate:"required"`
}

// RolesResponse lists the roles a user holds on a property.
type RolesResponse struct {
	User  string   `json:"user" example:"u-olga" validate:"required"`
	Roles []string `json:"roles" example:"owner" validate:"required"`
}

// LedgerResponse reports what has been imported from the ledger.
type LedgerResponse struct {
	Sources []records.SourceInfo `json:"sources" validate:"required"`
	Counts  map[string]int       `json:"counts" validate:"required"`
}
