package models

import "time"

// Event types.
const (
	EventLease       = "lease"
	EventManagement  = "management"
	EventMaintenance = "maintenance"
	EventInvoice     = "invoice"
)

// Event is one entry of a property's activity feed.
//
// Event is comparable: two events with equal fields are the same event.
// Date is always a calendar date (midnight UTC).
type Event struct {
	Headline   string    `json:"headline"`
	Date       time.Time `json:"date"`
	Person     string    `json:"person"`
	ActionText string    `json:"actionText"`
	Action     string    `json:"action"`
	Type       string    `json:"type"`
}
