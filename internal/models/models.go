// Package models defines the domain types for nspace.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UserProfile is a person known to the system: tenant, owner, manager or vendor.
type UserProfile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone1 string `json:"phone1,omitempty"`
	Phone2 string `json:"phone2,omitempty"`
}

// Contacts returns the non-empty identifiers messages can be addressed to.
func (u UserProfile) Contacts() []string {
	out := make([]string, 0, 3)
	for _, v := range []string{u.Email, u.Phone1, u.Phone2} {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Property types.
const (
	PropertyTownhome     = "townhome"
	PropertyApartment    = "apartment"
	PropertySingleFamily = "single_family"
	PropertyCondo        = "condo"
)

// Parking kinds.
const (
	ParkingGarage  = "garage"
	ParkingStreet  = "street"
	ParkingCovered = "covered"
	ParkingNone    = "none"
)

// Property is a managed address.
type Property struct {
	ID       string           `json:"id"`
	Address1 string           `json:"address1"`
	Address2 string           `json:"address2,omitempty"`
	City     string           `json:"city"`
	State    string           `json:"state"`
	Zip      string           `json:"zip"`
	Owners   []string         `json:"owners"`
	Profile  *PropertyProfile `json:"profile,omitempty"`
}

// FullStreetAddress renders the address on one line.
func (p Property) FullStreetAddress() string {
	street := strings.Join(strings.Fields(p.Address1+" "+p.Address2+" "+p.City), " ")
	return strings.TrimSpace(street + ", " + strings.TrimSpace(p.State+" "+p.Zip))
}

// HasOwner reports whether userID is one of the property's owners.
func (p Property) HasOwner(userID string) bool {
	for _, o := range p.Owners {
		if o == userID {
			return true
		}
	}
	return false
}

// PropertyProfile describes the physical property.
type PropertyProfile struct {
	Type         string          `json:"type"`
	Description  string          `json:"description,omitempty"`
	Bedrooms     int             `json:"bedrooms"`
	Baths        decimal.Decimal `json:"baths"`
	Parking      string          `json:"parking"`
	Sqft         int             `json:"sqft"`
	LotSizeAcres decimal.Decimal `json:"lot_size_acres"`
	Images       []PropertyImage `json:"images,omitempty"`
}

// PropertyImage is a link to a picture of the property.
type PropertyImage struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

// Lease is a tenancy contract between a tenant and a property.
type Lease struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant"`
	PropertyID      string    `json:"property"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	RentDueDay      int       `json:"rent_due_day"`
	DaysGracePeriod int       `json:"days_grace_period"`
}

// ActiveOn reports whether the lease covers d, bounds inclusive.
func (l Lease) ActiveOn(d time.Time) bool {
	return !d.Before(l.StartDate) && !d.After(l.EndDate)
}

// ManagementContract hands management of a property from an owner to a manager.
type ManagementContract struct {
	ID         string    `json:"id"`
	ManagerID  string    `json:"manager"`
	OwnerID    string    `json:"owner"`
	PropertyID string    `json:"property"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
}

// ActiveOn reports whether the contract covers d, bounds inclusive.
func (c ManagementContract) ActiveOn(d time.Time) bool {
	return !d.Before(c.StartDate) && !d.After(c.EndDate)
}

// MaintenanceRequest is a work order raised against a property.
type MaintenanceRequest struct {
	ID             string     `json:"id"`
	PropertyID     string     `json:"property"`
	CreatedByID    string     `json:"created_by"`
	AssigneeID     string     `json:"assignee,omitempty"`
	Headline       string     `json:"headline"`
	CreationDate   time.Time  `json:"creation_date"`
	AssignedDate   *time.Time `json:"assigned_date,omitempty"`
	ResolutionDate *time.Time `json:"resolution_date,omitempty"`
}

// Message types known to the feed. Other names are accepted as-is.
const (
	MessageEmail = "Email"
	MessageTweet = "Tweet"
	MessageSMS   = "SMS"
)

// Message is a communication captured for a user about a property.
type Message struct {
	ID            string    `json:"id"`
	UserProfileID string    `json:"user_profile"`
	PropertyID    string    `json:"property"`
	Sender        string    `json:"sender"`
	Recipients    []string  `json:"recipients"`
	Headline      string    `json:"headline"`
	CreationDate  time.Time `json:"creation_date"`
	Type          string    `json:"type"`
}

// InvoiceTypeRent is the invoice type used for rent.
const InvoiceTypeRent = "Rent"

// Invoice is a bill from payee to payer.
type Invoice struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	PayerID    string        `json:"payer"`
	PayeeID    string        `json:"payee"`
	PropertyID string        `json:"property"`
	IssuedDate time.Time     `json:"issued_date"`
	DueDate    *time.Time    `json:"due_date,omitempty"`
	PaidDate   *time.Time    `json:"paid_date,omitempty"`
	Items      []InvoiceItem `json:"items"`
}

// InvoiceItem is one billed line.
type InvoiceItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Amount is the sum of the invoice's items.
func (inv Invoice) Amount() decimal.Decimal {
	total := decimal.Zero
	for _, it := range inv.Items {
		total = total.Add(it.Amount)
	}
	return total
}

// Counterparty returns the party on the other side of the invoice from userID.
func (inv Invoice) Counterparty(userID string) string {
	if inv.PayerID != userID {
		return inv.PayerID
	}
	return inv.PayeeID
}
