package models

import "github.com/shopspring/decimal"

// PropertyListing publishes a property's availability. A property has at
// most one listing.
type PropertyListing struct {
	ID          string          `json:"id"`
	PropertyID  string          `json:"property"`
	Rent        decimal.Decimal `json:"rent"`
	AllowPets   bool            `json:"allow_pets"`
	PetFeeFlat  decimal.Decimal `json:"pet_fee_flat"`
	PetFeePct   decimal.Decimal `json:"pet_fee_pct"`
	PetRentFlat decimal.Decimal `json:"pet_rent_flat"`
	PetRentPct  decimal.Decimal `json:"pet_rent_pct"`
	MaxPets     int             `json:"max_pets"`
	Furnished   bool            `json:"furnished"`

	Headline             string `json:"headline"`
	Subheadline          string `json:"subheadline,omitempty"`
	Description          string `json:"description"`
	LocationDescription  string `json:"location_description,omitempty"`
	AmenitiesDescription string `json:"amenities_description,omitempty"`
	ContactID            string `json:"contact"`
	Active               bool   `json:"active"`
}

// PetRent is the monthly pet rent: the flat part plus the percentage of rent.
func (l PropertyListing) PetRent() decimal.Decimal {
	return l.PetRentFlat.Add(l.Rent.Mul(l.PetRentPct).Div(decimal.NewFromInt(100)))
}

// Furnishing is furniture or an appliance on a property worth tracking.
type Furnishing struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner"`
	PropertyID  string `json:"property"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Access control types.
const (
	AccessKey          = "key"
	AccessCode         = "code"
	AccessGarageOpener = "garage_opener"
)

// AccessControl is a means of entering a property: a key, a code or a
// garage opener, held by its owner.
type AccessControl struct {
	ID         string `json:"id"`
	PropertyID string `json:"property"`
	Type       string `json:"type"`
	OwnerID    string `json:"owner"`
	Note       string `json:"note,omitempty"`
	Image      string `json:"image,omitempty"`
}
