package property

import (
	"context"
	"errors"

	"github.com/starford/nspace/internal/apperr"
	"github.com/starford/nspace/internal/models"
)

// Extras are the records hanging off a property besides its leases and
// contracts.
type Extras struct {
	Listing        *models.PropertyListing `json:"listing,omitempty"`
	Furnishings    []models.Furnishing     `json:"furnishings"`
	AccessControls []models.AccessControl  `json:"access_controls"`
}

// Extras returns the listing, furnishings and access controls of a
// property. A property without a listing has a nil Listing.
func (s *Service) Extras(ctx context.Context, propertyID string) (Extras, error) {
	var ex Extras
	if _, err := s.store.GetProperty(ctx, propertyID); err != nil {
		return ex, err
	}

	listing, err := s.store.Listing(ctx, propertyID)
	switch {
	case err == nil:
		ex.Listing = listing
	case !errors.Is(err, apperr.ErrNotFound):
		return ex, err
	}

	if ex.Furnishings, err = s.store.Furnishings(ctx, propertyID); err != nil {
		return ex, err
	}
	if ex.AccessControls, err = s.store.AccessControls(ctx, propertyID); err != nil {
		return ex, err
	}
	if ex.Furnishings == nil {
		ex.Furnishings = []models.Furnishing{}
	}
	if ex.AccessControls == nil {
		ex.AccessControls = []models.AccessControl{}
	}
	return ex, nil
}
