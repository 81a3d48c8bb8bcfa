package records

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/starford/nspace/internal/apperr"
	"github.com/starford/nspace/internal/models"
)

// Listing returns the listing of a property, or apperr.ErrNotFound.
func (db *DB) Listing(ctx context.Context, propertyID string) (*models.PropertyListing, error) {
	var (
		l                                              models.PropertyListing
		rent, feeFlat, feePct, petRentFlat, petRentPct string
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, property_id, rent, allow_pets, pet_fee_flat, pet_fee_pct, pet_rent_flat, pet_rent_pct,
			max_pets, furnished, headline, subheadline, description, location_description,
			amenities_description, contact_id, active
		FROM listings WHERE property_id = ?`, propertyID,
	).Scan(&l.ID, &l.PropertyID, &rent, &l.AllowPets, &feeFlat, &feePct, &petRentFlat, &petRentPct,
		&l.MaxPets, &l.Furnished, &l.Headline, &l.Subheadline, &l.Description, &l.LocationDescription,
		&l.AmenitiesDescription, &l.ContactID, &l.Active)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("listing for %q: %w", propertyID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("records: get listing: %w", err)
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		raw string
	}{
		{&l.Rent, rent}, {&l.PetFeeFlat, feeFlat}, {&l.PetFeePct, feePct},
		{&l.PetRentFlat, petRentFlat}, {&l.PetRentPct, petRentPct},
	} {
		if *f.dst, err = decimal.NewFromString(f.raw); err != nil {
			return nil, fmt.Errorf("records: decode listing %s: %w", l.ID, err)
		}
	}
	return &l, nil
}

// Furnishings returns the furnishings on a property ordered by name then id.
func (db *DB) Furnishings(ctx context.Context, propertyID string) ([]models.Furnishing, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, owner_id, property_id, name, description, image
		FROM furnishings WHERE property_id = ? ORDER BY name, id`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("records: query furnishings: %w", err)
	}
	defer rows.Close()
	var out []models.Furnishing
	for rows.Next() {
		var f models.Furnishing
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.PropertyID, &f.Name, &f.Description, &f.Image); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// AccessControls returns the keys, codes and openers of a property ordered
// by type then id.
func (db *DB) AccessControls(ctx context.Context, propertyID string) ([]models.AccessControl, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, property_id, type, owner_id, note, image
		FROM access_controls WHERE property_id = ? ORDER BY type, id`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("records: query access controls: %w", err)
	}
	defer rows.Close()
	var out []models.AccessControl
	for rows.Next() {
		var a models.AccessControl
		if err := rows.Scan(&a.ID, &a.PropertyID, &a.Type, &a.OwnerID, &a.Note, &a.Image); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
