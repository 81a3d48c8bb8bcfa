// Package property answers questions about a single property from the
// record store: its rent status, the activity feed a user sees for it and
// who holds which role on it.
package property

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/nspace/internal/apperr"
	"github.com/starford/nspace/internal/calendar"
	"github.com/starford/nspace/internal/models"
	"github.com/starford/nspace/internal/records"
)

// Roles a user can hold on a property.
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleTenant  = "tenant"
)

// Options tune the service.
type Options struct {
	// RentInvoiceType is the invoice type that carries rent. Defaults to "Rent".
	RentInvoiceType string
}

// Service computes property views over a records.Store. It never mutates
// the store and holds no per-call state.
type Service struct {
	store  records.Store
	clock  Clock
	logger *slog.Logger
	opts   Options
}

// NewService creates a property service.
func NewService(store records.Store, clock Clock, logger *slog.Logger, opts Options) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RentInvoiceType == "" {
		opts.RentInvoiceType = models.InvoiceTypeRent
	}
	return &Service{store: store, clock: clock, logger: logger, opts: opts}
}

// Today returns the service clock's current date.
func (s *Service) Today() time.Time {
	return s.clock.Today()
}

// dateOrToday normalises d, substituting the clock's today for the zero time.
func (s *Service) dateOrToday(d time.Time) time.Time {
	if d.IsZero() {
		return s.clock.Today()
	}
	return calendar.Day(d)
}

// Property returns a property by id.
func (s *Service) Property(ctx context.Context, id string) (*models.Property, error) {
	return s.store.GetProperty(ctx, id)
}

// Properties lists every property.
func (s *Service) Properties(ctx context.Context) ([]models.Property, error) {
	return s.store.ListProperties(ctx)
}

// ActiveLeases returns the property's leases active on today.
func (s *Service) ActiveLeases(ctx context.Context, propertyID string, today time.Time) ([]models.Lease, error) {
	if _, err := s.store.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.store.Leases(ctx, records.LeaseFilter{PropertyID: propertyID, ActiveOn: s.dateOrToday(today)})
}

// Tenants returns the profiles of users holding a lease on the property
// active on today.
func (s *Service) Tenants(ctx context.Context, propertyID string, today time.Time) ([]models.UserProfile, error) {
	leases, err := s.ActiveLeases(ctx, propertyID, today)
	if err != nil {
		return nil, err
	}
	return s.store.Users(ctx, tenantIDs(leases))
}

// UserRoles returns the roles userID holds on the property on today, in
// owner, manager, tenant order.
func (s *Service) UserRoles(ctx context.Context, propertyID, userID string, today time.Time) ([]string, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	p, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return s.rolesOn(ctx, p, userID, s.dateOrToday(today))
}

func (s *Service) rolesOn(ctx context.Context, p *models.Property, userID string, today time.Time) ([]string, error) {
	roles := []string{}
	if p.HasOwner(userID) {
		roles = append(roles, RoleOwner)
	}
	contracts, err := s.store.Contracts(ctx, records.ContractFilter{PropertyID: p.ID, ManagerID: userID, ActiveOn: today})
	if err != nil {
		return nil, err
	}
	if len(contracts) > 0 {
		roles = append(roles, RoleManager)
	}
	leases, err := s.store.Leases(ctx, records.LeaseFilter{PropertyID: p.ID, TenantID: userID, ActiveOn: today})
	if err != nil {
		return nil, err
	}
	if len(leases) > 0 {
		roles = append(roles, RoleTenant)
	}
	return roles, nil
}

// AssociatedProperties returns the properties on which userID holds any
// role on today.
func (s *Service) AssociatedProperties(ctx context.Context, userID string, today time.Time) ([]models.Property, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	today = s.dateOrToday(today)
	props, err := s.store.ListProperties(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Property{}
	for i := range props {
		roles, err := s.rolesOn(ctx, &props[i], userID, today)
		if err != nil {
			return nil, err
		}
		if len(roles) > 0 {
			out = append(out, props[i])
		}
	}
	return out, nil
}

// requireUser rejects a blank viewer. Store filters treat an empty id as
// "any", so a blank viewer would otherwise see every record.
func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", apperr.ErrInvalidInput)
	}
	return nil
}

func tenantIDs(leases []models.Lease) []string {
	seen := make(map[string]struct{}, len(leases))
	ids := make([]string, 0, len(leases))
	for _, l := range leases {
		if _, ok := seen[l.TenantID]; ok {
			continue
		}
		seen[l.TenantID] = struct{}{}
		ids = append(ids, l.TenantID)
	}
	return ids
}
