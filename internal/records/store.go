package records

import (
	"context"
	"time"

	"github.com/starford/nspace/internal/models"
)

// Store is the read side of the record store. Consumers should depend on
// this interface rather than the concrete *DB type.
type Store interface {
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	ListProperties(ctx context.Context) ([]models.Property, error)
	GetUser(ctx context.Context, id string) (*models.UserProfile, error)
	Users(ctx context.Context, ids []string) ([]models.UserProfile, error)
	Leases(ctx context.Context, f LeaseFilter) ([]models.Lease, error)
	Contracts(ctx context.Context, f ContractFilter) ([]models.ManagementContract, error)
	MaintenanceRequests(ctx context.Context, f MaintenanceFilter) ([]models.MaintenanceRequest, error)
	Messages(ctx context.Context, f MessageFilter) ([]models.Message, error)
	Invoices(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error)
	Listing(ctx context.Context, propertyID string) (*models.PropertyListing, error)
	Furnishings(ctx context.Context, propertyID string) ([]models.Furnishing, error)
	AccessControls(ctx context.Context, propertyID string) ([]models.AccessControl, error)
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// Empty filter fields do not constrain the result. All non-empty fields
// are ANDed.

// LeaseFilter selects leases.
type LeaseFilter struct {
	PropertyID string
	TenantID   string
	// ActiveOn keeps leases with start_date <= ActiveOn <= end_date.
	ActiveOn time.Time
}

// ContractFilter selects management contracts.
type ContractFilter struct {
	PropertyID string
	ManagerID  string
	ActiveOn   time.Time
}

// MaintenanceFilter selects maintenance requests.
type MaintenanceFilter struct {
	PropertyID  string
	AssigneeID  string
	CreatedByID string
}

// MessageFilter selects messages.
type MessageFilter struct {
	PropertyID    string
	UserProfileID string
	// Contacts keeps messages whose sender or any recipient is one of the
	// identifiers.
	Contacts []string
}

// InvoiceFilter selects invoices.
type InvoiceFilter struct {
	PropertyID string
	Type       string
	PayerID    string
	// PartyID keeps invoices where the user is payer or payee.
	PartyID string
	DueOn   time.Time
}
