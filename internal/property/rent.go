package property

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/starford/nspace/internal/calendar"
	"github.com/starford/nspace/internal/models"
	"github.com/starford/nspace/internal/records"
)

// RentStatus values.
const (
	RentPaid = "Paid"
	RentDue  = "Due"
	RentLate = "Late"
	// RentNA means no lease is active on the reference date.
	RentNA = "NA"
	// RentUnknown means a lease is active but its rent invoice for the last
	// due date is missing.
	RentUnknown = "!!"
)

// RentStatus derives the rent status of a property on today.
//
// The active lease's last due date is located, then the rent invoice its
// tenant owes for that date decides the result. A missing lease yields
// RentNA and a missing invoice RentUnknown; only an unknown property or a
// store failure is an error.
func (s *Service) RentStatus(ctx context.Context, propertyID string, today time.Time) (string, error) {
	today = s.dateOrToday(today)

	leases, err := s.ActiveLeases(ctx, propertyID, today)
	if err != nil {
		return "", err
	}
	if len(leases) == 0 {
		return RentNA, nil
	}
	lease := leases[0]
	if len(leases) > 1 {
		// Leases come ordered by start date then id.
		s.logger.Debug("rent: several active leases, using earliest",
			slog.String("property", propertyID),
			slog.String("lease", lease.ID),
			slog.Int("active", len(leases)))
	}

	lastDue := calendar.LastDue(today, lease.RentDueDay)
	invoices, err := s.store.Invoices(ctx, records.InvoiceFilter{
		PropertyID: propertyID,
		Type:       s.opts.RentInvoiceType,
		PayerID:    lease.TenantID,
		DueOn:      lastDue,
	})
	if err != nil {
		return "", err
	}

	status := RentLate
	inv := pickRentInvoice(invoices)
	switch {
	case inv == nil:
		status = RentUnknown
	case inv.PaidDate != nil:
		status = RentPaid
	case calendar.Within(today, lastDue, calendar.AddDays(lastDue, lease.DaysGracePeriod)):
		status = RentDue
	}

	s.logger.Debug("rent: status",
		slog.String("property", propertyID),
		slog.String("lease", lease.ID),
		slog.String("today", calendar.Format(today)),
		slog.String("last_due", calendar.Format(lastDue)),
		slog.String("status", status))
	return status, nil
}

// RentStatusNow is RentStatus on the clock's current date.
func (s *Service) RentStatusNow(ctx context.Context, propertyID string) (string, error) {
	return s.RentStatus(ctx, propertyID, s.clock.Today())
}

// pickRentInvoice prefers a paid invoice, then the lowest id.
func pickRentInvoice(invoices []models.Invoice) *models.Invoice {
	if len(invoices) == 0 {
		return nil
	}
	sort.SliceStable(invoices, func(i, j int) bool {
		pi, pj := invoices[i].PaidDate != nil, invoices[j].PaidDate != nil
		if pi != pj {
			return pi
		}
		return invoices[i].ID < invoices[j].ID
	})
	return &invoices[0]
}
