package property

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/starford/nspace/internal/apperr"
	"github.com/starford/nspace/internal/calendar"
	"github.com/starford/nspace/internal/models"
	"github.com/starford/nspace/internal/records"
)

// Activity returns the deduplicated feed of events userID sees for the
// property, newest first. Events dated after today are still included for
// start and creation dates; end, assignment, resolution, due and paid events
// only appear once their date is on or before today.
func (s *Service) Activity(ctx context.Context, propertyID, userID string, today time.Time) ([]models.Event, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	today = s.dateOrToday(today)

	p, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	var events []models.Event
	sources := []func(context.Context, *models.Property, string, time.Time) ([]models.Event, error){
		s.leaseEvents,
		s.contractEvents,
		s.maintenanceEvents,
		s.messageEvents,
		s.invoiceEvents,
	}
	for _, src := range sources {
		evs, err := src(ctx, p, userID, today)
		if err != nil {
			return nil, err
		}
		events = append(events, evs...)
	}
	return dedupeAndSort(events), nil
}

func (s *Service) leaseEvents(ctx context.Context, p *models.Property, userID string, today time.Time) ([]models.Event, error) {
	filter := records.LeaseFilter{PropertyID: p.ID, TenantID: userID}
	if p.HasOwner(userID) {
		filter.TenantID = ""
	} else {
		managed, err := s.store.Contracts(ctx, records.ContractFilter{PropertyID: p.ID, ManagerID: userID})
		if err != nil {
			return nil, err
		}
		if len(managed) > 0 {
			filter.TenantID = ""
		}
	}
	leases, err := s.store.Leases(ctx, filter)
	if err != nil {
		return nil, err
	}

	var out []models.Event
	for _, l := range leases {
		ev := models.Event{
			Person:     l.TenantID,
			ActionText: "View Lease",
			Action:     "/leases/" + l.ID,
			Type:       models.EventLease,
		}
		out = append(out, at(ev, "Lease Started", l.StartDate))
		if !l.EndDate.After(today) {
			out = append(out, at(ev, "Lease Ended", l.EndDate))
		}
	}
	return out, nil
}

func (s *Service) contractEvents(ctx context.Context, p *models.Property, userID string, today time.Time) ([]models.Event, error) {
	contracts, err := s.store.Contracts(ctx, records.ContractFilter{PropertyID: p.ID, ManagerID: userID})
	if err != nil {
		return nil, err
	}
	var out []models.Event
	for _, c := range contracts {
		ev := models.Event{
			Person:     c.OwnerID,
			ActionText: "View Contract",
			Action:     "/contracts/" + c.ID,
			Type:       models.EventManagement,
		}
		out = append(out, at(ev, "Management Started", c.StartDate))
		if !c.EndDate.After(today) {
			out = append(out, at(ev, "Management Ended", c.EndDate))
		}
	}
	return out, nil
}

func (s *Service) maintenanceEvents(ctx context.Context, p *models.Property, userID string, today time.Time) ([]models.Event, error) {
	assigned, err := s.store.MaintenanceRequests(ctx, records.MaintenanceFilter{PropertyID: p.ID, AssigneeID: userID})
	if err != nil {
		return nil, err
	}
	created, err := s.store.MaintenanceRequests(ctx, records.MaintenanceFilter{PropertyID: p.ID, CreatedByID: userID})
	if err != nil {
		return nil, err
	}

	var out []models.Event
	for _, r := range append(assigned, created...) {
		ev := models.Event{
			ActionText: "View Request",
			Action:     "/maintenance/" + r.ID,
			Type:       models.EventMaintenance,
		}
		ev.Person = r.CreatedByID
		out = append(out, at(ev, "New Request: "+r.Headline, r.CreationDate))
		if calendar.OnOrBefore(r.AssignedDate, today) {
			ev.Person = r.AssigneeID
			out = append(out, at(ev, "Assigned Request: "+r.Headline, *r.AssignedDate))
		}
		if calendar.OnOrBefore(r.ResolutionDate, today) {
			ev.Person = r.AssigneeID
			if ev.Person == "" {
				ev.Person = r.CreatedByID
			}
			out = append(out, at(ev, "Closed Request: "+r.Headline, *r.ResolutionDate))
		}
	}
	return out, nil
}

func (s *Service) messageEvents(ctx context.Context, p *models.Property, userID string, today time.Time) ([]models.Event, error) {
	leases, err := s.store.Leases(ctx, records.LeaseFilter{PropertyID: p.ID, ActiveOn: today})
	if err != nil {
		return nil, err
	}
	if len(leases) == 0 {
		return nil, nil
	}
	tenants, err := s.store.Users(ctx, tenantIDs(leases))
	if err != nil {
		return nil, err
	}

	var contacts []string
	viewer, err := s.store.GetUser(ctx, userID)
	switch {
	case err == nil:
		contacts = append(contacts, viewer.Contacts()...)
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}
	for _, t := range tenants {
		contacts = append(contacts, t.Contacts()...)
	}
	if len(contacts) == 0 {
		return nil, nil
	}

	msgs, err := s.store.Messages(ctx, records.MessageFilter{
		PropertyID:    p.ID,
		UserProfileID: userID,
		Contacts:      contacts,
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.Event, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, models.Event{
			Headline:   m.Type + ": " + m.Headline,
			Date:       calendar.Day(m.CreationDate),
			Person:     userID,
			ActionText: "View",
			Action:     "/messages/" + m.ID,
			Type:       m.Type,
		})
	}
	return out, nil
}

func (s *Service) invoiceEvents(ctx context.Context, p *models.Property, userID string, today time.Time) ([]models.Event, error) {
	invoices, err := s.store.Invoices(ctx, records.InvoiceFilter{PropertyID: p.ID, PartyID: userID})
	if err != nil {
		return nil, err
	}
	var out []models.Event
	for _, inv := range invoices {
		amount := inv.Amount().StringFixed(2)
		ev := models.Event{
			Person:     inv.Counterparty(userID),
			ActionText: "View Invoice",
			Action:     "/invoices/" + inv.ID,
			Type:       models.EventInvoice,
		}
		out = append(out, at(ev, fmt.Sprintf("%s Created: %s", inv.Type, amount), inv.IssuedDate))
		if calendar.OnOrBefore(inv.DueDate, today) {
			out = append(out, at(ev, fmt.Sprintf("%s Due: %s", inv.Type, amount), *inv.DueDate))
		}
		if calendar.OnOrBefore(inv.PaidDate, today) {
			out = append(out, at(ev, fmt.Sprintf("%s Paid: %s", inv.Type, amount), *inv.PaidDate))
		}
	}
	return out, nil
}

// at returns a copy of ev with its headline and date set.
func at(ev models.Event, headline string, date time.Time) models.Event {
	ev.Headline = headline
	ev.Date = calendar.Day(date)
	return ev
}

// dedupeAndSort drops repeated events and orders the rest newest first.
// Same-day events are ordered by type, then headline.
func dedupeAndSort(events []models.Event) []models.Event {
	seen := make(map[models.Event]struct{}, len(events))
	out := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if _, ok := seen[ev]; ok {
			continue
		}
		seen[ev] = struct{}{}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Headline < b.Headline
	})
	return out
}
