package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/starford/nspace/internal/calendar"
	"github.com/starford/nspace/internal/models"
)

// Query selects what one-shot commands report on.
type Query struct {
	PropertyID string
	UserID     string
	// Date is YYYY-MM-DD; empty means today in the configured time zone.
	Date string
}

func (q Query) day(fallback time.Time) (time.Time, error) {
	if q.Date == "" {
		return fallback, nil
	}
	d, err := calendar.ParseDate(q.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}

// Sync imports changed ledger files once and prints the report.
func Sync(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.open(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	counts, err := rt.db.Counts(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	for _, table := range []string{"users", "properties", "leases", "contracts", "maintenance_requests", "messages", "invoices"} {
		fmt.Fprintf(tw, "%s\t%d\n", table, counts[table])
	}
	return tw.Flush()
}

// RentStatus prints the rent status of one property, or of every property
// when q.PropertyID is empty.
func RentStatus(ctx context.Context, q Query, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.open(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	today, err := q.day(rt.svc.Today())
	if err != nil {
		return err
	}

	var props []models.Property
	if q.PropertyID != "" {
		p, err := rt.svc.Property(ctx, q.PropertyID)
		if err != nil {
			return err
		}
		props = []models.Property{*p}
	} else if props, err = rt.svc.Properties(ctx); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	for _, p := range props {
		status, err := rt.svc.RentStatus(ctx, p.ID, today)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, status, p.FullStreetAddress())
	}
	return tw.Flush()
}

// Activity prints the activity feed of q.PropertyID as seen by q.UserID.
func Activity(ctx context.Context, q Query, opts ...Option) error {
	if q.PropertyID == "" || q.UserID == "" {
		return fmt.Errorf("property and user are required")
	}
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.open(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	today, err := q.day(rt.svc.Today())
	if err != nil {
		return err
	}
	events, err := rt.svc.Activity(ctx, q.PropertyID, q.UserID, today)
	if err != nil {
		return err
	}
	if events == nil {
		events = []models.Event{}
	}
	enc := json.NewEncoder(app.out)
	enc.SetIndent("", "  ")
	return enc.Encode(events)
}
