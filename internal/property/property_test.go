package property

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/starford/nspace/internal/apperr"
	"github.com/starford/nspace/internal/calendar"
	"github.com/starford/nspace/internal/models"
	"github.com/starford/nspace/internal/records"
	"github.com/starford/nspace/internal/testutil"
)

const elmLedger = `
users:
  - id: u-ann
    name: Ann Tenant
    email: ann@example.com
    phone1: "555-0100"
  - id: u-olga
    name: Olga Owner
    email: olga@example.com
  - id: u-mark
    name: Mark Manager
    email: mark@example.com
properties:
  - id: p-elm
    address1: 12 Elm St
    city: Springfield
    state: IL
    zip: "62701"
    owners: [u-olga]
  - id: p-oak
    address1: 3 Oak Ave
    city: Springfield
    owners: [u-olga]
leases:
  - id: l-ann
    tenant: u-ann
    property: p-elm
    start_date: 2024-01-01
    end_date: 2024-12-31
    rent_due_day: 1
    days_grace_period: 5
contracts:
  - id: c-mark
    manager: u-mark
    owner: u-olga
    property: p-elm
    start_date: 2023-06-01
    end_date: 2024-05-31
`

const marchRent = `
invoices:
  - id: inv-mar
    type: Rent
    payer: u-ann
    payee: u-olga
    property: p-elm
    issued_date: 2024-02-20
    due_date: 2024-03-01
    items:
      - description: March rent
        amount: 1200.00
`

func newTestService(t *testing.T, docs ...string) (*Service, *records.DB) {
	t.Helper()
	db := testutil.TestDB(t)
	for i, doc := range docs {
		testutil.Seed(t, db, string(rune('a'+i))+".yaml", doc)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := FixedClock(calendar.Date(2024, time.March, 3))
	return NewService(db, clock, logger, Options{}), db
}

func d(y int, m time.Month, day int) time.Time { return calendar.Date(y, m, day) }

func TestRentStatus_Scenarios(t *testing.T) {
	svc, _ := newTestService(t, elmLedger, marchRent)
	ctx := context.Background()

	tests := []struct {
		name  string
		today time.Time
		want  string
	}{
		{"on due date", d(2024, 3, 1), RentDue},
		{"inside grace", d(2024, 3, 3), RentDue},
		{"last grace day", d(2024, 3, 6), RentDue},
		{"past grace", d(2024, 3, 7), RentLate},
		{"well past grace", d(2024, 3, 10), RentLate},
		{"no invoice for next due date", d(2024, 4, 2), RentUnknown},
		{"before lease", d(2023, 12, 15), RentNA},
		{"after lease", d(2025, 1, 1), RentNA},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.RentStatus(ctx, "p-elm", tt.today)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("RentStatus(%s) = %q, want %q", calendar.Format(tt.today), got, tt.want)
			}
		})
	}
}

func TestRentStatus_Paid(t *testing.T) {
	paid := marchRent + "    paid_date: 2024-03-02\n"
	svc, _ := newTestService(t, elmLedger, paid)

	for _, today := range []time.Time{d(2024, 3, 3), d(2024, 3, 10)} {
		got, err := svc.RentStatus(context.Background(), "p-elm", today)
		if err != nil {
			t.Fatal(err)
		}
		if got != RentPaid {
			t.Errorf("RentStatus(%s) = %q, want Paid", calendar.Format(today), got)
		}
	}
}

func TestRentStatus_NoLease(t *testing.T) {
	svc, _ := newTestService(t, elmLedger)
	got, err := svc.RentStatus(context.Background(), "p-oak", d(2024, 3, 3))
	if err != nil {
		t.Fatal(err)
	}
	if got != RentNA {
		t.Errorf("got %q, want NA", got)
	}
}

func TestRentStatus_InvoiceFromAnotherPayerIgnored(t *testing.T) {
	other := `
invoices:
  - id: inv-x
    type: Rent
    payer: u-mark
    payee: u-olga
    property: p-elm
    issued_date: 2024-02-20
    due_date: 2024-03-01
`
	svc, _ := newTestService(t, elmLedger, other)
	got, _ := svc.RentStatus(context.Background(), "p-elm", d(2024, 3, 3))
	if got != RentUnknown {
		t.Errorf("got %q, want !!", got)
	}
}

func TestRentStatus_DueDayOverflow(t *testing.T) {
	doc := `
users:
  - id: u-bo
    name: Bo
properties:
  - id: p-31
    address1: 31 Short St
    city: Springfield
leases:
  - id: l-bo
    tenant: u-bo
    property: p-31
    start_date: 2024-01-01
    end_date: 2024-12-31
    rent_due_day: 31
    days_grace_period: 3
invoices:
  - id: inv-feb
    type: Rent
    payer: u-bo
    payee: u-x
    property: p-31
    issued_date: 2024-02-01
    due_date: 2024-02-29
  - id: inv-apr
    type: Rent
    payer: u-bo
    payee: u-x
    property: p-31
    issued_date: 2024-04-01
    due_date: 2024-04-30
    paid_date: 2024-04-29
`
	svc, _ := newTestService(t, doc)
	ctx := context.Background()

	tests := []struct {
		today time.Time
		want  string
	}{
		{d(2024, 2, 29), RentDue},
		{d(2024, 3, 2), RentDue},
		{d(2024, 3, 15), RentLate},
		{d(2024, 5, 2), RentPaid},
		{d(2024, 4, 30), RentPaid},
		{d(2024, 3, 31), RentUnknown},
	}
	for _, tt := range tests {
		got, err := svc.RentStatus(ctx, "p-31", tt.today)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("RentStatus(%s) = %q, want %q", calendar.Format(tt.today), got, tt.want)
		}
	}
}

func TestRentStatus_EarliestActiveLeaseWins(t *testing.T) {
	second := `
users:
  - id: u-cy
    name: Cy
leases:
  - id: l-cy
    tenant: u-cy
    property: p-elm
    start_date: 2024-02-01
    end_date: 2024-12-31
    rent_due_day: 1
invoices:
  - id: inv-cy
    type: Rent
    payer: u-cy
    payee: u-olga
    property: p-elm
    issued_date: 2024-02-20
    due_date: 2024-03-01
    paid_date: 2024-02-28
`
	svc, _ := newTestService(t, elmLedger, marchRent, second)
	got, _ := svc.RentStatus(context.Background(), "p-elm", d(2024, 3, 3))
	if got != RentDue {
		t.Errorf("got %q, want Due from the earliest lease", got)
	}
}

func TestRentStatus_CustomInvoiceType(t *testing.T) {
	doc := `
invoices:
  - id: inv-lease
    type: Lease Payment
    payer: u-ann
    payee: u-olga
    property: p-elm
    issued_date: 2024-02-20
    due_date: 2024-03-01
    paid_date: 2024-03-01
`
	db := testutil.TestDB(t)
	testutil.Seed(t, db, "a.yaml", elmLedger)
	testutil.Seed(t, db, "b.yaml", doc)
	svc := NewService(db, FixedClock(d(2024, 3, 3)), nil, Options{RentInvoiceType: "Lease Payment"})

	got, _ := svc.RentStatusNow(context.Background(), "p-elm")
	if got != RentPaid {
		t.Errorf("got %q, want Paid", got)
	}
}

func TestRentStatusNow_UsesClock(t *testing.T) {
	svc, _ := newTestService(t, elmLedger, marchRent)
	got, err := svc.RentStatusNow(context.Background(), "p-elm")
	if err != nil {
		t.Fatal(err)
	}
	if got != RentDue {
		t.Errorf("got %q, want Due on the fixed clock's 2024-03-03", got)
	}
}

func TestRentStatus_UnknownProperty(t *testing.T) {
	svc, _ := newTestService(t, elmLedger)
	if _, err := svc.RentStatus(context.Background(), "nope", time.Time{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUserRoles(t *testing.T) {
	svc, _ := newTestService(t, elmLedger)
	ctx := context.Background()

	tests := []struct {
		user  string
		today time.Time
		want  []string
	}{
		{"u-olga", d(2024, 3, 3), []string{RoleOwner}},
		{"u-mark", d(2024, 3, 3), []string{RoleManager}},
		{"u-mark", d(2024, 6, 1), []string{}},
		{"u-ann", d(2024, 3, 3), []string{RoleTenant}},
		{"u-nobody", d(2024, 3, 3), []string{}},
	}
	for _, tt := range tests {
		got, err := svc.UserRoles(ctx, "p-elm", tt.user, tt.today)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(tt.want) {
			t.Errorf("UserRoles(%s, %s) = %v, want %v", tt.user, calendar.Format(tt.today), got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("UserRoles(%s) = %v, want %v", tt.user, got, tt.want)
			}
		}
	}
}

func TestTenants(t *testing.T) {
	svc, _ := newTestService(t, elmLedger)
	ctx := context.Background()

	got, err := svc.Tenants(ctx, "p-elm", d(2024, 3, 3))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Ann Tenant" {
		t.Errorf("tenants = %+v", got)
	}
	if got, _ := svc.Tenants(ctx, "p-elm", d(2025, 3, 3)); len(got) != 0 {
		t.Errorf("tenants after lease end = %+v", got)
	}
}

func TestAssociatedProperties(t *testing.T) {
	svc, _ := newTestService(t, elmLedger)
	ctx := context.Background()

	owner, _ := svc.AssociatedProperties(ctx, "u-olga", d(2024, 3, 3))
	if len(owner) != 2 {
		t.Errorf("owner sees %d properties, want 2", len(owner))
	}
	tenant, _ := svc.AssociatedProperties(ctx, "u-ann", d(2024, 3, 3))
	if len(tenant) != 1 || tenant[0].ID != "p-elm" {
		t.Errorf("tenant properties = %+v", tenant)
	}
	stranger, _ := svc.AssociatedProperties(ctx, "u-x", d(2024, 3, 3))
	if len(stranger) != 0 {
		t.Errorf("stranger properties = %+v", stranger)
	}
}

func headlines(events []models.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Headline
	}
	return out
}

func TestExtras(t *testing.T) {
	extras := `
listings:
  - id: lst-elm
    property: p-elm
    rent: 1200
    headline: Sunny townhome
    description: Close to the park.
    contact: u-olga
furnishings:
  - owner: u-olga
    property: p-elm
    name: Washer
access:
  - property: p-elm
    type: code
    owner: u-ann
    note: "4711"
`
	svc, _ := newTestService(t, elmLedger, extras)
	ctx := context.Background()

	ex, err := svc.Extras(ctx, "p-elm")
	if err != nil {
		t.Fatal(err)
	}
	if ex.Listing == nil || ex.Listing.ID != "lst-elm" || !ex.Listing.AllowPets || ex.Listing.Active {
		t.Errorf("listing = %+v", ex.Listing)
	}
	if len(ex.Furnishings) != 1 || len(ex.AccessControls) != 1 || ex.AccessControls[0].Note != "4711" {
		t.Errorf("extras = %+v", ex)
	}

	oak, err := svc.Extras(ctx, "p-oak")
	if err != nil {
		t.Fatal(err)
	}
	if oak.Listing != nil || oak.Furnishings == nil || oak.AccessControls == nil {
		t.Errorf("oak extras = %+v", oak)
	}

	if _, err := svc.Extras(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
