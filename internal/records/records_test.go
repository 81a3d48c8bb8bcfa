package records

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/starford/nspace/internal/apperr"
	"github.com/starford/nspace/internal/calendar"
	"github.com/starford/nspace/internal/ledger"
	"github.com/starford/nspace/internal/models"
	"github.com/starford/nspace/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "nspace-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func day(y int, m time.Month, d int) time.Time { return calendar.Date(y, m, d) }

func ptr(t time.Time) *time.Time { return &t }

func sampleBundle() *ledger.Bundle {
	return &ledger.Bundle{
		Users: []models.UserProfile{
			{ID: "u-ann", Name: "Ann", Email: "ann@example.com", Phone1: "555-0100"},
			{ID: "u-olga", Name: "Olga", Email: "olga@example.com"},
		},
		Properties: []models.Property{{
			ID: "p-elm", Address1: "12 Elm St", City: "Springfield", State: "IL", Zip: "62701",
			Owners: []string{"u-olga"},
			Profile: &models.PropertyProfile{
				Type: models.PropertyTownhome, Bedrooms: 3, Baths: decimal.RequireFromString("2.5"),
			},
		}},
		Leases: []models.Lease{{
			ID: "l-1", TenantID: "u-ann", PropertyID: "p-elm",
			StartDate: day(2024, 1, 1), EndDate: day(2024, 12, 31), RentDueDay: 1, DaysGracePeriod: 5,
		}},
		Contracts: []models.ManagementContract{{
			ID: "c-1", ManagerID: "u-mark", OwnerID: "u-olga", PropertyID: "p-elm",
			StartDate: day(2023, 6, 1), EndDate: day(2025, 5, 31),
		}},
		Maintenance: []models.MaintenanceRequest{{
			ID: "m-1", PropertyID: "p-elm", CreatedByID: "u-ann", AssigneeID: "u-mark",
			Headline: "Leaky faucet", CreationDate: day(2024, 2, 1), AssignedDate: ptr(day(2024, 2, 2)),
		}},
		Messages: []models.Message{{
			ID: "msg-1", UserProfileID: "u-olga", PropertyID: "p-elm", Sender: "ann@example.com",
			Recipients: []string{"olga@example.com"}, Headline: "Faucet",
			CreationDate: time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC), Type: models.MessageEmail,
		}},
		Invoices: []models.Invoice{{
			ID: "inv-1", Type: models.InvoiceTypeRent, PayerID: "u-ann", PayeeID: "u-olga", PropertyID: "p-elm",
			IssuedDate: day(2024, 2, 20), DueDate: ptr(day(2024, 3, 1)),
			Items: []models.InvoiceItem{
				{Description: "March rent", Amount: decimal.RequireFromString("1200.00")},
				{Description: "Pet rent", Amount: decimal.RequireFromString("35.50")},
			},
		}},
	}
}

func seeded(t *testing.T) *DB {
	t.Helper()
	db := testDB(t)
	if err := db.ReplaceSource(context.Background(), "elm.yaml", "cs1", sampleBundle()); err != nil {
		t.Fatalf("ReplaceSource: %v", err)
	}
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range append([]string{"sources", "message_recipients", "invoice_items"}, recordTables...) {
		var n int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&n); err != nil {
			t.Errorf("%s table missing: %v", table, err)
		}
	}
}

func TestGetProperty(t *testing.T) {
	db := seeded(t)
	ctx := context.Background()

	p, err := db.GetProperty(ctx, "p-elm")
	if err != nil {
		t.Fatalf("GetProperty: %v", err)
	}
	if p.City != "Springfield" || len(p.Owners) != 1 || p.Owners[0] != "u-olga" {
		t.Errorf("property = %+v", p)
	}
	if p.Profile == nil || p.Profile.Baths.String() != "2.5" {
		t.Errorf("profile = %+v", p.Profile)
	}

	if _, err := db.GetProperty(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing property err = %v, want ErrNotFound", err)
	}
	if _, err := db.GetUser(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing user err = %v, want ErrNotFound", err)
	}
}

func TestUsers(t *testing.T) {
	db := seeded(t)
	users, err := db.Users(context.Background(), []string{"u-olga", "u-ann", "u-ghost"})
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || users[0].ID != "u-ann" || users[1].ID != "u-olga" {
		t.Errorf("users = %+v", users)
	}
}

func TestLeases_ActiveOn(t *testing.T) {
	db := seeded(t)
	ctx := context.Background()

	tests := []struct {
		on   time.Time
		want int
	}{
		{day(2023, 12, 31), 0},
		{day(2024, 1, 1), 1},
		{day(2024, 12, 31), 1},
		{day(2025, 1, 1), 0},
	}
	for _, tt := range tests {
		got, err := db.Leases(ctx, LeaseFilter{PropertyID: "p-elm", ActiveOn: tt.on})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != tt.want {
			t.Errorf("active on %s: %d leases, want %d", calendar.Format(tt.on), len(got), tt.want)
		}
	}

	all, _ := db.Leases(ctx, LeaseFilter{TenantID: "u-ann"})
	if len(all) != 1 || all[0].StartDate != day(2024, 1, 1) || all[0].DaysGracePeriod != 5 {
		t.Errorf("leases = %+v", all)
	}
}

func TestContracts(t *testing.T) {
	db := seeded(t)
	got, err := db.Contracts(context.Background(), ContractFilter{ManagerID: "u-mark", ActiveOn: day(2024, 3, 1)})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].OwnerID != "u-olga" {
		t.Errorf("contracts = %+v", got)
	}
}

func TestMaintenanceRequests(t *testing.T) {
	db := seeded(t)
	got, err := db.MaintenanceRequests(context.Background(), MaintenanceFilter{AssigneeID: "u-mark"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("requests = %+v", got)
	}
	m := got[0]
	if m.AssignedDate == nil || *m.AssignedDate != day(2024, 2, 2) || m.ResolutionDate != nil {
		t.Errorf("request dates = %v / %v", m.AssignedDate, m.ResolutionDate)
	}
}

func TestMessages_Contacts(t *testing.T) {
	db := seeded(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		contacts []string
		want     int
	}{
		{"sender match", []string{"ann@example.com"}, 1},
		{"recipient match", []string{"olga@example.com"}, 1},
		{"no match", []string{"bob@example.com"}, 0},
		{"no contact filter", nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Messages(ctx, MessageFilter{PropertyID: "p-elm", UserProfileID: "u-olga", Contacts: tt.contacts})
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d messages, want %d", len(got), tt.want)
			}
		})
	}

	got, _ := db.Messages(ctx, MessageFilter{PropertyID: "p-elm"})
	if got[0].CreationDate.Hour() != 9 || len(got[0].Recipients) != 1 {
		t.Errorf("message = %+v", got[0])
	}
}

func TestInvoices(t *testing.T) {
	db := seeded(t)
	ctx := context.Background()

	got, err := db.Invoices(ctx, InvoiceFilter{
		PropertyID: "p-elm", Type: models.InvoiceTypeRent, PayerID: "u-ann", DueOn: day(2024, 3, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Amount().StringFixed(2) != "1235.50" || got[0].PaidDate != nil {
		t.Errorf("invoices = %+v", got)
	}

	if got, _ := db.Invoices(ctx, InvoiceFilter{PartyID: "u-olga"}); len(got) != 1 {
		t.Errorf("payee lookup = %d invoices, want 1", len(got))
	}
	if got, _ := db.Invoices(ctx, InvoiceFilter{DueOn: day(2024, 4, 1)}); len(got) != 0 {
		t.Errorf("wrong due date matched %d invoices", len(got))
	}
}

func TestReplaceSource_ReplacesPreviousRecords(t *testing.T) {
	db := seeded(t)
	ctx := context.Background()

	b := sampleBundle()
	b.Leases = nil
	b.Invoices[0].Items = b.Invoices[0].Items[:1]
	if err := db.ReplaceSource(ctx, "elm.yaml", "cs2", b); err != nil {
		t.Fatal(err)
	}

	if leases, _ := db.Leases(ctx, LeaseFilter{}); len(leases) != 0 {
		t.Errorf("stale leases survived: %+v", leases)
	}
	inv, _ := db.Invoices(ctx, InvoiceFilter{})
	if len(inv) != 1 || len(inv[0].Items) != 1 {
		t.Errorf("invoice items = %+v", inv)
	}
	if cs, _ := db.GetChecksum(ctx, "elm.yaml"); cs != "cs2" {
		t.Errorf("checksum = %q, want cs2", cs)
	}
}

func TestDeleteSource(t *testing.T) {
	db := seeded(t)
	ctx := context.Background()

	other := &ledger.Bundle{Users: []models.UserProfile{{ID: "u-mark", Name: "Mark"}}}
	if err := db.ReplaceSource(ctx, "people.yaml", "cs9", other); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteSource(ctx, "elm.yaml"); err != nil {
		t.Fatal(err)
	}

	counts, err := db.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for table, n := range counts {
		want := 0
		if table == "users" {
			want = 1
		}
		if n != want {
			t.Errorf("%s = %d rows, want %d", table, n, want)
		}
	}

	sources, _ := db.Sources(ctx)
	if len(sources) != 1 || sources[0].Path != "people.yaml" || sources[0].Records != 1 {
		t.Errorf("sources = %+v", sources)
	}
}

func TestSync(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_ = store.Write("people.yaml", []byte("users:\n  - id: u-ann\n    name: Ann\n"))
	_ = store.Write("broken.yaml", []byte("leases:\n  - rent_due_day: 40\n"))
	_ = store.Write("notes.txt", []byte("ignored"))

	rep, err := Sync(ctx, db, store, logger)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Imported != 1 || rep.Failed != 1 {
		t.Errorf("first sync = %+v", rep)
	}

	rep, _ = Sync(ctx, db, store, logger)
	if rep.Unchanged != 1 || rep.Imported != 0 {
		t.Errorf("second sync = %+v", rep)
	}

	_ = store.Delete("people.yaml")
	rep, _ = Sync(ctx, db, store, logger)
	if rep.Removed != 1 {
		t.Errorf("third sync = %+v", rep)
	}
	if _, err := db.GetUser(ctx, "u-ann"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("user survived file removal: %v", err)
	}
}

func TestReplaceSource_RejectsIDHeldByAnotherFile(t *testing.T) {
	db := seeded(t)
	ctx := context.Background()

	other := &ledger.Bundle{
		Users: []models.UserProfile{{ID: "u-bob", Name: "Bob"}},
		Leases: []models.Lease{{
			ID: "l-1", TenantID: "u-bob", PropertyID: "p-elm",
			StartDate: day(2024, 1, 1), EndDate: day(2024, 6, 30), RentDueDay: 15,
		}},
	}
	err := db.ReplaceSource(ctx, "other.yaml", "cs-o", other)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if cs, _ := db.GetChecksum(ctx, "other.yaml"); cs != "" {
		t.Errorf("rejected file recorded checksum %q", cs)
	}
	if _, err := db.GetUser(ctx, "u-bob"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("rejected file leaked records: %v", err)
	}
	leases, _ := db.Leases(ctx, LeaseFilter{})
	if len(leases) != 1 || leases[0].TenantID != "u-ann" {
		t.Errorf("lease taken over: %+v", leases)
	}

	if err := db.DeleteSource(ctx, "elm.yaml"); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceSource(ctx, "other.yaml", "cs-o", other); err != nil {
		t.Fatalf("released id still blocked: %v", err)
	}
	leases, _ = db.Leases(ctx, LeaseFilter{})
	if len(leases) != 1 || leases[0].TenantID != "u-bob" {
		t.Errorf("leases = %+v", leases)
	}
}

func TestSync_ConflictingFileImportsOnceHolderLeaves(t *testing.T) {
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_ = store.Write("a.yaml", []byte("users:\n  - id: u-ann\n    name: Ann A\n"))
	_ = store.Write("b.yaml", []byte("users:\n  - id: u-ann\n    name: Ann B\n  - id: u-bea\n    name: Bea\n"))

	rep, err := Sync(ctx, db, store, logger)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Imported != 1 || rep.Failed != 1 {
		t.Errorf("first sync = %+v", rep)
	}
	if u, _ := db.GetUser(ctx, "u-ann"); u == nil || u.Name != "Ann A" {
		t.Errorf("u-ann = %+v, want a.yaml's", u)
	}

	// Rewriting a.yaml without u-ann releases it within the same pass.
	_ = store.Write("a.yaml", []byte("users:\n  - id: u-al\n    name: Al\n"))
	rep, _ = Sync(ctx, db, store, logger)
	if rep.Imported != 2 || rep.Failed != 0 {
		t.Errorf("second sync = %+v", rep)
	}
	if u, _ := db.GetUser(ctx, "u-ann"); u == nil || u.Name != "Ann B" {
		t.Errorf("u-ann = %+v, want b.yaml's", u)
	}

	_ = store.Delete("a.yaml")
	rep, _ = Sync(ctx, db, store, logger)
	if rep.Removed != 1 || rep.Unchanged != 1 {
		t.Errorf("third sync = %+v", rep)
	}
	if _, err := db.GetUser(ctx, "u-bea"); err != nil {
		t.Errorf("b.yaml records lost: %v", err)
	}
}

func TestMessages_KeepWrittenOffset(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	evening := time.Date(2024, time.March, 1, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	b := &ledger.Bundle{Messages: []models.Message{{
		ID: "msg-late", UserProfileID: "u-olga", PropertyID: "p-elm", Sender: "ann@example.com",
		Headline: "Late note", CreationDate: evening, Type: models.MessageSMS,
	}}}
	if err := db.ReplaceSource(ctx, "msgs.yaml", "cs", b); err != nil {
		t.Fatal(err)
	}

	got, err := db.Messages(ctx, MessageFilter{PropertyID: "p-elm"})
	if err != nil || len(got) != 1 {
		t.Fatalf("messages = %+v, %v", got, err)
	}
	if !got[0].CreationDate.Equal(evening) {
		t.Errorf("instant = %v, want %v", got[0].CreationDate, evening)
	}
	if d := calendar.Format(calendar.Day(got[0].CreationDate)); d != "2024-03-01" {
		t.Errorf("day = %s, want the writer's 2024-03-01", d)
	}
}

func TestListingFurnishingsAccess(t *testing.T) {
	db := seeded(t)
	ctx := context.Background()

	b := &ledger.Bundle{
		Listings: []models.PropertyListing{{
			ID: "lst-elm", PropertyID: "p-elm", Rent: decimal.RequireFromString("1200.00"),
			AllowPets: true, PetRentPct: decimal.RequireFromString("2.5"), MaxPets: 2,
			Headline: "Sunny townhome", Description: "Close to the park.", ContactID: "u-olga", Active: true,
		}},
		Furnishings: []models.Furnishing{
			{ID: "f-2", OwnerID: "u-olga", PropertyID: "p-elm", Name: "Washer"},
			{ID: "f-1", OwnerID: "u-olga", PropertyID: "p-elm", Name: "Dryer"},
		},
		Access: []models.AccessControl{
			{ID: "a-1", PropertyID: "p-elm", Type: models.AccessKey, OwnerID: "u-ann"},
			{ID: "a-2", PropertyID: "p-elm", Type: models.AccessCode, OwnerID: "u-ann", Note: "1234"},
		},
	}
	if err := db.ReplaceSource(ctx, "extras.yaml", "cs-x", b); err != nil {
		t.Fatal(err)
	}

	l, err := db.Listing(ctx, "p-elm")
	if err != nil {
		t.Fatalf("Listing: %v", err)
	}
	if l.ID != "lst-elm" || !l.AllowPets || !l.Active || l.MaxPets != 2 || l.PetRent().StringFixed(2) != "30.00" {
		t.Errorf("listing = %+v", l)
	}
	if _, err := db.Listing(ctx, "p-oak"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing listing err = %v, want ErrNotFound", err)
	}

	furn, _ := db.Furnishings(ctx, "p-elm")
	if len(furn) != 2 || furn[0].Name != "Dryer" {
		t.Errorf("furnishings = %+v", furn)
	}
	access, _ := db.AccessControls(ctx, "p-elm")
	if len(access) != 2 || access[0].Type != models.AccessCode || access[0].Note != "1234" {
		t.Errorf("access = %+v", access)
	}

	// A second listing for the same property from another file is refused.
	dup := &ledger.Bundle{Listings: []models.PropertyListing{{
		ID: "lst-other", PropertyID: "p-elm", Headline: "H", Description: "D", ContactID: "u-olga",
	}}}
	if err := db.ReplaceSource(ctx, "dup.yaml", "cs-d", dup); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate listing err = %v, want ErrConflict", err)
	}

	if err := db.DeleteSource(ctx, "extras.yaml"); err != nil {
		t.Fatal(err)
	}
	if furn, _ := db.Furnishings(ctx, "p-elm"); len(furn) != 0 {
		t.Errorf("furnishings survived delete: %+v", furn)
	}
}
