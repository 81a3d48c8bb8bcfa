package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestInvoiceAmount(t *testing.T) {
	inv := Invoice{Items: []InvoiceItem{
		{Description: "Rent", Amount: decimal.RequireFromString("1200.00")},
		{Description: "Pet rent", Amount: decimal.RequireFromString("35.50")},
	}}
	if got := inv.Amount().StringFixed(2); got != "1235.50" {
		t.Errorf("Amount = %s, want 1235.50", got)
	}
	if got := (Invoice{}).Amount().StringFixed(2); got != "0.00" {
		t.Errorf("empty Amount = %s, want 0.00", got)
	}
}

func TestInvoiceCounterparty(t *testing.T) {
	inv := Invoice{PayerID: "tenant", PayeeID: "owner"}
	if got := inv.Counterparty("owner"); got != "tenant" {
		t.Errorf("payee sees %q, want tenant", got)
	}
	if got := inv.Counterparty("tenant"); got != "owner" {
		t.Errorf("payer sees %q, want owner", got)
	}
	if got := inv.Counterparty("manager"); got != "tenant" {
		t.Errorf("third party sees %q, want payer", got)
	}
}

func TestFullStreetAddress(t *testing.T) {
	p := Property{Address1: "12 Elm St", City: "Springfield", State: "IL", Zip: "62701"}
	if got := p.FullStreetAddress(); got != "12 Elm St Springfield, IL 62701" {
		t.Errorf("address = %q", got)
	}
	p.Address2 = "Apt 4"
	if got := p.FullStreetAddress(); got != "12 Elm St Apt 4 Springfield, IL 62701" {
		t.Errorf("address = %q", got)
	}
}

func TestUserContactsSkipsBlanks(t *testing.T) {
	u := UserProfile{Email: "a@example.com", Phone1: " ", Phone2: "555-0100"}
	got := u.Contacts()
	if len(got) != 2 || got[0] != "a@example.com" || got[1] != "555-0100" {
		t.Errorf("Contacts = %v", got)
	}
}

func TestListingPetRent(t *testing.T) {
	l := PropertyListing{
		Rent:        decimal.RequireFromString("1200"),
		PetRentFlat: decimal.RequireFromString("25"),
		PetRentPct:  decimal.RequireFromString("2.5"),
	}
	if got := l.PetRent().StringFixed(2); got != "55.00" {
		t.Errorf("PetRent = %s, want 55.00", got)
	}
	if got := (PropertyListing{}).PetRent().StringFixed(2); got != "0.00" {
		t.Errorf("empty PetRent = %s, want 0.00", got)
	}
}
