// Package ledger decodes and validates YAML ledger files.
//
// A ledger file is a YAML mapping with optional top-level lists:
// users, properties, leases, contracts, maintenance, messages, invoices,
// listings, furnishings, access.
// Records in one file may reference records defined in any other file.
package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/starford/nspace/internal/calendar"
	"github.com/starford/nspace/internal/models"
)

// idNamespace seeds derived record ids.
var idNamespace = uuid.MustParse("5b0f8a3e-0d4c-4b57-9c1e-6f2f3b8f7a10")

// Bundle is the decoded content of one ledger file.
type Bundle struct {
	Users       []models.UserProfile
	Properties  []models.Property
	Leases      []models.Lease
	Contracts   []models.ManagementContract
	Maintenance []models.MaintenanceRequest
	Messages    []models.Message
	Invoices    []models.Invoice
	Listings    []models.PropertyListing
	Furnishings []models.Furnishing
	Access      []models.AccessControl
}

// Len returns the total number of records in the bundle.
func (b *Bundle) Len() int {
	return len(b.Users) + len(b.Properties) + len(b.Leases) + len(b.Contracts) +
		len(b.Maintenance) + len(b.Messages) + len(b.Invoices) +
		len(b.Listings) + len(b.Furnishings) + len(b.Access)
}

type document struct {
	Users       []userDoc        `yaml:"users"`
	Properties  []propertyDoc    `yaml:"properties"`
	Leases      []leaseDoc       `yaml:"leases"`
	Contracts   []contractDoc    `yaml:"contracts"`
	Maintenance []maintenanceDoc `yaml:"maintenance"`
	Messages    []messageDoc     `yaml:"messages"`
	Invoices    []invoiceDoc     `yaml:"invoices"`
	Listings    []listingDoc     `yaml:"listings"`
	Furnishings []furnishingDoc  `yaml:"furnishings"`
	Access      []accessDoc      `yaml:"access"`
}

// Parse decodes a ledger file. path is the file's ledger-relative path and
// seeds the ids of records that do not declare one, so re-parsing the same
// file yields the same ids.
func Parse(path string, data []byte) (*Bundle, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &Bundle{}, nil
		}
		return nil, fmt.Errorf("ledger: decode %s: %w", path, err)
	}

	b := &Bundle{}
	ids := idDeriver{path: path}

	for i := range doc.Users {
		u := &doc.Users[i]
		if err := u.Validate(); err != nil {
			return nil, recordErr(path, "users", i, err)
		}
		b.Users = append(b.Users, u.model())
	}
	for i := range doc.Properties {
		p := &doc.Properties[i]
		if err := p.Validate(); err != nil {
			return nil, recordErr(path, "properties", i, err)
		}
		b.Properties = append(b.Properties, p.model())
	}
	for i := range doc.Leases {
		l := &doc.Leases[i]
		if err := l.Validate(); err != nil {
			return nil, recordErr(path, "leases", i, err)
		}
		b.Leases = append(b.Leases, l.model(ids.get(l.ID, "leases", i)))
	}
	for i := range doc.Contracts {
		c := &doc.Contracts[i]
		if err := c.Validate(); err != nil {
			return nil, recordErr(path, "contracts", i, err)
		}
		b.Contracts = append(b.Contracts, c.model(ids.get(c.ID, "contracts", i)))
	}
	for i := range doc.Maintenance {
		m := &doc.Maintenance[i]
		if err := m.Validate(); err != nil {
			return nil, recordErr(path, "maintenance", i, err)
		}
		b.Maintenance = append(b.Maintenance, m.model(ids.get(m.ID, "maintenance", i)))
	}
	for i := range doc.Messages {
		m := &doc.Messages[i]
		if err := m.Validate(); err != nil {
			return nil, recordErr(path, "messages", i, err)
		}
		b.Messages = append(b.Messages, m.model(ids.get(m.ID, "messages", i)))
	}
	for i := range doc.Invoices {
		inv := &doc.Invoices[i]
		if err := inv.Validate(); err != nil {
			return nil, recordErr(path, "invoices", i, err)
		}
		b.Invoices = append(b.Invoices, inv.model(ids.get(inv.ID, "invoices", i)))
	}
	for i := range doc.Listings {
		l := &doc.Listings[i]
		if err := l.Validate(); err != nil {
			return nil, recordErr(path, "listings", i, err)
		}
		b.Listings = append(b.Listings, l.model(ids.get(l.ID, "listings", i)))
	}
	for i := range doc.Furnishings {
		f := &doc.Furnishings[i]
		if err := f.Validate(); err != nil {
			return nil, recordErr(path, "furnishings", i, err)
		}
		b.Furnishings = append(b.Furnishings, f.model(ids.get(f.ID, "furnishings", i)))
	}
	for i := range doc.Access {
		a := &doc.Access[i]
		if err := a.Validate(); err != nil {
			return nil, recordErr(path, "access", i, err)
		}
		b.Access = append(b.Access, a.model(ids.get(a.ID, "access", i)))
	}
	return b, nil
}

func recordErr(path, kind string, i int, err error) error {
	return fmt.Errorf("ledger: %s: %s[%d]: %w", path, kind, i, err)
}

type idDeriver struct {
	path string
}

func (d idDeriver) get(declared, kind string, i int) string {
	if id := strings.TrimSpace(declared); id != "" {
		return id
	}
	return uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%s#%s/%d", d.path, kind, i))).String()
}

// The helpers below run after validation, so parse errors cannot occur.

func mustDate(s string) time.Time {
	d, _ := calendar.ParseDate(s)
	return d
}

func optDate(s string) *time.Time {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	d := mustDate(s)
	return &d
}

func mustTimestamp(s string) time.Time {
	t, _ := calendar.ParseTimestamp(s)
	return t
}

func optDecimal(s string) decimal.Decimal {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero
	}
	d, _ := decimal.NewFromString(strings.TrimSpace(s))
	return d
}
