package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/nspace/internal/apperr"
	"github.com/starford/nspace/internal/calendar"
	"github.com/starford/nspace/internal/ledger"
)

// SourceInfo describes one imported ledger file.
type SourceInfo struct {
	Path     string    `json:"path"`
	Checksum string    `json:"checksum"`
	Records  int       `json:"records"`
	SyncedAt time.Time `json:"synced_at"`
}

// ReplaceSource swaps every record imported from path for the records in b,
// within a transaction. Each record id belongs to the file that imported it
// first: if b defines an id another file already holds, nothing changes and
// the error wraps apperr.ErrConflict. The file imports once the holder drops
// the id.
func (db *DB) ReplaceSource(ctx context.Context, path, checksum string, b *ledger.Bundle) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("records: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := checkClaims(ctx, tx, path, b); err != nil {
		return err
	}
	if err := deleteSource(ctx, tx, path); err != nil {
		return err
	}
	if err := insertBundle(ctx, tx, path, b); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sources (path, checksum, records, synced_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum  = excluded.checksum,
			records   = excluded.records,
			synced_at = excluded.synced_at
	`, path, checksum, b.Len(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("records: upsert source: %w", err)
	}
	return tx.Commit()
}

// DeleteSource removes every record imported from path.
func (db *DB) DeleteSource(ctx context.Context, path string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("records: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteSource(ctx, tx, path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE path = ?`, path); err != nil {
		return fmt.Errorf("records: delete source: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a ledger file, or "" if it
// has not been imported.
func (db *DB) GetChecksum(ctx context.Context, path string) (string, error) {
	var cs string
	err := db.conn.QueryRowContext(ctx, `SELECT checksum FROM sources WHERE path = ?`, path).Scan(&cs)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("records: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every imported ledger file.
func (db *DB) AllChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT path, checksum FROM sources`)
	if err != nil {
		return nil, fmt.Errorf("records: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Sources lists imported ledger files ordered by path.
func (db *DB) Sources(ctx context.Context) ([]SourceInfo, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT path, checksum, records, synced_at FROM sources ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("records: sources: %w", err)
	}
	defer rows.Close()
	var out []SourceInfo
	for rows.Next() {
		var s SourceInfo
		var synced string
		if err := rows.Scan(&s.Path, &s.Checksum, &s.Records, &synced); err != nil {
			return nil, err
		}
		s.SyncedAt, _ = time.Parse(time.RFC3339, synced)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Counts returns the number of rows per record table.
func (db *DB) Counts(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, len(recordTables))
	for _, table := range recordTables {
		var n int
		// table names come from the fixed list above
		if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("records: count %s: %w", table, err)
		}
		out[table] = n
	}
	return out, nil
}

func deleteSource(ctx context.Context, tx *sql.Tx, path string) error {
	children := []string{
		`DELETE FROM message_recipients WHERE message_id IN (SELECT id FROM messages WHERE source = ?)`,
		`DELETE FROM invoice_items WHERE invoice_id IN (SELECT id FROM invoices WHERE source = ?)`,
	}
	for _, q := range children {
		if _, err := tx.ExecContext(ctx, q, path); err != nil {
			return fmt.Errorf("records: delete children: %w", err)
		}
	}
	for _, table := range recordTables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE source = ?`, path); err != nil {
			return fmt.Errorf("records: delete %s: %w", table, err)
		}
	}
	return nil
}

func insertBundle(ctx context.Context, tx *sql.Tx, source string, b *ledger.Bundle) error {
	for _, u := range b.Users {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, source, name, email, phone1, phone2)
			VALUES (?, ?, ?, ?, ?, ?)
		`, u.ID, source, u.Name, u.Email, u.Phone1, u.Phone2)
		if err != nil {
			return fmt.Errorf("records: insert user %s: %w", u.ID, err)
		}
	}

	for _, p := range b.Properties {
		var profile sql.NullString
		if p.Profile != nil {
			raw, err := json.Marshal(p.Profile)
			if err != nil {
				return fmt.Errorf("records: encode profile %s: %w", p.ID, err)
			}
			profile = sql.NullString{String: string(raw), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO properties (id, source, address1, address2, city, state, zip, profile)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, source, p.Address1, p.Address2, p.City, p.State, p.Zip, profile)
		if err != nil {
			return fmt.Errorf("records: insert property %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM property_owners WHERE property_id = ?`, p.ID); err != nil {
			return fmt.Errorf("records: reset owners %s: %w", p.ID, err)
		}
		for _, owner := range p.Owners {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO property_owners (property_id, user_id, source) VALUES (?, ?, ?)`,
				p.ID, owner, source); err != nil {
				return fmt.Errorf("records: insert owner %s: %w", p.ID, err)
			}
		}
	}

	for _, l := range b.Leases {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO leases (id, source, tenant_id, property_id, start_date, end_date, rent_due_day, days_grace_period)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, l.ID, source, l.TenantID, l.PropertyID, calendar.Format(l.StartDate), calendar.Format(l.EndDate),
			l.RentDueDay, l.DaysGracePeriod)
		if err != nil {
			return fmt.Errorf("records: insert lease %s: %w", l.ID, err)
		}
	}

	for _, c := range b.Contracts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO contracts (id, source, manager_id, owner_id, property_id, start_date, end_date)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.ID, source, c.ManagerID, c.OwnerID, c.PropertyID, calendar.Format(c.StartDate), calendar.Format(c.EndDate))
		if err != nil {
			return fmt.Errorf("records: insert contract %s: %w", c.ID, err)
		}
	}

	for _, m := range b.Maintenance {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO maintenance_requests (id, source, property_id, created_by_id, assignee_id, headline,
				creation_date, assigned_date, resolution_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, m.ID, source, m.PropertyID, m.CreatedByID, m.AssigneeID, m.Headline,
			calendar.Format(m.CreationDate), nullDate(m.AssignedDate), nullDate(m.ResolutionDate))
		if err != nil {
			return fmt.Errorf("records: insert maintenance request %s: %w", m.ID, err)
		}
	}

	for _, m := range b.Messages {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, source, user_profile_id, property_id, sender, headline, creation_date, type)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, m.ID, source, m.UserProfileID, m.PropertyID, m.Sender, m.Headline,
			m.CreationDate.Format(time.RFC3339), m.Type)
		if err != nil {
			return fmt.Errorf("records: insert message %s: %w", m.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM message_recipients WHERE message_id = ?`, m.ID); err != nil {
			return fmt.Errorf("records: reset recipients %s: %w", m.ID, err)
		}
		for _, r := range m.Recipients {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO message_recipients (message_id, recipient) VALUES (?, ?)`, m.ID, r); err != nil {
				return fmt.Errorf("records: insert recipient %s: %w", m.ID, err)
			}
		}
	}

	for _, inv := range b.Invoices {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO invoices (id, source, type, payer_id, payee_id, property_id, issued_date, due_date, paid_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, inv.ID, source, inv.Type, inv.PayerID, inv.PayeeID, inv.PropertyID,
			calendar.Format(inv.IssuedDate), nullDate(inv.DueDate), nullDate(inv.PaidDate))
		if err != nil {
			return fmt.Errorf("records: insert invoice %s: %w", inv.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = ?`, inv.ID); err != nil {
			return fmt.Errorf("records: reset items %s: %w", inv.ID, err)
		}
		for i, it := range inv.Items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO invoice_items (invoice_id, position, description, amount) VALUES (?, ?, ?, ?)`,
				inv.ID, i, it.Description, it.Amount.String()); err != nil {
				return fmt.Errorf("records: insert item %s: %w", inv.ID, err)
			}
		}
	}
	for _, l := range b.Listings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO listings (id, source, property_id, rent, allow_pets, pet_fee_flat, pet_fee_pct,
				pet_rent_flat, pet_rent_pct, max_pets, furnished, headline, subheadline, description,
				location_description, amenities_description, contact_id, active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, l.ID, source, l.PropertyID, l.Rent.String(), l.AllowPets, l.PetFeeFlat.String(), l.PetFeePct.String(),
			l.PetRentFlat.String(), l.PetRentPct.String(), l.MaxPets, l.Furnished, l.Headline, l.Subheadline,
			l.Description, l.LocationDescription, l.AmenitiesDescription, l.ContactID, l.Active)
		if err != nil {
			return fmt.Errorf("records: insert listing %s: %w", l.ID, err)
		}
	}

	for _, f := range b.Furnishings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO furnishings (id, source, owner_id, property_id, name, description, image)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, f.ID, source, f.OwnerID, f.PropertyID, f.Name, f.Description, f.Image)
		if err != nil {
			return fmt.Errorf("records: insert furnishing %s: %w", f.ID, err)
		}
	}

	for _, a := range b.Access {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO access_controls (id, source, property_id, type, owner_id, note, image)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, a.ID, source, a.PropertyID, a.Type, a.OwnerID, a.Note, a.Image)
		if err != nil {
			return fmt.Errorf("records: insert access control %s: %w", a.ID, err)
		}
	}
	return nil
}

func nullDate(d *time.Time) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: calendar.Format(*d), Valid: true}
}

// claim is a set of keys a bundle defines in one unique column.
type claim struct {
	kind   string
	table  string
	column string
	keys   []string
}

func bundleClaims(b *ledger.Bundle) []claim {
	ids := func(n int, id func(int) string) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = id(i)
		}
		return out
	}
	return []claim{
		{"user", "users", "id", ids(len(b.Users), func(i int) string { return b.Users[i].ID })},
		{"property", "properties", "id", ids(len(b.Properties), func(i int) string { return b.Properties[i].ID })},
		{"lease", "leases", "id", ids(len(b.Leases), func(i int) string { return b.Leases[i].ID })},
		{"contract", "contracts", "id", ids(len(b.Contracts), func(i int) string { return b.Contracts[i].ID })},
		{"maintenance request", "maintenance_requests", "id", ids(len(b.Maintenance), func(i int) string { return b.Maintenance[i].ID })},
		{"message", "messages", "id", ids(len(b.Messages), func(i int) string { return b.Messages[i].ID })},
		{"invoice", "invoices", "id", ids(len(b.Invoices), func(i int) string { return b.Invoices[i].ID })},
		{"listing", "listings", "id", ids(len(b.Listings), func(i int) string { return b.Listings[i].ID })},
		{"listing for property", "listings", "property_id", ids(len(b.Listings), func(i int) string { return b.Listings[i].PropertyID })},
		{"furnishing", "furnishings", "id", ids(len(b.Furnishings), func(i int) string { return b.Furnishings[i].ID })},
		{"access control", "access_controls", "id", ids(len(b.Access), func(i int) string { return b.Access[i].ID })},
	}
}

// claimChunk stays under SQLite's host parameter limit.
const claimChunk = 500

// checkClaims fails when another source already holds a key b defines.
func checkClaims(ctx context.Context, tx *sql.Tx, path string, b *ledger.Bundle) error {
	for _, c := range bundleClaims(b) {
		for start := 0; start < len(c.keys); start += claimChunk {
			chunk := c.keys[start:min(start+claimChunk, len(c.keys))]
			args := make([]any, 0, len(chunk)+1)
			args = append(args, path)
			for _, k := range chunk {
				args = append(args, k)
			}
			// table and column come from bundleClaims
			var key, holder string
			err := tx.QueryRowContext(ctx,
				`SELECT `+c.column+`, source FROM `+c.table+
					` WHERE source != ? AND `+c.column+` IN (`+placeholders(len(chunk))+`) LIMIT 1`,
				args...).Scan(&key, &holder)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return fmt.Errorf("records: check %s ids: %w", c.kind, err)
			}
			return fmt.Errorf("records: %s %q is already defined in %s: %w", c.kind, key, holder, apperr.ErrConflict)
		}
	}
	return nil
}
