package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/starford/nspace/internal/apperr"
	"github.com/starford/nspace/internal/calendar"
	"github.com/starford/nspace/internal/models"
)

// where accumulates ANDed conditions and their arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) eq(col, v string) {
	if v == "" {
		return
	}
	w.conds = append(w.conds, col+" = ?")
	w.args = append(w.args, v)
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// GetProperty returns a property with its owners, or apperr.ErrNotFound.
func (db *DB) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	props, err := db.queryProperties(ctx, ` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return nil, fmt.Errorf("property %q: %w", id, apperr.ErrNotFound)
	}
	return &props[0], nil
}

// ListProperties returns all properties ordered by id.
func (db *DB) ListProperties(ctx context.Context) ([]models.Property, error) {
	return db.queryProperties(ctx, "")
}

func (db *DB) queryProperties(ctx context.Context, clause string, args ...any) ([]models.Property, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, address1, address2, city, state, zip, profile FROM properties`+clause+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("records: query properties: %w", err)
	}
	defer rows.Close()

	var out []models.Property
	for rows.Next() {
		var p models.Property
		var profile sql.NullString
		if err := rows.Scan(&p.ID, &p.Address1, &p.Address2, &p.City, &p.State, &p.Zip, &profile); err != nil {
			return nil, err
		}
		if profile.Valid && profile.String != "" {
			p.Profile = &models.PropertyProfile{}
			if err := json.Unmarshal([]byte(profile.String), p.Profile); err != nil {
				return nil, fmt.Errorf("records: decode profile %s: %w", p.ID, err)
			}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		owners, err := db.strings(ctx,
			`SELECT user_id FROM property_owners WHERE property_id = ? ORDER BY user_id`, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Owners = owners
	}
	return out, nil
}

// GetUser returns a user profile, or apperr.ErrNotFound.
func (db *DB) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	var u models.UserProfile
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, phone1, phone2 FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Phone1, &u.Phone2)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("records: get user: %w", err)
	}
	return &u, nil
}

// Users returns the profiles for ids, ordered by id. Unknown ids are skipped.
func (db *DB) Users(ctx context.Context, ids []string) ([]models.UserProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, email, phone1, phone2 FROM users WHERE id IN (`+placeholders(len(ids))+`) ORDER BY id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("records: query users: %w", err)
	}
	defer rows.Close()
	var out []models.UserProfile
	for rows.Next() {
		var u models.UserProfile
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone1, &u.Phone2); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Leases returns leases matching f, ordered by start date then id.
func (db *DB) Leases(ctx context.Context, f LeaseFilter) ([]models.Lease, error) {
	var w where
	w.eq("property_id", f.PropertyID)
	w.eq("tenant_id", f.TenantID)
	if !f.ActiveOn.IsZero() {
		d := calendar.Format(f.ActiveOn)
		w.add("start_date <= ? AND end_date >= ?", d, d)
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, tenant_id, property_id, start_date, end_date, rent_due_day, days_grace_period
		FROM leases`+w.String()+` ORDER BY start_date, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("records: query leases: %w", err)
	}
	defer rows.Close()
	var out []models.Lease
	for rows.Next() {
		var l models.Lease
		var start, end string
		if err := rows.Scan(&l.ID, &l.TenantID, &l.PropertyID, &start, &end, &l.RentDueDay, &l.DaysGracePeriod); err != nil {
			return nil, err
		}
		l.StartDate, l.EndDate = parseDate(start), parseDate(end)
		out = append(out, l)
	}
	return out, rows.Err()
}

// Contracts returns management contracts matching f, ordered by start date then id.
func (db *DB) Contracts(ctx context.Context, f ContractFilter) ([]models.ManagementContract, error) {
	var w where
	w.eq("property_id", f.PropertyID)
	w.eq("manager_id", f.ManagerID)
	if !f.ActiveOn.IsZero() {
		d := calendar.Format(f.ActiveOn)
		w.add("start_date <= ? AND end_date >= ?", d, d)
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, manager_id, owner_id, property_id, start_date, end_date
		FROM contracts`+w.String()+` ORDER BY start_date, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("records: query contracts: %w", err)
	}
	defer rows.Close()
	var out []models.ManagementContract
	for rows.Next() {
		var c models.ManagementContract
		var start, end string
		if err := rows.Scan(&c.ID, &c.ManagerID, &c.OwnerID, &c.PropertyID, &start, &end); err != nil {
			return nil, err
		}
		c.StartDate, c.EndDate = parseDate(start), parseDate(end)
		out = append(out, c)
	}
	return out, rows.Err()
}

// MaintenanceRequests returns requests matching f, ordered by creation date then id.
func (db *DB) MaintenanceRequests(ctx context.Context, f MaintenanceFilter) ([]models.MaintenanceRequest, error) {
	var w where
	w.eq("property_id", f.PropertyID)
	w.eq("assignee_id", f.AssigneeID)
	w.eq("created_by_id", f.CreatedByID)
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, property_id, created_by_id, assignee_id, headline, creation_date, assigned_date, resolution_date
		FROM maintenance_requests`+w.String()+` ORDER BY creation_date, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("records: query maintenance: %w", err)
	}
	defer rows.Close()
	var out []models.MaintenanceRequest
	for rows.Next() {
		var m models.MaintenanceRequest
		var created string
		var assigned, resolved sql.NullString
		if err := rows.Scan(&m.ID, &m.PropertyID, &m.CreatedByID, &m.AssigneeID, &m.Headline,
			&created, &assigned, &resolved); err != nil {
			return nil, err
		}
		m.CreationDate = parseDate(created)
		m.AssignedDate = parseOptDate(assigned)
		m.ResolutionDate = parseOptDate(resolved)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Messages returns messages matching f, ordered by creation time then id.
func (db *DB) Messages(ctx context.Context, f MessageFilter) ([]models.Message, error) {
	var w where
	w.eq("m.property_id", f.PropertyID)
	w.eq("m.user_profile_id", f.UserProfileID)
	if len(f.Contacts) > 0 {
		args := make([]any, 0, 2*len(f.Contacts))
		for _, c := range f.Contacts {
			args = append(args, c)
		}
		args = append(args, args...)
		ph := placeholders(len(f.Contacts))
		w.add(`(m.sender IN (`+ph+`) OR EXISTS (
			SELECT 1 FROM message_recipients r WHERE r.message_id = m.id AND r.recipient IN (`+ph+`)))`, args...)
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT m.id, m.user_profile_id, m.property_id, m.sender, m.headline, m.creation_date, m.type
		FROM messages m`+w.String()+` ORDER BY m.creation_date, m.id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("records: query messages: %w", err)
	}
	defer rows.Close()
	var out []models.Message
	for rows.Next() {
		var m models.Message
		var created string
		if err := rows.Scan(&m.ID, &m.UserProfileID, &m.PropertyID, &m.Sender, &m.Headline, &created, &m.Type); err != nil {
			return nil, err
		}
		m.CreationDate, _ = time.Parse(time.RFC3339, created)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		recipients, err := db.strings(ctx,
			`SELECT recipient FROM message_recipients WHERE message_id = ? ORDER BY rowid`, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Recipients = recipients
	}
	return out, nil
}

// Invoices returns invoices matching f with their items, ordered by issued
// date then id.
func (db *DB) Invoices(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error) {
	var w where
	w.eq("property_id", f.PropertyID)
	w.eq("type", f.Type)
	w.eq("payer_id", f.PayerID)
	if f.PartyID != "" {
		w.add("(payer_id = ? OR payee_id = ?)", f.PartyID, f.PartyID)
	}
	if !f.DueOn.IsZero() {
		w.add("due_date = ?", calendar.Format(f.DueOn))
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, type, payer_id, payee_id, property_id, issued_date, due_date, paid_date
		FROM invoices`+w.String()+` ORDER BY issued_date, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("records: query invoices: %w", err)
	}
	defer rows.Close()
	var out []models.Invoice
	for rows.Next() {
		var inv models.Invoice
		var issued string
		var due, paid sql.NullString
		if err := rows.Scan(&inv.ID, &inv.Type, &inv.PayerID, &inv.PayeeID, &inv.PropertyID,
			&issued, &due, &paid); err != nil {
			return nil, err
		}
		inv.IssuedDate = parseDate(issued)
		inv.DueDate = parseOptDate(due)
		inv.PaidDate = parseOptDate(paid)
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := db.invoiceItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (db *DB) invoiceItems(ctx context.Context, invoiceID string) ([]models.InvoiceItem, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT description, amount FROM invoice_items WHERE invoice_id = ? ORDER BY position`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("records: query invoice items: %w", err)
	}
	defer rows.Close()
	var out []models.InvoiceItem
	for rows.Next() {
		var it models.InvoiceItem
		var amount string
		if err := rows.Scan(&it.Description, &amount); err != nil {
			return nil, err
		}
		if it.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("records: invoice %s amount %q: %w", invoiceID, amount, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (db *DB) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("records: query: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Stored values were formatted by this package, so parse failures yield
// the zero time.
func parseDate(s string) time.Time {
	d, _ := calendar.ParseDate(s)
	return d
}

func parseOptDate(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	d := parseDate(s.String)
	return &d
}
