// Package records is the SQLite-backed record store. It holds the records
// imported from the ledger and answers the filtered lookups the property
// core needs.
package records

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Dates are stored as YYYY-MM-DD text and message timestamps as RFC 3339
// text. Column types stay TEXT so the driver never converts them to time.Time.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS sources (
	path      TEXT PRIMARY KEY,
	checksum  TEXT NOT NULL DEFAULT '',
	records   INTEGER NOT NULL DEFAULT 0,
	synced_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS users (
	id     TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	name   TEXT NOT NULL DEFAULT '',
	email  TEXT NOT NULL DEFAULT '',
	phone1 TEXT NOT NULL DEFAULT '',
	phone2 TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS properties (
	id       TEXT PRIMARY KEY,
	source   TEXT NOT NULL,
	address1 TEXT NOT NULL DEFAULT '',
	address2 TEXT NOT NULL DEFAULT '',
	city     TEXT NOT NULL DEFAULT '',
	state    TEXT NOT NULL DEFAULT '',
	zip      TEXT NOT NULL DEFAULT '',
	profile  TEXT
);

CREATE TABLE IF NOT EXISTS property_owners (
	property_id TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	source      TEXT NOT NULL,
	UNIQUE(property_id, user_id)
);

CREATE TABLE IF NOT EXISTS leases (
	id                TEXT PRIMARY KEY,
	source            TEXT NOT NULL,
	tenant_id         TEXT NOT NULL,
	property_id       TEXT NOT NULL,
	start_date        TEXT NOT NULL,
	end_date          TEXT NOT NULL,
	rent_due_day      INTEGER NOT NULL,
	days_grace_period INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS contracts (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	manager_id  TEXT NOT NULL,
	owner_id    TEXT NOT NULL,
	property_id TEXT NOT NULL,
	start_date  TEXT NOT NULL,
	end_date    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS maintenance_requests (
	id              TEXT PRIMARY KEY,
	source          TEXT NOT NULL,
	property_id     TEXT NOT NULL,
	created_by_id   TEXT NOT NULL,
	assignee_id     TEXT NOT NULL DEFAULT '',
	headline        TEXT NOT NULL DEFAULT '',
	creation_date   TEXT NOT NULL,
	assigned_date   TEXT,
	resolution_date TEXT
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	source          TEXT NOT NULL,
	user_profile_id TEXT NOT NULL,
	property_id     TEXT NOT NULL,
	sender          TEXT NOT NULL,
	headline        TEXT NOT NULL DEFAULT '',
	creation_date   TEXT NOT NULL,
	type            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS message_recipients (
	message_id TEXT NOT NULL,
	recipient  TEXT NOT NULL,
	UNIQUE(message_id, recipient)
);

CREATE TABLE IF NOT EXISTS invoices (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	type        TEXT NOT NULL,
	payer_id    TEXT NOT NULL,
	payee_id    TEXT NOT NULL,
	property_id TEXT NOT NULL,
	issued_date TEXT NOT NULL,
	due_date    TEXT,
	paid_date   TEXT
);

CREATE TABLE IF NOT EXISTS invoice_items (
	invoice_id  TEXT NOT NULL,
	position    INTEGER NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	amount      TEXT NOT NULL DEFAULT '0',
	UNIQUE(invoice_id, position)
);

CREATE TABLE IF NOT EXISTS listings (
	id                    TEXT PRIMARY KEY,
	source                TEXT NOT NULL,
	property_id           TEXT NOT NULL UNIQUE,
	rent                  TEXT NOT NULL DEFAULT '0',
	allow_pets            INTEGER NOT NULL DEFAULT 1,
	pet_fee_flat          TEXT NOT NULL DEFAULT '0',
	pet_fee_pct           TEXT NOT NULL DEFAULT '0',
	pet_rent_flat         TEXT NOT NULL DEFAULT '0',
	pet_rent_pct          TEXT NOT NULL DEFAULT '0',
	max_pets              INTEGER NOT NULL DEFAULT 0,
	furnished             INTEGER NOT NULL DEFAULT 0,
	headline              TEXT NOT NULL DEFAULT '',
	subheadline           TEXT NOT NULL DEFAULT '',
	description           TEXT NOT NULL DEFAULT '',
	location_description  TEXT NOT NULL DEFAULT '',
	amenities_description TEXT NOT NULL DEFAULT '',
	contact_id            TEXT NOT NULL,
	active                INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS furnishings (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	owner_id    TEXT NOT NULL,
	property_id TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	image       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS access_controls (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	property_id TEXT NOT NULL,
	type        TEXT NOT NULL,
	owner_id    TEXT NOT NULL,
	note        TEXT NOT NULL DEFAULT '',
	image       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_leases_property ON leases(property_id);
CREATE INDEX IF NOT EXISTS idx_leases_tenant ON leases(tenant_id);
CREATE INDEX IF NOT EXISTS idx_contracts_property ON contracts(property_id);
CREATE INDEX IF NOT EXISTS idx_maintenance_property ON maintenance_requests(property_id);
CREATE INDEX IF NOT EXISTS idx_messages_property_user ON messages(property_id, user_profile_id);
CREATE INDEX IF NOT EXISTS idx_recipients_recipient ON message_recipients(recipient);
CREATE INDEX IF NOT EXISTS idx_invoices_property ON invoices(property_id);
CREATE INDEX IF NOT EXISTS idx_invoices_due ON invoices(type, payer_id, due_date);
CREATE INDEX IF NOT EXISTS idx_furnishings_property ON furnishings(property_id);
CREATE INDEX IF NOT EXISTS idx_access_property ON access_controls(property_id);
`

// recordTables lists the tables that carry a source column.
var recordTables = []string{
	"users", "properties", "property_owners", "leases", "contracts",
	"maintenance_requests", "messages", "invoices",
	"listings", "furnishings", "access_controls",
}

// DB wraps a sql.DB with record-store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("records: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("records: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("records: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
