package mcpserver

// LedgerFormatContract describes the YAML ledger format that LLM consumers
// should follow when they draft ledger files for a human to commit.
const LedgerFormatContract = `# nspace Ledger Format

A ledger is a directory of YAML files (` + "`.yaml`" + ` or ` + "`.yml`" + `). Every file is a
mapping with any of these top-level lists. Records may reference records
defined in other files by id.

` + "```" + `yaml
users:
  - id: u-ann                 # REQUIRED
    name: Ann Tenant          # REQUIRED
    email: ann@example.com    # used to match messages
    phone1: "555-0100"
    phone2: ""

properties:
  - id: p-elm                 # REQUIRED
    address1: 12 Elm St       # REQUIRED
    address2: Unit 4
    city: Springfield         # REQUIRED
    state: IL
    zip: "62701"
    owners: [u-olga]
    profile:
      type: townhome          # townhome | apartment | single_family | condo
      bedrooms: 3
      baths: 2.5
      parking: garage         # garage | street | covered | none
      sqft: 1450
      lot_size_acres: 0.125
      images:
        - link: https://example.com/elm.jpg
          caption: Front

leases:
  - id: l-ann                 # optional, derived from file path and position
    tenant: u-ann
    property: p-elm
    start_date: 2024-01-01
    end_date: 2024-12-31      # on or after start_date
    rent_due_day: 1           # 1-31; short months use their last day
    days_grace_period: 5

contracts:
  - manager: u-mark
    owner: u-olga
    property: p-elm
    start_date: 2023-06-01
    end_date: 2025-05-31

maintenance:
  - property: p-elm
    created_by: u-ann
    assignee: u-mark
    headline: Leaky faucet
    creation_date: 2024-02-01
    assigned_date: 2024-02-02
    resolution_date: 2024-02-10

messages:
  - user_profile: u-olga      # whose mailbox the message was captured in
    property: p-elm
    sender: ann@example.com
    recipients: [olga@example.com]
    headline: Faucet
    creation_date: 2024-02-01T09:30:00Z
    type: Email               # Email | Tweet | SMS | ...

invoices:
  - id: inv-mar
    type: Rent
    payer: u-ann
    payee: u-olga
    property: p-elm
    issued_date: 2024-02-20
    due_date: 2024-03-01
    paid_date: 2024-03-02
    items:
      - description: March rent
        amount: "1200.00"

listings:
  - id: lst-elm
    property: p-elm           # REQUIRED, one listing per property
    rent: "1200.00"
    allow_pets: true          # defaults to true
    pet_fee_flat: "250.00"
    pet_rent_flat: "25.00"
    pet_rent_pct: "2.5"       # percent of rent added to pet_rent_flat
    max_pets: 2
    furnished: false
    headline: Sunny townhome  # REQUIRED
    description: Two floors   # REQUIRED
    contact: u-mark           # REQUIRED
    active: true

furnishings:
  - owner: u-olga             # REQUIRED
    property: p-elm           # REQUIRED
    name: Washer              # REQUIRED
    image: https://example.com/washer.jpg

access:
  - property: p-elm           # REQUIRED
    type: key                 # key | code | garage_opener
    owner: u-olga             # REQUIRED
    note: front door
` + "```" + `

## Rules

1. Dates are ` + "`YYYY-MM-DD`" + `. Message creation dates may carry a time (RFC 3339);
   the offset is kept and the message counts on the writer's calendar day.
2. Amounts are decimal numbers; quote them to keep trailing zeros.
3. Unknown keys are rejected, and so is the whole file.
4. A file that fails validation keeps its previously imported records until fixed.
5. Rent status looks for an invoice of type ` + "`Rent`" + ` paid by the tenant whose
   ` + "`due_date`" + ` equals the most recent due date. Without one the status is ` + "`!!`" + `.
6. An id belongs to the first file that imported it. A second file reusing it is
   rejected until the first file drops the record or is deleted.
`
