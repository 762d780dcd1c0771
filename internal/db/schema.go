package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs (
    id                 TEXT PRIMARY KEY,
    name               TEXT NOT NULL,
    stage              TEXT NOT NULL DEFAULT 'intake'
        CHECK (stage IN ('intake', 'online_sale', 'estate_sale', 'donation', 'haul', 'complete')),
    online_sale_active INTEGER NOT NULL DEFAULT 0,
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id               TEXT PRIMARY KEY,
    job_id           TEXT NOT NULL REFERENCES jobs(id),
    status           TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'needs_review', 'approved')),
    reopen_reason    TEXT NOT NULL DEFAULT '',
    next_item_number INTEGER NOT NULL DEFAULT 1 CHECK (next_item_number > 0),
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Photos are append-only: rows are inserted, never updated or deleted.
CREATE TABLE IF NOT EXISTS photos (
    item_id    TEXT NOT NULL REFERENCES items(id),
    idx        INTEGER NOT NULL CHECK (idx >= 0),
    url        TEXT NOT NULL,
    object_key TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (item_id, idx)
);

CREATE TABLE IF NOT EXISTS photo_groups (
    item_id     TEXT NOT NULL REFERENCES items(id),
    item_number INTEGER NOT NULL CHECK (item_number > 0),
    start_index INTEGER NOT NULL,
    end_index   INTEGER NOT NULL,
    title       TEXT NOT NULL,
    PRIMARY KEY (item_id, item_number),
    CHECK (end_index >= start_index)
);

-- A group is analyzed iff it has a proposal row.
CREATE TABLE IF NOT EXISTS proposals (
    item_id        TEXT NOT NULL,
    item_number    INTEGER NOT NULL,
    position       INTEGER NOT NULL,
    photo_indices  TEXT NOT NULL DEFAULT '[]',
    title          TEXT NOT NULL DEFAULT '',
    description    TEXT NOT NULL DEFAULT '',
    category       TEXT NOT NULL DEFAULT '',
    price          REAL NOT NULL DEFAULT 0,
    price_low      REAL NOT NULL DEFAULT 0,
    price_high     REAL NOT NULL DEFAULT 0,
    length         REAL NOT NULL DEFAULT 0,
    width          REAL NOT NULL DEFAULT 0,
    height         REAL NOT NULL DEFAULT 0,
    dimension_unit TEXT NOT NULL DEFAULT '',
    weight         REAL NOT NULL DEFAULT 0,
    weight_unit    TEXT NOT NULL DEFAULT '',
    material       TEXT NOT NULL DEFAULT '',
    tags           TEXT NOT NULL DEFAULT '[]',
    confidence     REAL NOT NULL DEFAULT 0,
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (item_id, item_number),
    FOREIGN KEY (item_id, item_number) REFERENCES photo_groups(item_id, item_number)
);

CREATE TABLE IF NOT EXISTS approved_items (
    item_id           TEXT NOT NULL,
    item_number       INTEGER NOT NULL,
    position          INTEGER NOT NULL,
    photo_indices     TEXT NOT NULL DEFAULT '[]',
    title             TEXT NOT NULL DEFAULT '',
    description       TEXT NOT NULL DEFAULT '',
    category          TEXT NOT NULL DEFAULT '',
    price             REAL NOT NULL CHECK (price > 0),
    length            REAL NOT NULL DEFAULT 0,
    width             REAL NOT NULL DEFAULT 0,
    height            REAL NOT NULL DEFAULT 0,
    dimension_unit    TEXT NOT NULL DEFAULT '',
    weight            REAL NOT NULL DEFAULT 0,
    weight_unit       TEXT NOT NULL DEFAULT '',
    material          TEXT NOT NULL DEFAULT '',
    tags              TEXT NOT NULL DEFAULT '[]',
    estate_sale_price REAL CHECK (estate_sale_price IS NULL OR estate_sale_price > 0),
    approved_by       TEXT NOT NULL DEFAULT '',
    approved_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (item_id, item_number),
    FOREIGN KEY (item_id, item_number) REFERENCES proposals(item_id, item_number)
);

-- One row per disposed photo keeps the three sets mutually exclusive.
CREATE TABLE IF NOT EXISTS dispositions (
    item_id     TEXT NOT NULL,
    photo_index INTEGER NOT NULL,
    kind        TEXT NOT NULL CHECK (kind IN ('sold', 'donated', 'hauled')),
    item_number INTEGER NOT NULL,
    marked_by   TEXT NOT NULL DEFAULT '',
    marked_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (item_id, photo_index),
    FOREIGN KEY (item_id, photo_index) REFERENCES photos(item_id, idx)
);

CREATE TABLE IF NOT EXISTS item_events (
    id         INTEGER PRIMARY KEY,
    item_id    TEXT NOT NULL REFERENCES items(id),
    kind       TEXT NOT NULL,
    actor      TEXT NOT NULL DEFAULT '',
    detail     TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS photo_blobs (
    key        TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    mime       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
