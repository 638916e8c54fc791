// Package store persists proofing projects, their pages and revisions, and
// published texts in a SQLite database.
//
// Build modes follow the usual dual-driver arrangement:
//   - Default (CGO_ENABLED=0): pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): mattn/go-sqlite3
//
// Revision content is NFC-normalized before it is written, and every revision
// and published block carries a BLAKE3 content hash so that no-op saves and
// publish diffs can compare without loading content.
package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/TulsiPress/internal/logging"
)

// ProjectStatus describes the lifecycle state of a proofing project.
type ProjectStatus string

const (
	// ProjectActive projects are generally available for editing.
	ProjectActive ProjectStatus = "active"
	// ProjectPending projects are uploaded but need review first.
	ProjectPending ProjectStatus = "pending"
	// ProjectClosed projects are no longer editable.
	ProjectClosed ProjectStatus = "closed"
)

var validProjectStatuses = map[ProjectStatus]bool{
	ProjectActive:  true,
	ProjectPending: true,
	ProjectClosed:  true,
}

// IsValid reports whether the status is a known project status.
func (s ProjectStatus) IsValid() bool {
	return validProjectStatuses[s]
}

// PageStatus describes how far a page has been proofread.
type PageStatus string

const (
	// PageR0 pages have not been proofread at all.
	PageR0 PageStatus = "reviewed-0"
	// PageR1 pages have been proofread once.
	PageR1 PageStatus = "reviewed-1"
	// PageR2 pages have been proofread twice.
	PageR2 PageStatus = "reviewed-2"
	// PageSkipped pages contain no usable content (blank pages, plates).
	PageSkipped PageStatus = "skipped"
)

var validPageStatuses = map[PageStatus]bool{
	PageR0:      true,
	PageR1:      true,
	PageR2:      true,
	PageSkipped: true,
}

// IsValid reports whether the status is a known page status.
func (s PageStatus) IsValid() bool {
	return validPageStatuses[s]
}

// Project is one proofing project: a scanned book being transcribed.
type Project struct {
	Slug            string
	UUID            string
	DisplayTitle    string
	PrintTitle      string
	Author          string
	Editor          string
	Publisher       string
	PublicationYear string
	WorldcatLink    string
	Description     string
	Notes           string
	PageNumbers     string
	ConfigYAML      string
	Status          ProjectStatus
	CreatedAt       string
}

// Page is one page of a project.
type Page struct {
	Slug    string
	Ordinal int
	Version int
	Status  PageStatus
}

// Revision is one saved version of a page's content.
type Revision struct {
	ID        int64
	Content   string
	Summary   string
	Author    string
	Hash      string
	CreatedAt string
}

// Store wraps the database handle.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	slug TEXT NOT NULL UNIQUE,
	uuid TEXT NOT NULL UNIQUE,
	display_title TEXT NOT NULL,
	print_title TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	editor TEXT NOT NULL DEFAULT '',
	publisher TEXT NOT NULL DEFAULT '',
	publication_year TEXT NOT NULL DEFAULT '',
	worldcat_link TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	page_numbers TEXT NOT NULL DEFAULT '',
	config_yaml TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'active',
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	slug TEXT NOT NULL,
	ordinal INTEGER NOT NULL,
	version INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'reviewed-0',
	UNIQUE (project_id, slug)
);

CREATE TABLE IF NOT EXISTS revisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	page_id INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_revisions_page ON revisions(page_id, id);

CREATE TABLE IF NOT EXISTS texts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER REFERENCES projects(id) ON DELETE SET NULL,
	slug TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	language TEXT NOT NULL DEFAULT 'sa',
	parent_slug TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS text_sections (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text_id INTEGER NOT NULL REFERENCES texts(id) ON DELETE CASCADE,
	slug TEXT NOT NULL,
	ordinal INTEGER NOT NULL,
	UNIQUE (text_id, slug)
);

CREATE TABLE IF NOT EXISTS text_blocks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	section_id INTEGER NOT NULL REFERENCES text_sections(id) ON DELETE CASCADE,
	slug TEXT NOT NULL,
	xml TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	ordinal INTEGER NOT NULL,
	UNIQUE (section_id, slug)
);
`

// Open opens (creating if necessary) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	logging.Debug("store opened", "path", path, "driver", driverType)
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ContentHash returns the hex BLAKE3 hash of content as stored.
func ContentHash(content string) string {
	h := blake3.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

// tx runs fn inside a transaction, committing when it returns nil.
func (s *Store) tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
