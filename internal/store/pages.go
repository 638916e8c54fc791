package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/FocuswithJustin/TulsiPress/core/errors"
	"github.com/FocuswithJustin/TulsiPress/core/tei"
	"github.com/FocuswithJustin/TulsiPress/internal/validation"
)

// AddPages appends pages to a project in the given order, numbering them
// after the project's current last ordinal. Duplicate slugs are rejected.
func (s *Store) AddPages(ctx context.Context, projectSlug string, pageSlugs []string) error {
	for _, slug := range pageSlugs {
		if err := validation.ValidateSlug(slug); err != nil {
			return errors.NewValidation("slug", err.Error())
		}
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		pid, err := projectID(tx, projectSlug)
		if err != nil {
			return err
		}
		var last int
		if err := tx.QueryRow(
			`SELECT COALESCE(MAX(ordinal), 0) FROM pages WHERE project_id = ?`, pid,
		).Scan(&last); err != nil {
			return fmt.Errorf("counting pages: %w", err)
		}
		for i, slug := range pageSlugs {
			_, err := tx.Exec(`
				INSERT INTO pages (project_id, slug, ordinal) VALUES (?, ?, ?)`,
				pid, slug, last+i+1)
			if err != nil {
				if isUniqueViolation(err) {
					return errors.NewConflict("page", slug, "page already exists in this project")
				}
				return fmt.Errorf("adding page %s: %w", slug, err)
			}
		}
		return nil
	})
}

// Pages returns a project's pages in ordinal order.
func (s *Store) Pages(ctx context.Context, projectSlug string) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.slug, p.ordinal, p.version, p.status
		FROM pages p JOIN projects pr ON pr.id = p.project_id
		WHERE pr.slug = ? ORDER BY p.ordinal`, projectSlug)
	if err != nil {
		return nil, fmt.Errorf("listing pages of %s: %w", projectSlug, err)
	}
	defer rows.Close()

	var out []Page
	for rows.Next() {
		var p Page
		var status string
		if err := rows.Scan(&p.Slug, &p.Ordinal, &p.Version, &status); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		p.Status = PageStatus(status)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		// Distinguish a missing project from a project with no pages.
		if _, err := s.GetProject(ctx, projectSlug); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SetPageStatus records a page's proofing status.
func (s *Store) SetPageStatus(ctx context.Context, projectSlug, pageSlug string, status PageStatus) error {
	if !status.IsValid() {
		return errors.NewValidation("status", fmt.Sprintf("unknown page status %q", status))
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE pages SET status = ?
		WHERE slug = ? AND project_id = (SELECT id FROM projects WHERE slug = ?)`,
		string(status), pageSlug, projectSlug)
	if err != nil {
		return fmt.Errorf("updating page %s status: %w", pageSlug, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NewNotFound("page", pageSlug)
	}
	return nil
}

// SaveRevision writes a new revision of a page. version must equal the page's
// current version or the save is rejected with a conflict, which is how
// concurrent editors find out about each other. Content is NFC-normalized
// first; saving content identical to the latest revision is a no-op that
// returns the existing revision without bumping the version.
func (s *Store) SaveRevision(ctx context.Context, projectSlug, pageSlug string, version int, content, summary, author string) (*Revision, error) {
	content = norm.NFC.String(content)
	hash := ContentHash(content)

	var rev *Revision
	err := s.tx(ctx, func(tx *sql.Tx) error {
		pid, err := projectID(tx, projectSlug)
		if err != nil {
			return err
		}
		var pageID int64
		var current int
		err = tx.QueryRow(
			`SELECT id, version FROM pages WHERE project_id = ? AND slug = ?`,
			pid, pageSlug,
		).Scan(&pageID, &current)
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NewNotFound("page", pageSlug)
		}
		if err != nil {
			return fmt.Errorf("fetching page %s: %w", pageSlug, err)
		}
		if version != current {
			return errors.NewConflict("page", pageSlug,
				fmt.Sprintf("page was edited concurrently: expected version %d, found %d", version, current))
		}

		var latest Revision
		err = tx.QueryRow(`
			SELECT id, content, summary, author, content_hash, created_at
			FROM revisions WHERE page_id = ? ORDER BY id DESC LIMIT 1`, pageID,
		).Scan(&latest.ID, &latest.Content, &latest.Summary, &latest.Author, &latest.Hash, &latest.CreatedAt)
		if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("fetching latest revision: %w", err)
		}
		if err == nil && latest.Hash == hash {
			rev = &latest
			return nil
		}

		res, err := tx.Exec(`
			INSERT INTO revisions (page_id, content, summary, author, content_hash)
			VALUES (?, ?, ?, ?, ?)`,
			pageID, content, summary, author, hash)
		if err != nil {
			return fmt.Errorf("inserting revision: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`UPDATE pages SET version = version + 1 WHERE id = ?`, pageID,
		); err != nil {
			return fmt.Errorf("bumping page version: %w", err)
		}
		rev = &Revision{ID: id, Content: content, Summary: summary, Author: author, Hash: hash}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rev, nil
}

// LatestRevision returns the newest revision of a page.
func (s *Store) LatestRevision(ctx context.Context, projectSlug, pageSlug string) (*Revision, error) {
	var rev Revision
	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.content, r.summary, r.author, r.content_hash, r.created_at
		FROM revisions r
		JOIN pages p ON p.id = r.page_id
		JOIN projects pr ON pr.id = p.project_id
		WHERE pr.slug = ? AND p.slug = ?
		ORDER BY r.id DESC LIMIT 1`, projectSlug, pageSlug,
	).Scan(&rev.ID, &rev.Content, &rev.Summary, &rev.Author, &rev.Hash, &rev.CreatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("revision", projectSlug+"/"+pageSlug)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching revision of %s/%s: %w", projectSlug, pageSlug, err)
	}
	return &rev, nil
}

// LatestContents returns one assembler input per page, in page order. Pages
// with no revisions contribute empty content so that image numbers stay
// aligned with the page sequence.
func (s *Store) LatestContents(ctx context.Context, projectSlug string) ([]tei.PageInput, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.slug, p.status, COALESCE((
			SELECT r.content FROM revisions r
			WHERE r.page_id = p.id ORDER BY r.id DESC LIMIT 1
		), '')
		FROM pages p JOIN projects pr ON pr.id = p.project_id
		WHERE pr.slug = ? ORDER BY p.ordinal`, projectSlug)
	if err != nil {
		return nil, fmt.Errorf("loading contents of %s: %w", projectSlug, err)
	}
	defer rows.Close()

	var out []tei.PageInput
	for rows.Next() {
		var in tei.PageInput
		if err := rows.Scan(&in.ID, &in.Status, &in.Content); err != nil {
			return nil, fmt.Errorf("scanning page content: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}
