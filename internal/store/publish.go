package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/FocuswithJustin/TulsiPress/core/errors"
	"github.com/FocuswithJustin/TulsiPress/core/tei"
	"github.com/FocuswithJustin/TulsiPress/internal/logging"
)

// Text is one published text.
type Text struct {
	Slug        string
	Title       string
	Language    string
	ParentSlug  string
	ProjectSlug string
}

// TextSection is one stored section of a published text.
type TextSection struct {
	Slug   string
	Blocks []TextBlock
}

// TextBlock is one stored block of a published text.
type TextBlock struct {
	Slug string
	XML  string
}

// Diff classifies an assembled document's blocks against the stored blocks
// of a published text. Slugs in Removed exist in the stored text but not in
// the new document.
type Diff struct {
	Added     []string
	Changed   []string
	Unchanged []string
	Removed   []string
}

// PublishDiff compares an assembled document against the published text with
// the given slug. A text that has never been published reports every block
// as added.
func (s *Store) PublishDiff(ctx context.Context, textSlug string, doc *tei.Document) (*Diff, error) {
	stored := make(map[string]string)
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.slug, b.content_hash
		FROM text_blocks b
		JOIN text_sections sec ON sec.id = b.section_id
		JOIN texts t ON t.id = sec.text_id
		WHERE t.slug = ?`, textSlug)
	if err != nil {
		return nil, fmt.Errorf("loading published blocks of %s: %w", textSlug, err)
	}
	defer rows.Close()
	for rows.Next() {
		var slug, hash string
		if err := rows.Scan(&slug, &hash); err != nil {
			return nil, fmt.Errorf("scanning published block: %w", err)
		}
		stored[slug] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	diff := &Diff{}
	seen := make(map[string]bool)
	for _, sec := range doc.Sections {
		for _, b := range sec.Blocks {
			seen[b.Slug] = true
			old, ok := stored[b.Slug]
			switch {
			case !ok:
				diff.Added = append(diff.Added, b.Slug)
			case old != ContentHash(b.XML):
				diff.Changed = append(diff.Changed, b.Slug)
			default:
				diff.Unchanged = append(diff.Unchanged, b.Slug)
			}
		}
	}
	for slug := range stored {
		if !seen[slug] {
			diff.Removed = append(diff.Removed, slug)
		}
	}
	return diff, nil
}

// PublishApply persists an assembled document as the published form of a
// text: the text row is upserted, sections and blocks are upserted in
// document order, and stored sections/blocks absent from the document are
// deleted.
func (s *Store) PublishApply(ctx context.Context, text Text, doc *tei.Document) error {
	if text.Slug == "" {
		return errors.NewValidation("slug", "text slug is required")
	}
	if text.Language == "" {
		text.Language = "sa"
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		var pid any
		if text.ProjectSlug != "" {
			id, err := projectID(tx, text.ProjectSlug)
			if err != nil {
				return err
			}
			pid = id
		}
		if _, err := tx.Exec(`
			INSERT INTO texts (slug, title, language, parent_slug, project_id)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (slug) DO UPDATE SET
				title = excluded.title,
				language = excluded.language,
				parent_slug = excluded.parent_slug,
				project_id = excluded.project_id`,
			text.Slug, text.Title, text.Language, text.ParentSlug, pid); err != nil {
			return fmt.Errorf("upserting text %s: %w", text.Slug, err)
		}
		var textID int64
		if err := tx.QueryRow(
			`SELECT id FROM texts WHERE slug = ?`, text.Slug,
		).Scan(&textID); err != nil {
			return fmt.Errorf("resolving text %s: %w", text.Slug, err)
		}

		keptSections := make([]int64, 0, len(doc.Sections))
		for si, sec := range doc.Sections {
			if _, err := tx.Exec(`
				INSERT INTO text_sections (text_id, slug, ordinal)
				VALUES (?, ?, ?)
				ON CONFLICT (text_id, slug) DO UPDATE SET ordinal = excluded.ordinal`,
				textID, sec.Slug, si); err != nil {
				return fmt.Errorf("upserting section %s: %w", sec.Slug, err)
			}
			var sectionID int64
			if err := tx.QueryRow(
				`SELECT id FROM text_sections WHERE text_id = ? AND slug = ?`,
				textID, sec.Slug,
			).Scan(&sectionID); err != nil {
				return fmt.Errorf("resolving section %s: %w", sec.Slug, err)
			}
			keptSections = append(keptSections, sectionID)

			for bi, b := range sec.Blocks {
				if _, err := tx.Exec(`
					INSERT INTO text_blocks (section_id, slug, xml, content_hash, ordinal)
					VALUES (?, ?, ?, ?, ?)
					ON CONFLICT (section_id, slug) DO UPDATE SET
						xml = excluded.xml,
						content_hash = excluded.content_hash,
						ordinal = excluded.ordinal`,
					sectionID, b.Slug, b.XML, ContentHash(b.XML), bi); err != nil {
					return fmt.Errorf("upserting block %s: %w", b.Slug, err)
				}
			}
			if err := deleteOrphanBlocks(tx, sectionID, sec.Blocks); err != nil {
				return err
			}
		}
		if err := deleteOrphanSections(tx, textID, keptSections); err != nil {
			return err
		}
		logging.Info("published text", "slug", text.Slug, "sections", len(doc.Sections))
		return nil
	})
}

func deleteOrphanBlocks(tx *sql.Tx, sectionID int64, kept []tei.DocBlock) error {
	slugs := make(map[string]bool, len(kept))
	for _, b := range kept {
		slugs[b.Slug] = true
	}
	rows, err := tx.Query(`SELECT id, slug FROM text_blocks WHERE section_id = ?`, sectionID)
	if err != nil {
		return fmt.Errorf("listing blocks: %w", err)
	}
	var orphans []int64
	for rows.Next() {
		var id int64
		var slug string
		if err := rows.Scan(&id, &slug); err != nil {
			rows.Close()
			return err
		}
		if !slugs[slug] {
			orphans = append(orphans, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, id := range orphans {
		if _, err := tx.Exec(`DELETE FROM text_blocks WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting orphan block: %w", err)
		}
	}
	return nil
}

func deleteOrphanSections(tx *sql.Tx, textID int64, kept []int64) error {
	keep := make(map[int64]bool, len(kept))
	for _, id := range kept {
		keep[id] = true
	}
	rows, err := tx.Query(`SELECT id FROM text_sections WHERE text_id = ?`, textID)
	if err != nil {
		return fmt.Errorf("listing sections: %w", err)
	}
	var orphans []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if !keep[id] {
			orphans = append(orphans, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, id := range orphans {
		if _, err := tx.Exec(`DELETE FROM text_sections WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting orphan section: %w", err)
		}
	}
	return nil
}

// GetText loads a published text with its sections and blocks in stored
// order.
func (s *Store) GetText(ctx context.Context, slug string) (*Text, []TextSection, error) {
	var text Text
	var textID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT t.id, t.slug, t.title, t.language, t.parent_slug,
			COALESCE(pr.slug, '')
		FROM texts t LEFT JOIN projects pr ON pr.id = t.project_id
		WHERE t.slug = ?`, slug,
	).Scan(&textID, &text.Slug, &text.Title, &text.Language, &text.ParentSlug, &text.ProjectSlug)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil, errors.NewNotFound("text", slug)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("fetching text %s: %w", slug, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sec.slug, b.slug, b.xml
		FROM text_sections sec
		JOIN text_blocks b ON b.section_id = sec.id
		WHERE sec.text_id = ?
		ORDER BY sec.ordinal, b.ordinal`, textID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading sections of %s: %w", slug, err)
	}
	defer rows.Close()

	var sections []TextSection
	for rows.Next() {
		var secSlug string
		var block TextBlock
		if err := rows.Scan(&secSlug, &block.Slug, &block.XML); err != nil {
			return nil, nil, fmt.Errorf("scanning block: %w", err)
		}
		if len(sections) == 0 || sections[len(sections)-1].Slug != secSlug {
			sections = append(sections, TextSection{Slug: secSlug})
		}
		sections[len(sections)-1].Blocks = append(sections[len(sections)-1].Blocks, block)
	}
	return &text, sections, rows.Err()
}
