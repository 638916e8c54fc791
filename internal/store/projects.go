package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/TulsiPress/core/errors"
	"github.com/FocuswithJustin/TulsiPress/internal/validation"
)

// CreateProject inserts a new project. A missing UUID is generated; a missing
// status defaults to active. The slug must be unique.
func (s *Store) CreateProject(ctx context.Context, p *Project) error {
	if err := validation.ValidateSlug(p.Slug); err != nil {
		return errors.NewValidation("slug", err.Error())
	}
	if p.UUID == "" {
		p.UUID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = ProjectActive
	}
	if !p.Status.IsValid() {
		return errors.NewValidation("status", fmt.Sprintf("unknown project status %q", p.Status))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (
			slug, uuid, display_title, print_title, author, editor, publisher,
			publication_year, worldcat_link, description, notes, page_numbers,
			config_yaml, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Slug, p.UUID, p.DisplayTitle, p.PrintTitle, p.Author, p.Editor,
		p.Publisher, p.PublicationYear, p.WorldcatLink, p.Description, p.Notes,
		p.PageNumbers, p.ConfigYAML, string(p.Status))
	if err != nil {
		if isUniqueViolation(err) {
			return errors.NewConflict("project", p.Slug, "a project with this slug already exists")
		}
		return fmt.Errorf("creating project %s: %w", p.Slug, err)
	}
	return nil
}

// isUniqueViolation detects a unique-constraint failure without importing
// either driver's error type: the two drivers disagree on types but both
// include the SQLite error text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetProject fetches a project by slug.
func (s *Store) GetProject(ctx context.Context, slug string) (*Project, error) {
	var p Project
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT slug, uuid, display_title, print_title, author, editor,
			publisher, publication_year, worldcat_link, description, notes,
			page_numbers, config_yaml, status, created_at
		FROM projects WHERE slug = ?`, slug).Scan(
		&p.Slug, &p.UUID, &p.DisplayTitle, &p.PrintTitle, &p.Author, &p.Editor,
		&p.Publisher, &p.PublicationYear, &p.WorldcatLink, &p.Description,
		&p.Notes, &p.PageNumbers, &p.ConfigYAML, &status, &p.CreatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("project", slug)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching project %s: %w", slug, err)
	}
	p.Status = ProjectStatus(status)
	return &p, nil
}

// ListProjects returns every project, ordered by slug.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slug, uuid, display_title, status, created_at
		FROM projects ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		var status string
		if err := rows.Scan(&p.Slug, &p.UUID, &p.DisplayTitle, &status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		p.Status = ProjectStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProjectConfig replaces a project's configuration document and
// page-number spec.
func (s *Store) UpdateProjectConfig(ctx context.Context, slug, configYAML, pageNumbers string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE projects SET config_yaml = ?, page_numbers = ? WHERE slug = ?`,
		configYAML, pageNumbers, slug)
	if err != nil {
		return fmt.Errorf("updating project %s config: %w", slug, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NewNotFound("project", slug)
	}
	return nil
}

// projectID resolves a project slug inside a transaction.
func projectID(tx *sql.Tx, slug string) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM projects WHERE slug = ?`, slug).Scan(&id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, errors.NewNotFound("project", slug)
	}
	return id, err
}
