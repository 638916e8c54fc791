package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/TulsiPress/core/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tulsi.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreateProject(t *testing.T, s *Store, slug string) {
	t.Helper()
	err := s.CreateProject(context.Background(), &Project{
		Slug:         slug,
		DisplayTitle: "Test Project",
	})
	if err != nil {
		t.Fatalf("CreateProject(%s) failed: %v", slug, err)
	}
}

func TestCreateAndGetProject(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := &Project{
		Slug:         "kumarasambhava",
		DisplayTitle: "Kumārasambhava",
		Author:       "Kālidāsa",
		WorldcatLink: "https://search.worldcat.org/title/12345",
	}
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if p.UUID == "" {
		t.Error("CreateProject left UUID empty, want generated")
	}

	got, err := s.GetProject(ctx, "kumarasambhava")
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if got.DisplayTitle != "Kumārasambhava" || got.Author != "Kālidāsa" {
		t.Errorf("got %+v, want title and author preserved", got)
	}
	if got.Status != ProjectActive {
		t.Errorf("Status = %q, want default %q", got.Status, ProjectActive)
	}
	if got.CreatedAt == "" {
		t.Error("CreatedAt is empty, want a timestamp")
	}
}

func TestCreateProjectDuplicateSlug(t *testing.T) {
	s := openTestStore(t)
	mustCreateProject(t, s, "dup")

	err := s.CreateProject(context.Background(), &Project{Slug: "dup", DisplayTitle: "X"})
	var conflict *errors.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
}

func TestCreateProjectBadSlug(t *testing.T) {
	s := openTestStore(t)
	for _, slug := range []string{"", "has space", "-leading"} {
		err := s.CreateProject(context.Background(), &Project{Slug: slug, DisplayTitle: "X"})
		var ve *errors.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("CreateProject(%q) err = %v, want ValidationError", slug, err)
		}
	}
}

func TestGetProjectNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetProject(context.Background(), "absent")
	var nf *errors.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestAddPagesAndOrdinals(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreateProject(t, s, "proj")

	if err := s.AddPages(ctx, "proj", []string{"1", "2"}); err != nil {
		t.Fatalf("AddPages failed: %v", err)
	}
	if err := s.AddPages(ctx, "proj", []string{"3"}); err != nil {
		t.Fatalf("AddPages (second batch) failed: %v", err)
	}

	pages, err := s.Pages(ctx, "proj")
	if err != nil {
		t.Fatalf("Pages failed: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("len(pages) = %d, want 3", len(pages))
	}
	for i, p := range pages {
		if p.Ordinal != i+1 {
			t.Errorf("pages[%d].Ordinal = %d, want %d", i, p.Ordinal, i+1)
		}
		if p.Version != 0 || p.Status != PageR0 {
			t.Errorf("pages[%d] = %+v, want version 0 unreviewed status", i, p)
		}
	}
}

func TestAddPagesDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreateProject(t, s, "proj")
	if err := s.AddPages(ctx, "proj", []string{"1"}); err != nil {
		t.Fatal(err)
	}
	err := s.AddPages(ctx, "proj", []string{"1"})
	var conflict *errors.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
}

func TestSaveRevisionOptimisticLock(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreateProject(t, s, "proj")
	if err := s.AddPages(ctx, "proj", []string{"1"}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.SaveRevision(ctx, "proj", "1", 0, "first", "init", "alice"); err != nil {
		t.Fatalf("SaveRevision failed: %v", err)
	}

	// A second writer still holding version 0 must conflict.
	_, err := s.SaveRevision(ctx, "proj", "1", 0, "stale", "", "bob")
	var conflict *errors.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
	if !strings.Contains(err.Error(), "version") {
		t.Errorf("err = %v, want mention of version", err)
	}

	// Re-reading gives the new version, which must succeed.
	pages, err := s.Pages(ctx, "proj")
	if err != nil {
		t.Fatal(err)
	}
	if pages[0].Version != 1 {
		t.Fatalf("Version = %d, want 1", pages[0].Version)
	}
	if _, err := s.SaveRevision(ctx, "proj", "1", 1, "second", "", "bob"); err != nil {
		t.Fatalf("SaveRevision with fresh version failed: %v", err)
	}
}

func TestSaveRevisionNoOp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreateProject(t, s, "proj")
	if err := s.AddPages(ctx, "proj", []string{"1"}); err != nil {
		t.Fatal(err)
	}

	first, err := s.SaveRevision(ctx, "proj", "1", 0, "same", "", "alice")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.SaveRevision(ctx, "proj", "1", 1, "same", "retry", "bob")
	if err != nil {
		t.Fatalf("no-op SaveRevision failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("no-op save created revision %d, want existing %d", second.ID, first.ID)
	}

	pages, err := s.Pages(ctx, "proj")
	if err != nil {
		t.Fatal(err)
	}
	if pages[0].Version != 1 {
		t.Errorf("Version = %d, want 1 (no bump on identical content)", pages[0].Version)
	}
}

func TestSaveRevisionNormalizesNFC(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreateProject(t, s, "proj")
	if err := s.AddPages(ctx, "proj", []string{"1"}); err != nil {
		t.Fatal(err)
	}

	// "kā" written with a combining macron (NFD) must store as NFC.
	decomposed := "kā"
	rev, err := s.SaveRevision(ctx, "proj", "1", 0, decomposed, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if rev.Content != "kā" {
		t.Errorf("Content = %q, want NFC %q", rev.Content, "kā")
	}
}

func TestLatestContents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreateProject(t, s, "proj")
	if err := s.AddPages(ctx, "proj", []string{"1", "2", "3"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveRevision(ctx, "proj", "1", 0, "old", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveRevision(ctx, "proj", "1", 1, "new", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveRevision(ctx, "proj", "3", 0, "third", "", ""); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPageStatus(ctx, "proj", "1", PageR2); err != nil {
		t.Fatal(err)
	}

	inputs, err := s.LatestContents(ctx, "proj")
	if err != nil {
		t.Fatalf("LatestContents failed: %v", err)
	}
	if len(inputs) != 3 {
		t.Fatalf("len(inputs) = %d, want 3 (unrevised pages included)", len(inputs))
	}
	if inputs[0].Content != "new" || inputs[0].Status != string(PageR2) {
		t.Errorf("inputs[0] = %+v, want latest content and reviewed-2 status", inputs[0])
	}
	if inputs[1].Content != "" {
		t.Errorf("inputs[1].Content = %q, want empty for unrevised page", inputs[1].Content)
	}
	if inputs[2].Content != "third" {
		t.Errorf("inputs[2].Content = %q, want %q", inputs[2].Content, "third")
	}
}

func TestSetPageStatusInvalid(t *testing.T) {
	s := openTestStore(t)
	mustCreateProject(t, s, "proj")
	err := s.SetPageStatus(context.Background(), "proj", "1", PageStatus("R9"))
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestUpdateProjectConfig(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreateProject(t, s, "proj")

	if err := s.UpdateProjectConfig(ctx, "proj", "publish: []", "1 = i"); err != nil {
		t.Fatalf("UpdateProjectConfig failed: %v", err)
	}
	got, err := s.GetProject(ctx, "proj")
	if err != nil {
		t.Fatal(err)
	}
	if got.ConfigYAML != "publish: []" || got.PageNumbers != "1 = i" {
		t.Errorf("got config %q / pages %q, want updated values", got.ConfigYAML, got.PageNumbers)
	}

	if err := s.UpdateProjectConfig(ctx, "absent", "", ""); err == nil {
		t.Error("UpdateProjectConfig(absent) succeeded, want error")
	}
}
