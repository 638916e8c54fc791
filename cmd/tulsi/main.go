// Command tulsi is the CLI tool for TulsiPress.
// It provides commands for parsing and validating proofed pages, managing
// projects, and assembling, publishing, and exporting TEI texts.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/TulsiPress/core/proofing"
	"github.com/FocuswithJustin/TulsiPress/core/tei"
	"github.com/FocuswithJustin/TulsiPress/internal/config"
	"github.com/FocuswithJustin/TulsiPress/internal/export"
	"github.com/FocuswithJustin/TulsiPress/internal/logging"
	"github.com/FocuswithJustin/TulsiPress/internal/pagemap"
	"github.com/FocuswithJustin/TulsiPress/internal/server"
	"github.com/FocuswithJustin/TulsiPress/internal/store"
	"github.com/FocuswithJustin/TulsiPress/internal/validation"
)

const version = "0.1.0"

// CLI defines the command-line interface for tulsi.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log output format (text, json)"`

	Parse    ParseCmd     `cmd:"" help:"Parse a page file into structured block XML"`
	Validate ValidateCmd  `cmd:"" help:"Validate a page file against the proofing grammar"`
	Project  ProjectGroup `cmd:"" help:"Project operations (init, add-pages, revise, status)"`
	Assemble AssembleCmd  `cmd:"" help:"Assemble a project's pages into a TEI text"`
	Publish  PublishCmd   `cmd:"" help:"Publish an assembled text to the database"`
	Export   ExportCmd    `cmd:"" help:"Export a published text (TEI, plain text, PDF, bundle)"`
	Serve    ServeCmd     `cmd:"" help:"Start the live validate/preview server"`
	Version  VersionCmd   `cmd:"" help:"Print version information"`
}

// ProjectGroup contains project lifecycle operations.
type ProjectGroup struct {
	Init       InitCmd       `cmd:"" help:"Create a project from a directory of page files"`
	AddPages   AddPagesCmd   `cmd:"" help:"Add page files to an existing project"`
	Revise     ReviseCmd     `cmd:"" help:"Save a new revision of a page"`
	Config     ConfigCmd     `cmd:"" help:"Validate and store a project configuration file"`
	PageStatus PageStatusCmd `cmd:"" help:"Set the proofing status of a page"`
	Status     StatusCmd     `cmd:"" help:"Show a project and its pages"`
	List       ListCmd       `cmd:"" help:"List projects"`
}

var logLevels = map[string]logging.Level{
	"debug": logging.LevelDebug,
	"info":  logging.LevelInfo,
	"warn":  logging.LevelWarn,
	"error": logging.LevelError,
}

var logFormats = map[string]logging.Format{
	"text": logging.FormatText,
	"json": logging.FormatJSON,
}

// ParseCmd parses a page file and prints its structured XML.
type ParseCmd struct {
	Path string `arg:"" help:"Path to page file" type:"existingfile"`
}

func (c *ParseCmd) Run() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", c.Path, err)
	}
	slug, err := pageSlug(c.Path)
	if err != nil {
		return err
	}
	page := proofing.ParsePage(string(data), slug)
	fmt.Println(page.XMLString())
	return nil
}

// ValidateCmd validates a page file against the proofing grammar.
type ValidateCmd struct {
	Path string `arg:"" help:"Path to page file" type:"existingfile"`
}

func (c *ValidateCmd) Run() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", c.Path, err)
	}
	issues := proofing.Validate(string(data))
	failed := 0
	for _, issue := range issues {
		fmt.Printf("%s: %s\n", issue.Severity, issue.Message)
		if issue.Severity == proofing.SeverityError {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("validation failed: %d error(s)", failed)
	}
	fmt.Println("Validation passed!")
	return nil
}

// InitCmd creates a project from a directory of page files.
type InitCmd struct {
	Slug   string `arg:"" help:"Project slug"`
	Dir    string `arg:"" help:"Directory of page files" type:"existingdir"`
	Db     string `help:"Database path" default:"tulsi.db" type:"path"`
	Title  string `help:"Display title (defaults to the slug)"`
	Author string `help:"Author of the printed source"`
	Config string `help:"Project configuration YAML to store" type:"existingfile"`
}

func (c *InitCmd) Run() error {
	ctx := context.Background()
	st, err := store.Open(c.Db)
	if err != nil {
		return err
	}
	defer st.Close()

	title := c.Title
	if title == "" {
		title = c.Slug
	}
	project := &store.Project{
		Slug:         c.Slug,
		DisplayTitle: title,
		Author:       c.Author,
	}
	if err := st.CreateProject(ctx, project); err != nil {
		return err
	}

	paths, err := pageFiles(c.Dir)
	if err != nil {
		return err
	}
	if err := importPages(ctx, st, c.Slug, c.Author, paths); err != nil {
		return err
	}
	fmt.Printf("Created project %s with %d page(s)\n", c.Slug, len(paths))

	if c.Config != "" {
		return storeConfig(ctx, st, c.Slug, c.Config)
	}
	return nil
}

// AddPagesCmd adds page files to an existing project.
type AddPagesCmd struct {
	Slug  string   `arg:"" help:"Project slug"`
	Paths []string `arg:"" help:"Page files to add" type:"existingfile"`
	Db    string   `help:"Database path" default:"tulsi.db" type:"path"`
}

func (c *AddPagesCmd) Run() error {
	ctx := context.Background()
	st, err := store.Open(c.Db)
	if err != nil {
		return err
	}
	defer st.Close()

	project, err := st.GetProject(ctx, c.Slug)
	if err != nil {
		return err
	}
	if err := importPages(ctx, st, c.Slug, project.Author, c.Paths); err != nil {
		return err
	}
	fmt.Printf("Added %d page(s) to %s\n", len(c.Paths), c.Slug)
	return nil
}

// ReviseCmd saves a new revision of one page.
type ReviseCmd struct {
	Project string `arg:"" help:"Project slug"`
	Page    string `arg:"" help:"Page slug"`
	Path    string `arg:"" help:"File holding the new content" type:"existingfile"`
	Db      string `help:"Database path" default:"tulsi.db" type:"path"`
	Summary string `help:"Edit summary"`
	Author  string `help:"Revision author"`
	Version int    `help:"Expected current page version (defaults to the stored version)" default:"-1"`
}

func (c *ReviseCmd) Run() error {
	ctx := context.Background()
	st, err := store.Open(c.Db)
	if err != nil {
		return err
	}
	defer st.Close()

	data, err := os.ReadFile(c.Path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", c.Path, err)
	}
	version := c.Version
	if version < 0 {
		version, err = pageVersion(ctx, st, c.Project, c.Page)
		if err != nil {
			return err
		}
	}
	rev, err := st.SaveRevision(ctx, c.Project, c.Page, version, string(data), c.Summary, c.Author)
	if err != nil {
		return err
	}
	fmt.Printf("Saved revision %d of %s/%s\n", rev.ID, c.Project, c.Page)
	return nil
}

// ConfigCmd validates a configuration file and stores it on the project.
type ConfigCmd struct {
	Slug string `arg:"" help:"Project slug"`
	Path string `arg:"" help:"Configuration YAML file" type:"existingfile"`
	Db   string `help:"Database path" default:"tulsi.db" type:"path"`
}

func (c *ConfigCmd) Run() error {
	ctx := context.Background()
	st, err := store.Open(c.Db)
	if err != nil {
		return err
	}
	defer st.Close()
	return storeConfig(ctx, st, c.Slug, c.Path)
}

// PageStatusCmd sets the proofing status of a page.
type PageStatusCmd struct {
	Project string `arg:"" help:"Project slug"`
	Page    string `arg:"" help:"Page slug"`
	Status  string `arg:"" help:"New status" enum:"reviewed-0,reviewed-1,reviewed-2,skipped"`
	Db      string `help:"Database path" default:"tulsi.db" type:"path"`
}

func (c *PageStatusCmd) Run() error {
	ctx := context.Background()
	st, err := store.Open(c.Db)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.SetPageStatus(ctx, c.Project, c.Page, store.PageStatus(c.Status))
}

// StatusCmd shows a project and its pages.
type StatusCmd struct {
	Slug string `arg:"" help:"Project slug"`
	Db   string `help:"Database path" default:"tulsi.db" type:"path"`
}

func (c *StatusCmd) Run() error {
	ctx := context.Background()
	st, err := store.Open(c.Db)
	if err != nil {
		return err
	}
	defer st.Close()

	project, err := st.GetProject(ctx, c.Slug)
	if err != nil {
		return err
	}
	pages, err := st.Pages(ctx, c.Slug)
	if err != nil {
		return err
	}
	fmt.Printf("Project: %s\n", project.Slug)
	fmt.Printf("  Title: %s\n", project.DisplayTitle)
	if project.Author != "" {
		fmt.Printf("  Author: %s\n", project.Author)
	}
	fmt.Printf("  Status: %s\n", project.Status)
	fmt.Printf("  Pages: %d\n", len(pages))
	for _, p := range pages {
		fmt.Printf("    %-12s v%-3d %s\n", p.Slug, p.Version, p.Status)
	}
	return nil
}

// ListCmd lists projects.
type ListCmd struct {
	Db string `help:"Database path" default:"tulsi.db" type:"path"`
}

func (c *ListCmd) Run() error {
	ctx := context.Background()
	st, err := store.Open(c.Db)
	if err != nil {
		return err
	}
	defer st.Close()

	projects, err := st.ListProjects(ctx)
	if err != nil {
		return err
	}
	for _, p := range projects {
		fmt.Printf("%-20s %-8s %s\n", p.Slug, p.Status, p.DisplayTitle)
	}
	return nil
}

// AssembleCmd assembles a project's pages into a TEI file.
type AssembleCmd struct {
	Project string `arg:"" help:"Project slug"`
	Text    string `arg:"" help:"Publish entry slug from the project configuration"`
	Db      string `help:"Database path" default:"tulsi.db" type:"path"`
	Out     string `help:"Output path (defaults to stdout)" type:"path"`
}

func (c *AssembleCmd) Run() error {
	ctx := context.Background()
	st, err := store.Open(c.Db)
	if err != nil {
		return err
	}
	defer st.Close()

	doc, meta, _, err := assembleText(ctx, st, c.Project, c.Text)
	if err != nil {
		return err
	}

	out := os.Stdout
	if c.Out != "" {
		f, err := os.Create(c.Out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", c.Out, err)
		}
		defer f.Close()
		out = f
	}
	return export.WriteTEI(out, meta, doc)
}

// PublishCmd assembles a text, diffs it against the last published form,
// and applies the result.
type PublishCmd struct {
	Project string `arg:"" help:"Project slug"`
	Text    string `arg:"" help:"Publish entry slug from the project configuration"`
	Db      string `help:"Database path" default:"tulsi.db" type:"path"`
	DryRun  bool   `name:"dry-run" help:"Show the diff without publishing"`
}

func (c *PublishCmd) Run() error {
	ctx := context.Background()
	st, err := store.Open(c.Db)
	if err != nil {
		return err
	}
	defer st.Close()

	doc, _, entry, err := assembleText(ctx, st, c.Project, c.Text)
	if err != nil {
		return err
	}

	diff, err := st.PublishDiff(ctx, entry.Slug, doc)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d added, %d changed, %d unchanged, %d removed\n",
		entry.Slug, len(diff.Added), len(diff.Changed), len(diff.Unchanged), len(diff.Removed))
	if c.DryRun {
		return nil
	}

	text := store.Text{
		Slug:        entry.Slug,
		Title:       entry.Title,
		Language:    entry.Language,
		ParentSlug:  entry.ParentSlug,
		ProjectSlug: c.Project,
	}
	if err := st.PublishApply(ctx, text, doc); err != nil {
		return err
	}
	fmt.Printf("Published %s\n", entry.Slug)
	return nil
}

// ExportCmd exports a published text in a chosen format.
type ExportCmd struct {
	Text   string `arg:"" help:"Published text slug"`
	Db     string `help:"Database path" default:"tulsi.db" type:"path"`
	Format string `help:"Output format" default:"tei" enum:"tei,text,pdf,bundle"`
	Out    string `help:"Output path (defaults to <slug> plus the format's extension)" type:"path"`
	Font   string `help:"TTF font file for PDF output (needed for Devanagari)" type:"path"`
}

var formatExtensions = map[string]string{
	"tei":    ".xml",
	"text":   ".txt",
	"pdf":    ".pdf",
	"bundle": ".tar.xz",
}

func (c *ExportCmd) Run() error {
	ctx := context.Background()
	st, err := store.Open(c.Db)
	if err != nil {
		return err
	}
	defer st.Close()

	text, sections, err := st.GetText(ctx, c.Text)
	if err != nil {
		return err
	}
	doc := documentFromSections(sections)
	meta, err := exportMetadata(ctx, st, text)
	if err != nil {
		return err
	}

	outPath := c.Out
	if outPath == "" {
		outPath = text.Slug + formatExtensions[c.Format]
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer f.Close()

	switch c.Format {
	case "tei":
		err = export.WriteTEI(f, meta, doc)
	case "text":
		var tj bytes.Buffer
		if err = export.WriteTEI(&tj, meta, doc); err == nil {
			err = export.WritePlainText(f, meta, tj.String())
		}
	case "pdf":
		err = export.WritePDF(f, meta, doc, c.Font)
	case "bundle":
		err = writeBundle(f, text.Slug, meta, doc, c.Font)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", outPath)
	return nil
}

// ServeCmd starts the live validate/preview server.
type ServeCmd struct {
	Addr string `help:"Listen address" default:":8085"`
}

func (c *ServeCmd) Run() error {
	return server.New().ListenAndServe(c.Addr)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("tulsi version %s\n", version)
	return nil
}

// pageSlug derives a page's slug from its file name.
func pageSlug(path string) (string, error) {
	return validation.SlugFromFilename(filepath.Base(path))
}

// pageFiles lists the regular files of a directory in name order.
func pageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// importPages registers page files on a project and saves each file's
// content as the page's first revision.
func importPages(ctx context.Context, st *store.Store, projectSlug, author string, paths []string) error {
	slugs := make([]string, len(paths))
	for i, p := range paths {
		slug, err := pageSlug(p)
		if err != nil {
			return err
		}
		slugs[i] = slug
	}
	if err := st.AddPages(ctx, projectSlug, slugs); err != nil {
		return err
	}
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		if _, err := st.SaveRevision(ctx, projectSlug, slugs[i], 0, string(data), "initial import", author); err != nil {
			return err
		}
	}
	return nil
}

// storeConfig validates a configuration file and records it on the project.
func storeConfig(ctx context.Context, st *store.Store, slug, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return err
	}
	if err := st.UpdateProjectConfig(ctx, slug, string(data), cfg.PageNumbers); err != nil {
		return err
	}
	fmt.Printf("Stored configuration for %s (%d publish entries)\n", slug, len(cfg.Publish))
	return nil
}

func pageVersion(ctx context.Context, st *store.Store, projectSlug, pageSlug string) (int, error) {
	pages, err := st.Pages(ctx, projectSlug)
	if err != nil {
		return 0, err
	}
	for _, p := range pages {
		if p.Slug == pageSlug {
			return p.Version, nil
		}
	}
	return 0, fmt.Errorf("page %s not found in %s", pageSlug, projectSlug)
}

// pageLabels maps each of n page images to its printed page number.
func pageLabels(n int, spec string) ([]string, error) {
	rules, err := pagemap.ParseSpec(spec)
	if err != nil {
		return nil, err
	}
	return pagemap.Apply(n, rules), nil
}

// assembleText loads a project's pages and configuration and assembles the
// named publish entry's document. Per-block rewrite failures are reported as
// warnings, not errors: the rest of the text still assembles.
func assembleText(ctx context.Context, st *store.Store, projectSlug, textSlug string) (*tei.Document, export.Metadata, *config.PublishConfig, error) {
	var meta export.Metadata
	project, err := st.GetProject(ctx, projectSlug)
	if err != nil {
		return nil, meta, nil, err
	}
	cfg, err := config.Parse([]byte(project.ConfigYAML))
	if err != nil {
		return nil, meta, nil, err
	}
	entry, err := cfg.Entry(textSlug)
	if err != nil {
		return nil, meta, nil, err
	}

	pages, err := st.LatestContents(ctx, projectSlug)
	if err != nil {
		return nil, meta, nil, err
	}
	labels, err := pageLabels(len(pages), project.PageNumbers)
	if err != nil {
		return nil, meta, nil, err
	}

	doc, blockErrs, statuses := tei.CreateDocument(pages, labels, entry.Target)
	for _, e := range blockErrs {
		logging.Warn("block failed to assemble", "project", projectSlug, "text", textSlug, "err", e)
	}
	logging.Info("assembled text", "project", projectSlug, "text", textSlug,
		"sections", len(doc.Sections), "errors", len(blockErrs), "statuses", len(statuses))

	author := entry.Author
	if author == "" {
		author = project.Author
	}
	meta = export.Metadata{
		Title:        entry.Title,
		Author:       author,
		Publisher:    project.Publisher,
		WorldcatLink: project.WorldcatLink,
		Language:     entry.Language,
		FromProofing: true,
	}
	return doc, meta, entry, nil
}

// documentFromSections rebuilds an assembled document from its stored form.
func documentFromSections(sections []store.TextSection) *tei.Document {
	doc := &tei.Document{}
	for _, sec := range sections {
		out := tei.Section{Slug: sec.Slug}
		for _, b := range sec.Blocks {
			out.Blocks = append(out.Blocks, tei.DocBlock{XML: b.XML, Slug: b.Slug})
		}
		doc.Sections = append(doc.Sections, out)
	}
	return doc
}

// exportMetadata builds export metadata for a stored text from its project,
// when it has one.
func exportMetadata(ctx context.Context, st *store.Store, text *store.Text) (export.Metadata, error) {
	meta := export.Metadata{
		Title:        text.Title,
		Language:     text.Language,
		FromProofing: text.ProjectSlug != "",
	}
	if text.ProjectSlug == "" {
		return meta, nil
	}
	project, err := st.GetProject(ctx, text.ProjectSlug)
	if err != nil {
		return meta, err
	}
	meta.Author = project.Author
	meta.Publisher = project.Publisher
	meta.WorldcatLink = project.WorldcatLink
	return meta, nil
}

// writeBundle writes every export format of a text into one .tar.xz stream.
func writeBundle(f *os.File, slug string, meta export.Metadata, doc *tei.Document, font string) error {
	var teiBuf, textBuf, pdfBuf bytes.Buffer
	if err := export.WriteTEI(&teiBuf, meta, doc); err != nil {
		return err
	}
	if err := export.WritePlainText(&textBuf, meta, teiBuf.String()); err != nil {
		return err
	}
	if err := export.WritePDF(&pdfBuf, meta, doc, font); err != nil {
		return err
	}
	return export.WriteBundle(f, []export.BundleFile{
		{Name: slug + ".xml", Data: teiBuf.Bytes()},
		{Name: slug + ".txt", Data: textBuf.Bytes()},
		{Name: slug + ".pdf", Data: pdfBuf.Bytes()},
	})
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("tulsi"),
		kong.Description("TulsiPress - proofing-to-TEI structuring engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	logging.InitLogger(logLevels[CLI.LogLevel], logFormats[CLI.LogFormat])
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
