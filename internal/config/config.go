// Package config loads and validates project configuration.
//
// A project carries one YAML document describing how its proofed pages are
// published: one publish entry per output text (a project may hold several
// texts, e.g. a mula and its commentary), plus the printed page-number spec.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/TulsiPress/core/errors"
	"github.com/FocuswithJustin/TulsiPress/core/filter"
	"github.com/FocuswithJustin/TulsiPress/internal/pagemap"
)

// DefaultLanguage is the ISO 639 code assumed when a publish entry names none.
const DefaultLanguage = "sa"

// PublishConfig describes one published text assembled from the project.
type PublishConfig struct {
	// Slug is the published text's identifier.
	Slug string `yaml:"slug"`
	// Title is the text's display title.
	Title string `yaml:"title"`
	// Target selects the project blocks belonging to this text: a bare
	// block label or an s-expression filter.
	Target string `yaml:"target,omitempty"`
	Author string `yaml:"author,omitempty"`
	// Language is the text's primary language code.
	Language string `yaml:"language,omitempty"`
	// ParentSlug nests this text under another published text.
	ParentSlug string `yaml:"parent_slug,omitempty"`
}

// ProjectConfig is a project's full configuration document.
type ProjectConfig struct {
	Publish []PublishConfig `yaml:"publish"`
	// PageNumbers is the printed page-number spec, one rule per line.
	PageNumbers string `yaml:"page_numbers,omitempty"`
}

// Parse unmarshals and validates a configuration document. Defaults are
// filled in: a publish entry with no language is Sanskrit.
func Parse(data []byte) (*ProjectConfig, error) {
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.NewParse("config YAML", "", err.Error())
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	for i := range cfg.Publish {
		if cfg.Publish[i].Language == "" {
			cfg.Publish[i].Language = DefaultLanguage
		}
	}
	return &cfg, nil
}

// Load reads and parses a configuration file.
func Load(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	return Parse(data)
}

func (c *ProjectConfig) validate() error {
	seen := make(map[string]bool)
	for i, p := range c.Publish {
		if p.Slug == "" {
			return errors.NewValidation("publish", fmt.Sprintf("entry %d: slug is required", i+1))
		}
		if seen[p.Slug] {
			return &errors.ValidationError{
				Field:   "publish",
				Value:   p.Slug,
				Message: fmt.Sprintf("entry %d: duplicate slug", i+1),
			}
		}
		seen[p.Slug] = true
		if p.Title == "" {
			return errors.NewValidation("publish", fmt.Sprintf("entry %d (%s): title is required", i+1, p.Slug))
		}
		if _, err := filter.Compile(p.Target); err != nil {
			return &errors.ValidationError{
				Field:   "publish",
				Value:   p.Target,
				Message: fmt.Sprintf("entry %d (%s): bad target: %v", i+1, p.Slug, err),
				Err:     err,
			}
		}
	}
	if _, err := pagemap.ParseSpec(c.PageNumbers); err != nil {
		return err
	}
	return nil
}

// Entry returns the publish entry with the given slug.
func (c *ProjectConfig) Entry(slug string) (*PublishConfig, error) {
	for i := range c.Publish {
		if c.Publish[i].Slug == slug {
			return &c.Publish[i], nil
		}
	}
	return nil, errors.NewNotFound("publish entry", slug)
}
