// Package seed loads the starter content templates.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"

	"github.com/MediSynth-io/contentplanner/internal/models"
	"github.com/MediSynth-io/contentplanner/internal/store"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

type file struct {
	Templates []models.ContentTemplate `yaml:"templates"`
}

// Parse reads a templates document and checks every entry.
func Parse(r io.Reader) ([]models.ContentTemplate, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	seen := make(map[string]bool, len(f.Templates))
	for i, t := range f.Templates {
		switch {
		case t.Title == "":
			return nil, fmt.Errorf("template %d: title is required", i)
		case t.Content == "":
			return nil, fmt.Errorf("template %q: content is required", t.Title)
		case !t.Platform.Valid():
			return nil, fmt.Errorf("template %q: invalid platform %q", t.Title, t.Platform)
		case seen[t.Title]:
			return nil, fmt.Errorf("template %q: duplicate title", t.Title)
		}
		seen[t.Title] = true
	}
	return f.Templates, nil
}

// Defaults returns the embedded starter templates.
func Defaults() ([]models.ContentTemplate, error) {
	return Parse(bytes.NewReader(defaultTemplates))
}

// Apply upserts the templates and returns how many were written.
func Apply(ctx context.Context, s *store.Store, templates []models.ContentTemplate, log zerolog.Logger) (int, error) {
	n := 0
	err := s.WithTx(ctx, func(tx *store.Store) error {
		for _, t := range templates {
			if _, err := tx.UpsertTemplate(ctx, t); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Info().Int("count", n).Msg("Seeded content templates")
	return n, nil
}
