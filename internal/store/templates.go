package store

import (
	"context"
	"fmt"

	"github.com/MediSynth-io/contentplanner/internal/models"
)

const templateColumns = "id, title, description, content, platform, category, is_premium, created_at"

func scanTemplate(row scanner) (*models.ContentTemplate, error) {
	t := &models.ContentTemplate{}
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Content, &t.Platform, &t.Category, &t.IsPremium, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTemplates returns every template, free ones first.
func (s *Store) ListTemplates(ctx context.Context) ([]models.ContentTemplate, error) {
	rows, err := s.query(ctx, "SELECT "+templateColumns+" FROM content_templates ORDER BY is_premium, category, title")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := []models.ContentTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*models.ContentTemplate, error) {
	t, err := scanTemplate(s.queryRow(ctx, "SELECT "+templateColumns+" FROM content_templates WHERE id = ?", id))
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template %s: %w", id, err)
	}
	return t, nil
}

// UpsertTemplate inserts a template keyed by title, or refreshes the existing one in place.
// Only the seeding command writes templates.
func (s *Store) UpsertTemplate(ctx context.Context, t models.ContentTemplate) (*models.ContentTemplate, error) {
	out, err := scanTemplate(s.queryRow(ctx, `
		INSERT INTO content_templates (id, title, description, content, platform, category, is_premium, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (title) DO UPDATE SET
			description = excluded.description,
			content = excluded.content,
			platform = excluded.platform,
			category = excluded.category,
			is_premium = excluded.is_premium
		RETURNING `+templateColumns,
		newID(), t.Title, t.Description, t.Content, t.Platform, t.Category, t.IsPremium, s.timestamp(),
	))
	if err != nil {
		return nil, fmt.Errorf("upsert template %q: %w", t.Title, err)
	}
	return out, nil
}
