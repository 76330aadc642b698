package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/MediSynth-io/contentplanner/internal/models"
)

const contentColumns = `id, user_id, title, description, platform, scheduled_date, status,
	template_id, reminder_sent, created_at`

func scanContentItem(row scanner) (*models.ContentItem, error) {
	c := &models.ContentItem{}
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Description, &c.Platform, &c.ScheduledDate,
		&c.Status, &c.TemplateID, &c.ReminderSent, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListContentItems returns items ordered by scheduled date. A nil owner lists everything.
func (s *Store) ListContentItems(ctx context.Context, ownerID *string) ([]models.ContentItem, error) {
	q := "SELECT " + contentColumns + " FROM content_items"
	var args []any
	if ownerID != nil {
		q += " WHERE user_id = ?"
		args = append(args, *ownerID)
	}
	q += " ORDER BY scheduled_date, created_at"

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list content items: %w", err)
	}
	defer rows.Close()

	items := []models.ContentItem{}
	for rows.Next() {
		c, err := scanContentItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content item: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// GetContentItem retrieves a single item by id.
func (s *Store) GetContentItem(ctx context.Context, id string) (*models.ContentItem, error) {
	c, err := scanContentItem(s.queryRow(ctx, "SELECT "+contentColumns+" FROM content_items WHERE id = ?", id))
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get content item %s: %w", id, err)
	}
	return c, nil
}

// CreateContentItem persists a new item. ID and CreatedAt are assigned here and
// reminderSent always starts false.
func (s *Store) CreateContentItem(ctx context.Context, item models.ContentItem) (*models.ContentItem, error) {
	item.ID = newID()
	item.CreatedAt = s.timestamp()
	item.ReminderSent = false
	if item.Status == "" {
		item.Status = models.StatusDraft
	}

	c, err := scanContentItem(s.queryRow(ctx, `
		INSERT INTO content_items (id, user_id, title, description, platform, scheduled_date, status, template_id, reminder_sent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+contentColumns,
		item.ID, item.UserID, item.Title, item.Description, item.Platform, utc(item.ScheduledDate),
		item.Status, item.TemplateID, item.ReminderSent, item.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("create content item: %w", err)
	}
	return c, nil
}

// UpdateContentItem applies a partial patch. An unknown id yields nil, nil.
func (s *Store) UpdateContentItem(ctx context.Context, id string, patch models.ContentPatch) (*models.ContentItem, error) {
	if patch.Empty() {
		return s.GetContentItem(ctx, id)
	}

	var sets []string
	var args []any
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Platform != nil {
		sets = append(sets, "platform = ?")
		args = append(args, *patch.Platform)
	}
	if patch.ScheduledDate != nil {
		sets = append(sets, "scheduled_date = ?")
		args = append(args, utc(*patch.ScheduledDate))
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.TemplateID != nil {
		sets = append(sets, "template_id = ?")
		args = append(args, *patch.TemplateID)
	}
	args = append(args, id)

	c, err := scanContentItem(s.queryRow(ctx,
		"UPDATE content_items SET "+strings.Join(sets, ", ")+" WHERE id = ? RETURNING "+contentColumns,
		args...,
	))
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update content item %s: %w", id, err)
	}
	return c, nil
}

// DeleteContentItem hard-deletes an item and reports whether a row was removed.
// Reminders go with it through the foreign key cascade.
func (s *Store) DeleteContentItem(ctx context.Context, id string) (bool, error) {
	res, err := s.exec(ctx, "DELETE FROM content_items WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete content item %s: %w", id, err)
	}
	return rowsAffected(res)
}
