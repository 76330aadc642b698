package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MediSynth-io/contentplanner/internal/database"
	"github.com/MediSynth-io/contentplanner/internal/models"
)

const reminderColumns = "id, content_item_id, user_id, scheduled_for, sent, claimed_until, created_at"

func scanReminder(row scanner) (*models.EmailReminder, error) {
	r := &models.EmailReminder{}
	err := row.Scan(&r.ID, &r.ContentItemID, &r.UserID, &r.ScheduledFor, &r.Sent, &r.ClaimedUntil, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func collectReminders(rows *sql.Rows) ([]models.EmailReminder, error) {
	defer rows.Close()
	out := []models.EmailReminder{}
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// CreateReminder persists a new, unsent reminder.
func (s *Store) CreateReminder(ctx context.Context, r models.EmailReminder) (*models.EmailReminder, error) {
	out, err := scanReminder(s.queryRow(ctx, `
		INSERT INTO email_reminders (id, content_item_id, user_id, scheduled_for, sent, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+reminderColumns,
		newID(), r.ContentItemID, r.UserID, utc(r.ScheduledFor), false, s.timestamp(),
	))
	if err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}
	return out, nil
}

func (s *Store) GetReminder(ctx context.Context, id string) (*models.EmailReminder, error) {
	r, err := scanReminder(s.queryRow(ctx, "SELECT "+reminderColumns+" FROM email_reminders WHERE id = ?", id))
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder %s: %w", id, err)
	}
	return r, nil
}

// PendingReminders returns unsent reminders that are due at now, ignoring leases.
func (s *Store) PendingReminders(ctx context.Context, now time.Time) ([]models.EmailReminder, error) {
	rows, err := s.query(ctx,
		"SELECT "+reminderColumns+" FROM email_reminders WHERE sent = ? AND scheduled_for <= ? ORDER BY scheduled_for",
		false, utc(now),
	)
	if err != nil {
		return nil, fmt.Errorf("pending reminders: %w", err)
	}
	return collectReminders(rows)
}

// PendingReminderForItem returns the unsent reminder attached to an item, if any.
func (s *Store) PendingReminderForItem(ctx context.Context, contentItemID string) (*models.EmailReminder, error) {
	r, err := scanReminder(s.queryRow(ctx,
		"SELECT "+reminderColumns+" FROM email_reminders WHERE content_item_id = ? AND sent = ? ORDER BY scheduled_for LIMIT 1",
		contentItemID, false,
	))
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pending reminder for item %s: %w", contentItemID, err)
	}
	return r, nil
}

// ClaimDueReminders leases up to limit due reminders to the caller until now+lease.
// A reminder already leased by another dispatcher is skipped until its lease lapses.
func (s *Store) ClaimDueReminders(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]models.DueReminder, error) {
	now = utc(now)
	until := now.Add(lease)

	rows, err := s.query(ctx, `
		UPDATE email_reminders SET claimed_until = ?
		WHERE id IN (
			SELECT id FROM email_reminders
			WHERE sent = ? AND scheduled_for <= ? AND (claimed_until IS NULL OR claimed_until < ?)
			ORDER BY scheduled_for
			LIMIT ?
		)
		AND sent = ? AND (claimed_until IS NULL OR claimed_until < ?)
		RETURNING `+reminderColumns,
		until, false, now, now, limit, false, now,
	)
	if err != nil {
		return nil, fmt.Errorf("claim due reminders: %w", err)
	}
	claimed, err := collectReminders(rows)
	if err != nil {
		return nil, err
	}
	if len(claimed) == 0 {
		return nil, nil
	}

	ids := make([]any, len(claimed))
	byID := make(map[string]models.EmailReminder, len(claimed))
	for i, r := range claimed {
		ids[i] = r.ID
		byID[r.ID] = r
	}

	detailRows, err := s.query(ctx, `
		SELECT r.id, COALESCE(u.email, ''), c.title, c.platform, c.scheduled_date
		FROM email_reminders r
		JOIN content_items c ON c.id = r.content_item_id
		JOIN users u ON u.id = r.user_id
		WHERE r.id IN (`+database.Placeholders(len(ids))+`)
		ORDER BY r.scheduled_for`,
		ids...,
	)
	if err != nil {
		return nil, fmt.Errorf("load claimed reminders: %w", err)
	}
	defer detailRows.Close()

	due := make([]models.DueReminder, 0, len(claimed))
	for detailRows.Next() {
		var id string
		var d models.DueReminder
		if err := detailRows.Scan(&id, &d.Email, &d.Title, &d.Platform, &d.ScheduledDate); err != nil {
			return nil, fmt.Errorf("scan claimed reminder: %w", err)
		}
		d.Reminder = byID[id]
		due = append(due, d)
	}
	return due, detailRows.Err()
}

// MarkReminderSent performs the one-way sent transition and flags the content item.
// It reports false when the reminder was already sent or does not exist.
func (s *Store) MarkReminderSent(ctx context.Context, id string) (bool, error) {
	var marked bool
	err := s.WithTx(ctx, func(tx *Store) error {
		var contentItemID string
		err := tx.queryRow(ctx,
			"UPDATE email_reminders SET sent = ?, claimed_until = NULL WHERE id = ? AND sent = ? RETURNING content_item_id",
			true, id, false,
		).Scan(&contentItemID)
		if notFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("mark reminder %s sent: %w", id, err)
		}

		if _, err := tx.exec(ctx, "UPDATE content_items SET reminder_sent = ? WHERE id = ?", true, contentItemID); err != nil {
			return fmt.Errorf("flag content item %s: %w", contentItemID, err)
		}
		marked = true
		return nil
	})
	return marked, err
}

// ReleaseReminder drops the caller's lease so the next scan can retry the send.
func (s *Store) ReleaseReminder(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, "UPDATE email_reminders SET claimed_until = NULL WHERE id = ? AND sent = ?", id, false); err != nil {
		return fmt.Errorf("release reminder %s: %w", id, err)
	}
	return nil
}
