// Package content manages the lifecycle of a user's content items.
package content

import (
	"context"
	"fmt"
	"time"

	"github.com/MediSynth-io/contentplanner/internal/entitlement"
	"github.com/MediSynth-io/contentplanner/internal/models"
	"github.com/MediSynth-io/contentplanner/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Prefill is what applying a template hands back to the editor. It is never persisted.
type Prefill struct {
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	Content     string          `json:"content"`
	Platform    models.Platform `json:"platform"`
	TemplateID  string          `json:"templateId"`
}

// Manager validates and applies content mutations for a single caller.
type Manager struct {
	store    *store.Store
	validate *validator.Validate
	leadTime time.Duration
	log      zerolog.Logger
}

// NewManager wires a manager. leadTime is how long before the publish date a reminder fires.
func NewManager(s *store.Store, leadTime time.Duration, log zerolog.Logger) *Manager {
	return &Manager{
		store:    s,
		validate: NewValidator(),
		leadTime: leadTime,
		log:      log.With().Str("component", "content").Logger(),
	}
}

func (m *Manager) Get(ctx context.Context, id string) (*models.ContentItem, error) {
	return m.store.GetContentItem(ctx, id)
}

// List returns the owner's items, or every item when ownerID is nil.
func (m *Manager) List(ctx context.Context, ownerID *string) ([]models.ContentItem, error) {
	return m.store.ListContentItems(ctx, ownerID)
}

// Create validates input and persists a new item owned by userID.
func (m *Manager) Create(ctx context.Context, userID string, in CreateInput) (*models.ContentItem, error) {
	if err := check(m.validate, in); err != nil {
		return nil, err
	}
	item := in.item(userID)
	if err := m.checkTemplate(ctx, userID, item.TemplateID); err != nil {
		return nil, err
	}

	var created *models.ContentItem
	err := m.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		created, err = tx.CreateContentItem(ctx, item)
		if err != nil {
			return err
		}
		if created.Status == models.StatusScheduled {
			return m.ensureReminder(ctx, tx, created)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create content item: %w", err)
	}

	m.log.Info().Str("id", created.ID).Str("user_id", userID).Str("status", string(created.Status)).Msg("Content item created")
	return created, nil
}

// Update applies a partial patch. Unknown items and items owned by someone else yield nil, nil.
func (m *Manager) Update(ctx context.Context, userID, id string, in UpdateInput) (*models.ContentItem, error) {
	if err := check(m.validate, in); err != nil {
		return nil, err
	}

	existing, err := m.owned(ctx, userID, id)
	if err != nil || existing == nil {
		return nil, err
	}

	patch := in.patch()
	if err := m.checkTemplate(ctx, userID, patch.TemplateID); err != nil {
		return nil, err
	}

	var updated *models.ContentItem
	err = m.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		updated, err = tx.UpdateContentItem(ctx, id, patch)
		if err != nil || updated == nil {
			return err
		}
		if enteringSchedule(existing, patch) {
			return m.ensureReminder(ctx, tx, updated)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update content item %s: %w", id, err)
	}
	return updated, nil
}

// Delete removes an item owned by userID and reports whether it existed.
func (m *Manager) Delete(ctx context.Context, userID, id string) (bool, error) {
	existing, err := m.owned(ctx, userID, id)
	if err != nil || existing == nil {
		return false, err
	}
	return m.store.DeleteContentItem(ctx, id)
}

// ApplyTemplate returns a prefill for the template if the user may use it.
func (m *Manager) ApplyTemplate(user *models.User, t *models.ContentTemplate) (*Prefill, error) {
	if t == nil {
		return nil, nil
	}
	if err := entitlement.Allow(user, t); err != nil {
		return nil, err
	}
	return &Prefill{
		Title:       t.Title,
		Description: t.Description,
		Content:     t.Content,
		Platform:    t.Platform,
		TemplateID:  t.ID,
	}, nil
}

// ScheduleReminder creates an explicit reminder for one of the caller's items.
// A missing or foreign item yields nil, nil.
func (m *Manager) ScheduleReminder(ctx context.Context, userID string, in ReminderInput) (*models.EmailReminder, error) {
	if err := check(m.validate, in); err != nil {
		return nil, err
	}
	item, err := m.owned(ctx, userID, in.ContentItemID)
	if err != nil || item == nil {
		return nil, err
	}
	when, _ := ParseDate(in.ScheduledFor)
	return m.store.CreateReminder(ctx, models.EmailReminder{
		ContentItemID: item.ID,
		UserID:        userID,
		ScheduledFor:  when,
	})
}

func (m *Manager) owned(ctx context.Context, userID, id string) (*models.ContentItem, error) {
	item, err := m.store.GetContentItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.UserID != userID {
		return nil, nil
	}
	return item, nil
}

func (m *Manager) checkTemplate(ctx context.Context, userID string, templateID *string) error {
	if templateID == nil {
		return nil
	}
	t, err := m.store.GetTemplate(ctx, *templateID)
	if err != nil {
		return err
	}
	if t == nil {
		return invalid("templateId", "Template not found")
	}
	if !t.IsPremium {
		return nil
	}
	user, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	return entitlement.Allow(user, t)
}

// enteringSchedule reports whether a patch moves an item into scheduled for the first time.
// Edits to an already scheduled item and items whose reminder went out never queue another.
func enteringSchedule(existing *models.ContentItem, patch models.ContentPatch) bool {
	if patch.Status == nil || *patch.Status != models.StatusScheduled {
		return false
	}
	return existing.Status != models.StatusScheduled && !existing.ReminderSent
}

// ensureReminder adds a pending reminder unless the item already has one.
func (m *Manager) ensureReminder(ctx context.Context, tx *store.Store, item *models.ContentItem) error {
	pending, err := tx.PendingReminderForItem(ctx, item.ID)
	if err != nil || pending != nil {
		return err
	}
	_, err = tx.CreateReminder(ctx, models.EmailReminder{
		ContentItemID: item.ID,
		UserID:        item.UserID,
		ScheduledFor:  item.ScheduledDate.Add(-m.leadTime),
	})
	return err
}
