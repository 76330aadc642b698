package models

import "time"

// Platform is where a piece of content gets published.
type Platform string

const (
	PlatformSocial Platform = "social"
	PlatformEmail  Platform = "email"
	PlatformBlog   Platform = "blog"
)

// Platforms lists every accepted platform in display order.
var Platforms = []Platform{PlatformSocial, PlatformEmail, PlatformBlog}

func (p Platform) Valid() bool {
	switch p {
	case PlatformSocial, PlatformEmail, PlatformBlog:
		return true
	}
	return false
}

// ContentStatus is the lifecycle state of a content item.
// Any status may be set directly; there is no transition guard.
type ContentStatus string

const (
	StatusDraft     ContentStatus = "draft"
	StatusScheduled ContentStatus = "scheduled"
	StatusPosted    ContentStatus = "posted"
)

func (s ContentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusPosted:
		return true
	}
	return false
}

// ContentItem is a single piece of plannable content owned by one user.
type ContentItem struct {
	ID            string        `json:"id" db:"id"`
	UserID        string        `json:"userId" db:"user_id"`
	Title         string        `json:"title" db:"title"`
	Description   *string       `json:"description" db:"description"`
	Platform      Platform      `json:"platform" db:"platform"`
	ScheduledDate time.Time     `json:"scheduledDate" db:"scheduled_date"`
	Status        ContentStatus `json:"status" db:"status"`
	TemplateID    *string       `json:"templateId" db:"template_id"`
	ReminderSent  bool          `json:"reminderSent" db:"reminder_sent"`
	CreatedAt     time.Time     `json:"createdAt" db:"created_at"`
}

// ContentPatch carries the fields of a partial update. Nil fields are left untouched.
type ContentPatch struct {
	Title         *string
	Description   *string
	Platform      *Platform
	ScheduledDate *time.Time
	Status        *ContentStatus
	TemplateID    *string
}

// Empty reports whether the patch changes nothing.
func (p ContentPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Platform == nil &&
		p.ScheduledDate == nil && p.Status == nil && p.TemplateID == nil
}
