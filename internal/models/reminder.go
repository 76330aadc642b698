package models

import "time"

// EmailReminder is a pending or sent notification tied to a content item.
// Sent moves from false to true once and never back.
type EmailReminder struct {
	ID            string     `json:"id" db:"id"`
	ContentItemID string     `json:"contentItemId" db:"content_item_id"`
	UserID        string     `json:"userId" db:"user_id"`
	ScheduledFor  time.Time  `json:"scheduledFor" db:"scheduled_for"`
	Sent          bool       `json:"sent" db:"sent"`
	ClaimedUntil  *time.Time `json:"-" db:"claimed_until"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
}

// DueReminder is a claimed reminder joined with what is needed to render and address it.
type DueReminder struct {
	Reminder      EmailReminder
	Email         string
	Title         string
	Platform      Platform
	ScheduledDate time.Time
}
