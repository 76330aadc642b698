package models

import "time"

// ContentTemplate is shared, read-only reference data used to prefill content items.
type ContentTemplate struct {
	ID          string    `json:"id" db:"id" yaml:"-"`
	Title       string    `json:"title" db:"title" yaml:"title"`
	Description *string   `json:"description" db:"description" yaml:"description"`
	Content     string    `json:"content" db:"content" yaml:"content"`
	Platform    Platform  `json:"platform" db:"platform" yaml:"platform"`
	Category    string    `json:"category" db:"category" yaml:"category"`
	IsPremium   bool      `json:"isPremium" db:"is_premium" yaml:"isPremium"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at" yaml:"-"`
}

// RequiresPremium makes templates gateable by the entitlement policy.
func (t *ContentTemplate) RequiresPremium() bool {
	return t != nil && t.IsPremium
}
