package models

import (
	"time"
)

// SubscriptionStatus is the billing state of a user. It is the only input to premium gating.
type SubscriptionStatus string

const (
	SubscriptionFree      SubscriptionStatus = "free"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
)

// Valid reports whether s is one of the known subscription states.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionFree, SubscriptionActive, SubscriptionCancelled, SubscriptionPastDue:
		return true
	}
	return false
}

// User represents a user in the system. The ID is the subject issued by the identity provider.
type User struct {
	ID                   string             `json:"id" db:"id"`
	Email                *string            `json:"email" db:"email"`
	FirstName            *string            `json:"firstName" db:"first_name"`
	LastName             *string            `json:"lastName" db:"last_name"`
	ProfileImageURL      *string            `json:"profileImageUrl" db:"profile_image_url"`
	StripeCustomerID     *string            `json:"stripeCustomerId" db:"stripe_customer_id"`
	StripeSubscriptionID *string            `json:"stripeSubscriptionId" db:"stripe_subscription_id"`
	SubscriptionStatus   SubscriptionStatus `json:"subscriptionStatus" db:"subscription_status"`
	CreatedAt            time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time          `json:"updatedAt" db:"updated_at"`
}

// IsSubscribed returns true if the user's subscription is currently active
func (u *User) IsSubscribed() bool {
	return u != nil && u.SubscriptionStatus == SubscriptionActive
}

// EmailAddress returns the user's email or an empty string.
func (u *User) EmailAddress() string {
	if u == nil || u.Email == nil {
		return ""
	}
	return *u.Email
}

// UpsertUser is the profile snapshot received from the identity provider on login.
type UpsertUser struct {
	ID              string
	Email           *string
	FirstName       *string
	LastName        *string
	ProfileImageURL *string
}
