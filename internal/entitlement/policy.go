// Package entitlement decides which users may use premium capabilities.
package entitlement

import "github.com/MediSynth-io/contentplanner/internal/models"

const reasonPremium = "requires premium subscription"

// Gated is implemented by anything that may be locked behind a subscription.
type Gated interface {
	RequiresPremium() bool
}

// Feature is a named premium capability that is not backed by a record.
type Feature string

const (
	FeaturePDFExport    Feature = "pdf_export"
	FeatureTestReminder Feature = "test_reminder"
)

func (Feature) RequiresPremium() bool { return true }

// DeniedError is returned when a user asks for something their subscription does not cover.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return e.Reason
}

// IsPremiumFeatureAllowed reports whether the user holds an active subscription.
func IsPremiumFeatureAllowed(user *models.User) bool {
	return user != nil && user.IsSubscribed()
}

// CanApplyTemplate reports whether the user may apply the template.
func CanApplyTemplate(user *models.User, t *models.ContentTemplate) bool {
	if t == nil {
		return false
	}
	return allowed(user, t)
}

// Allow returns nil when the user may use g, or a *DeniedError otherwise.
func Allow(user *models.User, g Gated) error {
	if g == nil || allowed(user, g) {
		return nil
	}
	return &DeniedError{Reason: reasonPremium}
}

func allowed(user *models.User, g Gated) bool {
	if !g.RequiresPremium() {
		return true
	}
	return IsPremiumFeatureAllowed(user)
}
