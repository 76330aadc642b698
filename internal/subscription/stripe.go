package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MediSynth-io/contentplanner/internal/models"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

var ErrBadSignature = errors.New("invalid webhook signature")

// statusFromStripe maps Stripe subscription states onto ours. Unlisted states are ignored.
func statusFromStripe(s stripe.SubscriptionStatus) (models.SubscriptionStatus, bool) {
	switch s {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return models.SubscriptionActive, true
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return models.SubscriptionPastDue, true
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return models.SubscriptionCancelled, true
	}
	return "", false
}

// UserMetadataKey is the Stripe subscription metadata key carrying our user id.
const UserMetadataKey = "user_id"

// HandleStripeEvent verifies and applies a Stripe webhook payload.
// Checkout completion and subscription events carrying our user id link the user to the
// Stripe subscription; later subscription events match users by that subscription id.
func (s *Service) HandleStripeEvent(ctx context.Context, payload []byte, signature, secret string) error {
	event, err := webhook.ConstructEvent(payload, signature, secret)
	if err != nil {
		s.log.Warn().Err(err).Msg("Stripe signature verification failed")
		return ErrBadSignature
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		return s.linkCheckout(ctx, &session)
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
	default:
		s.log.Debug().Str("type", string(event.Type)).Msg("Unhandled Stripe event")
		return nil
	}

	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}

	status, ok := models.SubscriptionCancelled, true
	if event.Type != "customer.subscription.deleted" {
		status, ok = statusFromStripe(sub.Status)
	}
	if !ok {
		return nil
	}
	if userID := sub.Metadata[UserMetadataKey]; userID != "" {
		return s.link(ctx, userID, customerID(sub.Customer), sub.ID, status)
	}
	return s.SetStatusByExternalID(ctx, sub.ID, status)
}

// linkCheckout links the checkout's client_reference_id user to the created subscription.
func (s *Service) linkCheckout(ctx context.Context, session *stripe.CheckoutSession) error {
	if session.ClientReferenceID == "" || session.Subscription == nil || session.Subscription.ID == "" {
		s.log.Debug().Str("session_id", session.ID).Msg("Checkout session without user or subscription")
		return nil
	}
	return s.link(ctx, session.ClientReferenceID, customerID(session.Customer), session.Subscription.ID, models.SubscriptionActive)
}

func (s *Service) link(ctx context.Context, userID, customer, subscriptionID string, status models.SubscriptionStatus) error {
	user, err := s.store.LinkSubscription(ctx, userID, customer, subscriptionID, status)
	if err != nil {
		return err
	}
	if user == nil {
		s.log.Warn().Str("user_id", userID).Str("subscription_id", subscriptionID).Msg("Stripe subscription references unknown user")
		return nil
	}
	s.log.Info().Str("user_id", userID).Str("subscription_id", subscriptionID).Str("status", string(status)).Msg("Stripe subscription linked")
	return nil
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}
