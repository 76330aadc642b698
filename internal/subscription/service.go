// Package subscription moves users between subscription states.
package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/MediSynth-io/contentplanner/internal/models"
	"github.com/MediSynth-io/contentplanner/internal/payment"
	"github.com/MediSynth-io/contentplanner/internal/store"
	"github.com/rs/zerolog"
)

var (
	ErrOrderRequired = errors.New("paypal order id is required")
	ErrNotCompleted  = errors.New("paypal order is not completed")
)

// OrderVerifier confirms an order with the payment provider.
type OrderVerifier interface {
	GetOrder(ctx context.Context, orderID string) (*payment.Order, error)
}

// Service activates and updates subscriptions.
type Service struct {
	store    *store.Store
	verifier OrderVerifier
	log      zerolog.Logger
}

// NewService builds the service. A nil verifier trusts the order id the client reports.
func NewService(s *store.Store, verifier OrderVerifier, log zerolog.Logger) *Service {
	return &Service{store: s, verifier: verifier, log: log.With().Str("component", "subscription").Logger()}
}

// Activate marks the user active after a PayPal checkout. The order id is stored
// as both the customer and subscription reference. An unknown user yields nil, nil.
func (s *Service) Activate(ctx context.Context, userID, orderID string) (*models.User, error) {
	if orderID == "" {
		return nil, ErrOrderRequired
	}
	if s.verifier != nil {
		order, err := s.verifier.GetOrder(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("verify order: %w", err)
		}
		if order == nil || order.Status != payment.OrderCompleted {
			return nil, ErrNotCompleted
		}
	}

	user, err := s.store.ActivateSubscription(ctx, userID, orderID, orderID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		s.log.Info().Str("user_id", userID).Str("order_id", orderID).Msg("Subscription activated")
	}
	return user, nil
}

// SetStatusByExternalID applies a provider-reported status change.
func (s *Service) SetStatusByExternalID(ctx context.Context, subscriptionID string, status models.SubscriptionStatus) error {
	ok, err := s.store.UpdateSubscriptionStatusByExternalID(ctx, subscriptionID, status)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Warn().Str("subscription_id", subscriptionID).Msg("No user linked to subscription")
		return nil
	}
	s.log.Info().Str("subscription_id", subscriptionID).Str("status", string(status)).Msg("Subscription status updated")
	return nil
}
