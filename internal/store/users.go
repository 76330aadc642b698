package store

import (
	"context"
	"fmt"

	"github.com/MediSynth-io/contentplanner/internal/models"
)

const userColumns = `id, email, first_name, last_name, profile_image_url,
	stripe_customer_id, stripe_subscription_id, subscription_status, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.ProfileImageURL,
		&u.StripeCustomerID, &u.StripeSubscriptionID, &u.SubscriptionStatus, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(s.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// UpsertUser inserts the user or refreshes its profile fields. updated_at is always bumped;
// subscription fields are never touched here.
func (s *Store) UpsertUser(ctx context.Context, in models.UpsertUser) (*models.User, error) {
	now := s.timestamp()
	u, err := scanUser(s.queryRow(ctx, `
		INSERT INTO users (id, email, first_name, last_name, profile_image_url, subscription_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			profile_image_url = excluded.profile_image_url,
			updated_at = excluded.updated_at
		RETURNING `+userColumns,
		in.ID, in.Email, in.FirstName, in.LastName, in.ProfileImageURL, models.SubscriptionFree, now, now,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", in.ID, err)
	}
	return u, nil
}

// ActivateSubscription records the payment identifiers and marks the subscription active.
func (s *Store) ActivateSubscription(ctx context.Context, userID, customerID, subscriptionID string) (*models.User, error) {
	return s.LinkSubscription(ctx, userID, customerID, subscriptionID, models.SubscriptionActive)
}

// LinkSubscription ties a user to the provider's customer and subscription ids and
// sets the status they report. An unknown user yields nil, nil.
func (s *Store) LinkSubscription(ctx context.Context, userID, customerID, subscriptionID string, status models.SubscriptionStatus) (*models.User, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid subscription status %q", status)
	}
	u, err := scanUser(s.queryRow(ctx, `
		UPDATE users SET
			stripe_customer_id = ?,
			stripe_subscription_id = ?,
			subscription_status = ?,
			updated_at = ?
		WHERE id = ?
		RETURNING `+userColumns,
		customerID, subscriptionID, status, s.timestamp(), userID,
	))
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("link subscription for %s: %w", userID, err)
	}
	return u, nil
}

// UpdateSubscriptionStatusByExternalID updates every user linked to the payment
// provider's subscription id. It reports whether any user matched.
func (s *Store) UpdateSubscriptionStatusByExternalID(ctx context.Context, subscriptionID string, status models.SubscriptionStatus) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("invalid subscription status %q", status)
	}
	res, err := s.exec(ctx,
		"UPDATE users SET subscription_status = ?, updated_at = ? WHERE stripe_subscription_id = ?",
		status, s.timestamp(), subscriptionID,
	)
	if err != nil {
		return false, fmt.Errorf("update subscription %s: %w", subscriptionID, err)
	}
	return rowsAffected(res)
}
