package subscriptions

import (
	"context"
	"database/sql"
	"fmt"
)

// SubscriptionRepository handles subscription persistence.
type SubscriptionRepository interface {
	Exists(ctx context.Context, subscriberID, channelID string) (bool, error)
	Create(ctx context.Context, subscriberID, channelID string) error
	Delete(ctx context.Context, subscriberID, channelID string) error
	ChannelExists(ctx context.Context, channelID string) (bool, error)
}

type subscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository creates a MySQL-backed subscription repository.
func NewSubscriptionRepository(db *sql.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Exists reports whether the subscriber currently follows the channel.
func (r *subscriptionRepository) Exists(ctx context.Context, subscriberID, channelID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM subscriptions WHERE subscriber_id = ? AND channel_id = ?)",
		subscriberID, channelID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking subscription: %w", err)
	}
	return exists, nil
}

// Create inserts the subscription row.
func (r *subscriptionRepository) Create(ctx context.Context, subscriberID, channelID string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO subscriptions (subscriber_id, channel_id) VALUES (?, ?)",
		subscriberID, channelID,
	)
	if err != nil {
		return fmt.Errorf("creating subscription: %w", err)
	}
	return nil
}

// Delete removes the subscription row if present.
func (r *subscriptionRepository) Delete(ctx context.Context, subscriberID, channelID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM subscriptions WHERE subscriber_id = ? AND channel_id = ?",
		subscriberID, channelID,
	)
	if err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}
	return nil
}

// ChannelExists reports whether a user with the given ID exists.
func (r *subscriptionRepository) ChannelExists(ctx context.Context, channelID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", channelID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking channel: %w", err)
	}
	return exists, nil
}
