// Package subscriptions manages the subscriber relationship between a
// user and a channel. A channel is just another user; subscribing twice
// toggles the relationship off.
package subscriptions

import "time"

// Subscription links a subscriber to a channel. Both sides are user IDs.
type Subscription struct {
	ID           int64     `json:"id"`
	SubscriberID string    `json:"subscriberId"`
	ChannelID    string    `json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ToggleResult reports the state after a toggle request.
type ToggleResult struct {
	Subscribed bool `json:"subscribed"`
}
