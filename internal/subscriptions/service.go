package subscriptions

import (
	"context"
	"log/slog"

	"github.com/soradyne/clipstream/internal/apperror"
)

// SubscriptionService contains the toggle business logic.
type SubscriptionService interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (*ToggleResult, error)
}

type subscriptionService struct {
	repo SubscriptionRepository
}

// NewSubscriptionService creates a new subscription service.
func NewSubscriptionService(repo SubscriptionRepository) SubscriptionService {
	return &subscriptionService{repo: repo}
}

// Toggle subscribes the caller to the channel, or unsubscribes when a
// subscription already exists. Subscribing to yourself is rejected.
func (s *subscriptionService) Toggle(ctx context.Context, subscriberID, channelID string) (*ToggleResult, error) {
	if subscriberID == channelID {
		return nil, apperror.NewBadRequest("cannot subscribe to your own channel")
	}

	exists, err := s.repo.ChannelExists(ctx, channelID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if !exists {
		return nil, apperror.NewNotFound("channel not found")
	}

	subscribed, err := s.repo.Exists(ctx, subscriberID, channelID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	if subscribed {
		if err := s.repo.Delete(ctx, subscriberID, channelID); err != nil {
			return nil, apperror.NewInternal(err)
		}
	} else {
		if err := s.repo.Create(ctx, subscriberID, channelID); err != nil {
			return nil, apperror.NewInternal(err)
		}
	}

	slog.Info("subscription toggled",
		"subscriber_id", subscriberID,
		"channel_id", channelID,
		"subscribed", !subscribed,
	)

	return &ToggleResult{Subscribed: !subscribed}, nil
}
