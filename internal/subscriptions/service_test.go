package subscriptions

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/soradyne/clipstream/internal/apperror"
)

// --- Mock Repository ---

// mockSubRepo implements SubscriptionRepository for testing.
type mockSubRepo struct {
	existsFn        func(ctx context.Context, subscriberID, channelID string) (bool, error)
	createFn        func(ctx context.Context, subscriberID, channelID string) error
	deleteFn        func(ctx context.Context, subscriberID, channelID string) error
	channelExistsFn func(ctx context.Context, channelID string) (bool, error)

	createCount int
	deleteCount int
}

func (m *mockSubRepo) Exists(ctx context.Context, subscriberID, channelID string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, subscriberID, channelID)
	}
	return false, nil
}

func (m *mockSubRepo) Create(ctx context.Context, subscriberID, channelID string) error {
	m.createCount++
	if m.createFn != nil {
		return m.createFn(ctx, subscriberID, channelID)
	}
	return nil
}

func (m *mockSubRepo) Delete(ctx context.Context, subscriberID, channelID string) error {
	m.deleteCount++
	if m.deleteFn != nil {
		return m.deleteFn(ctx, subscriberID, channelID)
	}
	return nil
}

func (m *mockSubRepo) ChannelExists(ctx context.Context, channelID string) (bool, error) {
	if m.channelExistsFn != nil {
		return m.channelExistsFn(ctx, channelID)
	}
	return true, nil
}

// --- Tests ---

func TestToggle_Subscribe(t *testing.T) {
	repo := &mockSubRepo{}
	svc := NewSubscriptionService(repo)

	result, err := svc.Toggle(context.Background(), "user-1", "channel-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Subscribed {
		t.Error("expected subscribed true after toggling on")
	}
	if repo.createCount != 1 || repo.deleteCount != 0 {
		t.Errorf("expected one create, got create=%d delete=%d", repo.createCount, repo.deleteCount)
	}
}

func TestToggle_Unsubscribe(t *testing.T) {
	repo := &mockSubRepo{
		existsFn: func(ctx context.Context, subscriberID, channelID string) (bool, error) {
			return true, nil
		},
	}
	svc := NewSubscriptionService(repo)

	result, err := svc.Toggle(context.Background(), "user-1", "channel-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Subscribed {
		t.Error("expected subscribed false after toggling off")
	}
	if repo.deleteCount != 1 || repo.createCount != 0 {
		t.Errorf("expected one delete, got create=%d delete=%d", repo.createCount, repo.deleteCount)
	}
}

func TestToggle_SelfSubscribe(t *testing.T) {
	svc := NewSubscriptionService(&mockSubRepo{})

	_, err := svc.Toggle(context.Background(), "user-1", "user-1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestToggle_UnknownChannel(t *testing.T) {
	repo := &mockSubRepo{
		channelExistsFn: func(ctx context.Context, channelID string) (bool, error) {
			return false, nil
		},
	}
	svc := NewSubscriptionService(repo)

	_, err := svc.Toggle(context.Background(), "user-1", "ghost-channel")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
