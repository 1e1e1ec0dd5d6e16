package subscriptions

import (
	"context"
	"fmt"

	"github.com/avelinov/trendwatch/internal/application"
	domain "github.com/avelinov/trendwatch/internal/domain/subscriptions"
)

// Service implements subscription CRUD. One category per user; subscribing
// again replaces the previous category.
type Service struct {
	Repo  domain.Repository
	Clock application.Clock
}

// Subscribe creates or updates the user's subscription
func (s *Service) Subscribe(ctx context.Context, userID, category string, enabled bool) (*domain.Subscription, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if enabled && category == "" {
		return nil, fmt.Errorf("category is required for an enabled subscription")
	}
	now := s.Clock.Now()
	sub := &domain.Subscription{
		UserID:    userID,
		Category:  category,
		Enabled:   enabled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Upsert(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Get returns one user's subscription
func (s *Service) Get(ctx context.Context, userID string) (*domain.Subscription, error) {
	return s.Repo.Get(ctx, userID)
}

// Unsubscribe removes the user's subscription entirely
func (s *Service) Unsubscribe(ctx context.Context, userID string) error {
	return s.Repo.Delete(ctx, userID)
}

// ListEnabled returns all active subscriptions, used by the digest job
func (s *Service) ListEnabled(ctx context.Context) ([]*domain.Subscription, error) {
	return s.Repo.ListEnabled(ctx)
}
