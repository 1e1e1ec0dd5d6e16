package subscriptions

import "context"

// Repository port for subscription CRUD
type Repository interface {
	Upsert(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, userID string) (*Subscription, error)
	Delete(ctx context.Context, userID string) error
	ListEnabled(ctx context.Context) ([]*Subscription, error)
}
