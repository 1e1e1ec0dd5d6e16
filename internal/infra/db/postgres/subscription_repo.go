package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/avelinov/trendwatch/internal/domain/subscriptions"
)

type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert creates or replaces the user's subscription
func (r *SubscriptionRepository) Upsert(ctx context.Context, s *domain.Subscription) error {
	const q = `
INSERT INTO subscriptions (user_id, category, enabled, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id) DO UPDATE SET
 category=EXCLUDED.category, enabled=EXCLUDED.enabled, updated_at=EXCLUDED.updated_at;
`
	now := s.UpdatedAt
	if now.IsZero() {
		now = time.Now()
	}
	created := s.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := r.db.ExecContext(ctx, q, s.UserID, s.Category, s.Enabled, created, now)
	return err
}

// Get returns one subscription; sql.ErrNoRows when absent
func (r *SubscriptionRepository) Get(ctx context.Context, userID string) (*domain.Subscription, error) {
	const q = `
SELECT user_id, category, enabled, created_at, updated_at
FROM subscriptions WHERE user_id=$1 LIMIT 1;
`
	var s domain.Subscription
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(
		&s.UserID, &s.Category, &s.Enabled, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete removes the subscription
func (r *SubscriptionRepository) Delete(ctx context.Context, userID string) error {
	const q = `DELETE FROM subscriptions WHERE user_id=$1;`
	_, err := r.db.ExecContext(ctx, q, userID)
	return err
}

// ListEnabled returns every active subscription
func (r *SubscriptionRepository) ListEnabled(ctx context.Context) ([]*domain.Subscription, error) {
	const q = `
SELECT user_id, category, enabled, created_at, updated_at
FROM subscriptions WHERE enabled=TRUE ORDER BY user_id;
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Subscription
	for rows.Next() {
		var s domain.Subscription
		if err := rows.Scan(&s.UserID, &s.Category, &s.Enabled, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
