package subscriptions

import "time"

// Subscription binds a user to one category for the daily digest. UserID is
// unique; subscribing again replaces the category.
type Subscription struct {
	UserID    string    `json:"user_id"`
	Category  string    `json:"category"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
