package domain

import "time"

type Subscription struct {
	ID           uint `gorm:"primaryKey"`
	ChannelID    uint `gorm:"uniqueIndex:idx_subscriptions_channel_subscriber;not null"`
	SubscriberID uint `gorm:"uniqueIndex:idx_subscriptions_channel_subscriber;not null"`
	CreatedAt    time.Time
}

// Channel is a user seen as a content publisher.
type Channel struct {
	UserProjection
	SubscriberCount int64 `json:"subscriberCount"`
	// IsSubscribed is only set when the page is viewed by an authenticated user.
	IsSubscribed *bool `json:"isSubscribed,omitempty"`
}
