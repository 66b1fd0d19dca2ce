package memory

import (
	"context"

	"github.com/dom/vidshare-backend/internal/domain"
	"github.com/dom/vidshare-backend/internal/repository"
)

type subscriptionRepository struct {
	sc *scope
}

func (r *subscriptionRepository) Create(ctx context.Context, subscription *domain.Subscription) error {
	return r.sc.run(func(st *state) error {
		for _, s := range st.subscriptions {
			if s.ChannelID == subscription.ChannelID && s.SubscriberID == subscription.SubscriberID {
				return repository.ErrDuplicate
			}
		}
		subscription.ID = st.nextID()
		stamp(&subscription.CreatedAt)
		st.subscriptions = append(st.subscriptions, *subscription)
		return nil
	})
}

func (r *subscriptionRepository) Delete(ctx context.Context, channelID, subscriberID uint) error {
	return r.sc.run(func(st *state) error {
		for i, s := range st.subscriptions {
			if s.ChannelID == channelID && s.SubscriberID == subscriberID {
				st.subscriptions = append(st.subscriptions[:i:i], st.subscriptions[i+1:]...)
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (r *subscriptionRepository) Exists(ctx context.Context, channelID, subscriberID uint) (bool, error) {
	var found bool
	err := r.sc.run(func(st *state) error {
		for _, s := range st.subscriptions {
			if s.ChannelID == channelID && s.SubscriberID == subscriberID {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

func (r *subscriptionRepository) CountByChannel(ctx context.Context, channelID uint) (int64, error) {
	var count int64
	err := r.sc.run(func(st *state) error {
		for _, s := range st.subscriptions {
			if s.ChannelID == channelID {
				count++
			}
		}
		return nil
	})
	return count, err
}

type authEventRepository struct {
	sc *scope
}

func (r *authEventRepository) Create(ctx context.Context, event *domain.AuthEvent) error {
	return r.sc.run(func(st *state) error {
		stamp(&event.CreatedAt)
		st.events = append(st.events, *event)
		return nil
	})
}
