package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dom/vidshare-backend/internal/domain"
	"github.com/dom/vidshare-backend/internal/repository"
)

type ChannelService struct {
	users         repository.UserRepository
	subscriptions repository.SubscriptionRepository
}

func NewChannelService(users repository.UserRepository, subscriptions repository.SubscriptionRepository) *ChannelService {
	return &ChannelService{users: users, subscriptions: subscriptions}
}

// Find returns the channel of username. IsSubscribed is only set when a
// viewer is given.
func (s *ChannelService) Find(ctx context.Context, username string, viewer *domain.UserProjection) (*domain.Channel, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("find channel: %w", err)
	}

	count, err := s.subscriptions.CountByChannel(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count subscribers: %w", err)
	}

	channel := &domain.Channel{
		UserProjection:  *domain.ProjectUser(user),
		SubscriberCount: count,
	}
	if viewer != nil {
		subscribed, err := s.subscriptions.Exists(ctx, user.ID, viewer.ID)
		if err != nil {
			return nil, fmt.Errorf("check subscription: %w", err)
		}
		channel.IsSubscribed = &subscribed
	}
	return channel, nil
}

func (s *ChannelService) Subscribe(ctx context.Context, channelID, subscriberID uint) error {
	if channelID == subscriberID {
		return ErrSubscribeOwnChannel
	}
	if err := s.ensureChannel(ctx, channelID); err != nil {
		return err
	}

	err := s.subscriptions.Create(ctx, &domain.Subscription{ChannelID: channelID, SubscriberID: subscriberID})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrAlreadySubscribed
		}
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (s *ChannelService) Unsubscribe(ctx context.Context, channelID, subscriberID uint) error {
	if channelID == subscriberID {
		return ErrUnsubscribeOwnChannel
	}
	if err := s.ensureChannel(ctx, channelID); err != nil {
		return err
	}

	if err := s.subscriptions.Delete(ctx, channelID, subscriberID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotSubscribed
		}
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

func (s *ChannelService) ensureChannel(ctx context.Context, channelID uint) error {
	if _, err := s.users.GetByID(ctx, channelID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrChannelNotFound
		}
		return fmt.Errorf("find channel: %w", err)
	}
	return nil
}
