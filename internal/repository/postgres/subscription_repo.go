package postgres

import (
	"context"

	"github.com/dom/vidshare-backend/internal/domain"
	"github.com/dom/vidshare-backend/internal/repository"
	"gorm.io/gorm"
)

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *subscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, subscription *domain.Subscription) error {
	return translateError(r.db.WithContext(ctx).Create(subscription).Error)
}

func (r *subscriptionRepository) Delete(ctx context.Context, channelID, subscriberID uint) error {
	res := r.db.WithContext(ctx).
		Where("channel_id = ? AND subscriber_id = ?", channelID, subscriberID).
		Delete(&domain.Subscription{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *subscriptionRepository) Exists(ctx context.Context, channelID, subscriberID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("channel_id = ? AND subscriber_id = ?", channelID, subscriberID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *subscriptionRepository) CountByChannel(ctx context.Context, channelID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("channel_id = ?", channelID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
