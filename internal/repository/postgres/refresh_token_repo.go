package postgres

import (
	"context"

	"github.com/dom/vidshare-backend/internal/domain"
	"gorm.io/gorm"
)

type refreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *refreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Replace(ctx context.Context, token *domain.RefreshToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", token.UserID).Delete(&domain.RefreshToken{}).Error; err != nil {
			return err
		}
		return translateError(tx.Create(token).Error)
	})
}

func (r *refreshTokenRepository) GetByUserID(ctx context.Context, userID uint) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	if err := r.db.WithContext(ctx).Take(&token, "user_id = ?", userID).Error; err != nil {
		return nil, translateError(err)
	}
	return &token, nil
}
