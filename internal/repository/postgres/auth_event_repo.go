package postgres

import (
	"context"

	"github.com/dom/vidshare-backend/internal/domain"
	"gorm.io/gorm"
)

type authEventRepository struct {
	db *gorm.DB
}

func NewAuthEventRepository(db *gorm.DB) *authEventRepository {
	return &authEventRepository{db: db}
}

func (r *authEventRepository) Create(ctx context.Context, event *domain.AuthEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
