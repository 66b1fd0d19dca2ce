package postgres

import (
	"context"

	"github.com/dom/vidshare-backend/internal/domain"
	"github.com/dom/vidshare-backend/internal/repository"
	"gorm.io/gorm"
)

type resetPasswordRepository struct {
	db *gorm.DB
}

func NewResetPasswordRepository(db *gorm.DB) *resetPasswordRepository {
	return &resetPasswordRepository{db: db}
}

func (r *resetPasswordRepository) Replace(ctx context.Context, request *domain.ResetPasswordRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", request.Email).Delete(&domain.ResetPasswordRequest{}).Error; err != nil {
			return err
		}
		return tx.Create(request).Error
	})
}

func (r *resetPasswordRepository) GetLatestByEmail(ctx context.Context, email string) (*domain.ResetPasswordRequest, error) {
	var request domain.ResetPasswordRequest
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at DESC, id DESC").
		Take(&request).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &request, nil
}

func (r *resetPasswordRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.ResetPasswordRequest{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *resetPasswordRepository) DeleteByEmail(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).Where("email = ?", email).Delete(&domain.ResetPasswordRequest{}).Error
}
