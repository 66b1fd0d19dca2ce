package memory

import (
	"context"

	"github.com/dom/vidshare-backend/internal/domain"
	"github.com/dom/vidshare-backend/internal/repository"
)

type refreshTokenRepository struct {
	sc *scope
}

func (r *refreshTokenRepository) Replace(ctx context.Context, token *domain.RefreshToken) error {
	return r.sc.run(func(st *state) error {
		token.ID = st.nextID()
		stamp(&token.CreatedAt)
		st.refreshTokens[token.UserID] = *token
		return nil
	})
}

func (r *refreshTokenRepository) GetByUserID(ctx context.Context, userID uint) (*domain.RefreshToken, error) {
	var found domain.RefreshToken
	err := r.sc.run(func(st *state) error {
		t, ok := st.refreshTokens[userID]
		if !ok {
			return repository.ErrNotFound
		}
		found = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

type resetPasswordRepository struct {
	sc *scope
}

func (r *resetPasswordRepository) Replace(ctx context.Context, request *domain.ResetPasswordRequest) error {
	return r.sc.run(func(st *state) error {
		st.resetRequests = withoutEmail(st.resetRequests, request.Email)
		request.ID = st.nextID()
		stamp(&request.CreatedAt)
		st.resetRequests = append(st.resetRequests, *request)
		return nil
	})
}

func (r *resetPasswordRepository) GetLatestByEmail(ctx context.Context, email string) (*domain.ResetPasswordRequest, error) {
	var latest *domain.ResetPasswordRequest
	err := r.sc.run(func(st *state) error {
		for _, req := range st.resetRequests {
			if req.Email != email {
				continue
			}
			if latest == nil || req.CreatedAt.After(latest.CreatedAt) {
				req := req
				latest = &req
			}
		}
		if latest == nil {
			return repository.ErrNotFound
		}
		return nil
	})
	return latest, err
}

func (r *resetPasswordRepository) Delete(ctx context.Context, id uint) error {
	return r.sc.run(func(st *state) error {
		for i, req := range st.resetRequests {
			if req.ID == id {
				st.resetRequests = append(st.resetRequests[:i:i], st.resetRequests[i+1:]...)
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (r *resetPasswordRepository) DeleteByEmail(ctx context.Context, email string) error {
	return r.sc.run(func(st *state) error {
		st.resetRequests = withoutEmail(st.resetRequests, email)
		return nil
	})
}

func withoutEmail(requests []domain.ResetPasswordRequest, email string) []domain.ResetPasswordRequest {
	kept := requests[:0:0]
	for _, req := range requests {
		if req.Email != email {
			kept = append(kept, req)
		}
	}
	return kept
}
