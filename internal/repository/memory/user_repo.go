package memory

import (
	"context"
	"time"

	"github.com/dom/vidshare-backend/internal/domain"
	"github.com/dom/vidshare-backend/internal/repository"
)

type userRepository struct {
	sc *scope
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.sc.run(func(st *state) error {
		for _, u := range st.users {
			if u.Username == user.Username || u.Email == user.Email {
				return repository.ErrDuplicate
			}
		}
		user.ID = st.nextID()
		stamp(&user.CreatedAt)
		stamp(&user.UpdatedAt)
		st.users[user.ID] = *user
		return nil
	})
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id })
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *userRepository) find(match func(domain.User) bool) (*domain.User, error) {
	var found *domain.User
	err := r.sc.run(func(st *state) error {
		for _, u := range st.users {
			if match(u) {
				u := u
				found = &u
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return found, err
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string, exceptID uint) (bool, error) {
	_, err := r.find(func(u domain.User) bool { return u.Username == username && u.ID != exceptID })
	return err == nil, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string, exceptID uint) (bool, error) {
	_, err := r.find(func(u domain.User) bool { return u.Email == email && u.ID != exceptID })
	return err == nil, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uint, name, username, email string) (*domain.User, error) {
	var updated domain.User
	err := r.sc.run(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		for _, other := range st.users {
			if other.ID != id && (other.Username == username || other.Email == email) {
				return repository.ErrDuplicate
			}
		}
		u.Name, u.Username, u.Email = name, username, email
		u.UpdatedAt = time.Now()
		st.users[id] = u
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	return r.sc.run(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		u.Password = passwordHash
		u.UpdatedAt = time.Now()
		st.users[id] = u
		return nil
	})
}

func (r *userRepository) UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) error {
	return r.sc.run(func(st *state) error {
		for id, u := range st.users {
			if u.Email == email {
				u.Password = passwordHash
				u.UpdatedAt = time.Now()
				st.users[id] = u
				return nil
			}
		}
		return repository.ErrNotFound
	})
}
