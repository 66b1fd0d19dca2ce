package domain

import (
	"time"
)

type User struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Username  string `gorm:"uniqueIndex;not null"`
	Email     string `gorm:"uniqueIndex;not null"`
	Password  string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserProjection is the only shape in which a user leaves the service.
type UserProjection struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func ProjectUser(u *User) *UserProjection {
	if u == nil {
		return nil
	}
	return &UserProjection{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		Email:    u.Email,
	}
}

// RefreshToken holds the hash of the single live refresh token of a user.
type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"uniqueIndex;not null"`
	Token     string `gorm:"not null"`
	CreatedAt time.Time
}

// ResetPasswordRequest is keyed by email on purpose: the address does not
// have to belong to a registered user.
type ResetPasswordRequest struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"index;not null"`
	Token     string `gorm:"not null"`
	CreatedAt time.Time
}

// IsExpired reports whether the request is older than ttl at now.
func (r *ResetPasswordRequest) IsExpired(ttl time.Duration, now time.Time) bool {
	return !now.Before(r.CreatedAt.Add(ttl))
}

// IsRecent reports whether the request was created at most cooldown ago.
func (r *ResetPasswordRequest) IsRecent(cooldown time.Duration, now time.Time) bool {
	return !now.After(r.CreatedAt.Add(cooldown))
}
