package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuthEventKind string

const (
	AuthEventRegistered      AuthEventKind = "registered"
	AuthEventLoginSucceeded  AuthEventKind = "login_succeeded"
	AuthEventLoginFailed     AuthEventKind = "login_failed"
	AuthEventTokenRefreshed  AuthEventKind = "token_refreshed"
	AuthEventRefreshRejected AuthEventKind = "refresh_rejected"
	AuthEventProfileUpdated  AuthEventKind = "profile_updated"
	AuthEventPasswordUpdated AuthEventKind = "password_updated"
	AuthEventResetRequested  AuthEventKind = "reset_requested"
	AuthEventResetThrottled  AuthEventKind = "reset_throttled"
	AuthEventPasswordReset   AuthEventKind = "password_reset"
	AuthEventResetRejected   AuthEventKind = "reset_rejected"
)

// AuthEvent is an append-only audit record of an authentication outcome.
type AuthEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID    *uint          `gorm:"index"`
	Kind      AuthEventKind  `gorm:"not null"`
	Metadata  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
}
