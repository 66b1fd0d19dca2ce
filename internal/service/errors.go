package service

import "errors"

var (
	ErrInvalidCredentials   = errors.New("the given credentials doesn't match our records")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrUserNotFound         = errors.New("user not found")

	ErrInvalidResetToken = errors.New("invalid password reset token, please request another")
	ErrResetCooldown     = errors.New("please wait before retrying")
	ErrMailRejected      = errors.New("the email address has been rejected by the mail server")

	ErrChannelNotFound       = errors.New("channel does not exist")
	ErrSubscribeOwnChannel   = errors.New("unable to subscribe to own channel")
	ErrUnsubscribeOwnChannel = errors.New("unable to unsubscribe from own channel")
	ErrAlreadySubscribed     = errors.New("already subscribed to the channel")
	ErrNotSubscribed         = errors.New("never subscribed to the channel")
)
