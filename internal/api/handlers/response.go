package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dom/vidshare-backend/internal/service"
	"github.com/dom/vidshare-backend/internal/validation"
	"github.com/rs/zerolog/hlog"
)

const (
	msgValidation      = "Please fix the following errors"
	msgUnauthenticated = "Unauthenticated"
	msgBadBody         = "Invalid request body"
)

var errBadBody = errors.New("invalid request body")

type messageResponse struct {
	Message string `json:"message"`
}

type validationResponse struct {
	Message string                  `json:"message"`
	Errors  []validation.FieldError `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// fieldMessages maps service errors that are reported against a field.
var fieldMessages = map[error]validation.FieldError{
	service.ErrInvalidResetToken: {Field: "token", Message: "Invalid password reset token, please request another!"},
}

var statusMessages = map[error]struct {
	status  int
	message string
}{
	errBadBody:                       {http.StatusBadRequest, msgBadBody},
	service.ErrInvalidCredentials:    {http.StatusUnauthorized, "The given credentials doesn't match our records"},
	service.ErrRefreshTokenNotFound:  {http.StatusUnauthorized, msgUnauthenticated},
	service.ErrUserNotFound:          {http.StatusNotFound, "User not found"},
	service.ErrResetCooldown:         {http.StatusTooManyRequests, "Please wait before retrying"},
	service.ErrMailRejected:          {http.StatusFailedDependency, "The email address has been rejected by the mail server"},
	service.ErrChannelNotFound:       {http.StatusNotFound, "Channel does not exist"},
	service.ErrSubscribeOwnChannel:   {http.StatusBadRequest, "Unable to subscribe to own channel"},
	service.ErrUnsubscribeOwnChannel: {http.StatusBadRequest, "Unable to unsubscribe from own channel"},
	service.ErrAlreadySubscribed:     {http.StatusBadRequest, "Already subscribed to the channel"},
	service.ErrNotSubscribed:         {http.StatusBadRequest, "Never subscribed to the channel"},
}

// writeError maps err to the JSON error taxonomy. Unknown errors are logged
// and answered with fallback.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if verrs, ok := validation.AsErrors(err); ok {
		writeJSON(w, http.StatusBadRequest, validationResponse{Message: msgValidation, Errors: verrs.Fields})
		return
	}

	for target, fe := range fieldMessages {
		if errors.Is(err, target) {
			writeJSON(w, http.StatusBadRequest, validationResponse{Message: msgValidation, Errors: []validation.FieldError{fe}})
			return
		}
	}

	for target, sm := range statusMessages {
		if errors.Is(err, target) {
			writeMessage(w, sm.status, sm.message)
			return
		}
	}

	hlog.FromRequest(r).Error().Err(err).Msg(fallback)
	writeMessage(w, http.StatusInternalServerError, fallback)
}

// decode reads a JSON body into dst, runs normalize when given and then
// validates the result.
func decode(r *http.Request, v *validation.Validator, dst interface{}, normalize func()) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errBadBody
	}
	if normalize != nil {
		normalize()
	}
	return v.Struct(dst)
}
