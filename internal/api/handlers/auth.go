package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dom/vidshare-backend/internal/api/middleware"
	"github.com/dom/vidshare-backend/internal/service"
	"github.com/dom/vidshare-backend/internal/validation"
)

type AuthHandler struct {
	authService  *service.AuthService
	resetService *service.PasswordResetService
	validate     *validation.Validator
	cookies      CookieSettings
}

func NewAuthHandler(authService *service.AuthService, resetService *service.PasswordResetService, validate *validation.Validator, cookies CookieSettings) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		resetService: resetService,
		validate:     validate,
		cookies:      cookies,
	}
}

type RegisterRequest struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Username             string `json:"username" validate:"required,min=3,max=50,username"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"passwordConfirmation" validate:"required,eqfield=Password"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Username string `json:"username" validate:"required,min=3,max=50,username"`
	Email    string `json:"email" validate:"required,email,max=255"`
}

type UpdatePasswordRequest struct {
	CurrentPassword      string `json:"currentPassword" validate:"required"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"passwordConfirmation" validate:"required,eqfield=Password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email                string `json:"email" validate:"required,email"`
	Token                string `json:"token" validate:"required"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"passwordConfirmation" validate:"required,eqfield=Password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	err := decode(r, h.validate, &req, func() {
		req.Name = strings.TrimSpace(req.Name)
		req.Username = strings.TrimSpace(req.Username)
		req.Email = validation.NormalizeEmail(req.Email)
	})
	if err != nil {
		writeError(w, r, err, "Failed to register account")
		return
	}

	result, err := h.authService.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err, "Failed to register account")
		return
	}

	h.cookies.setAccess(w, result.AccessToken)
	h.cookies.setRefresh(w, result.RefreshToken)
	writeJSON(w, http.StatusCreated, result.User)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, h.validate, &req, nil); err != nil {
		writeError(w, r, err, "Failed to log in account")
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err, "Failed to log in account")
		return
	}

	h.cookies.setAccess(w, result.AccessToken)
	h.cookies.setRefresh(w, result.RefreshToken)
	writeJSON(w, http.StatusOK, result.User)
}

// Refresh never tells the client which check failed.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(h.cookies.RefreshName)
	if err != nil || c.Value == "" {
		writeMessage(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	access, err := h.authService.Refresh(r.Context(), c.Value)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) || errors.Is(err, service.ErrRefreshTokenNotFound) {
			writeMessage(w, http.StatusUnauthorized, msgUnauthenticated)
			return
		}
		writeError(w, r, err, "Failed to refresh token")
		return
	}

	h.cookies.setAccess(w, access)
	writeMessage(w, http.StatusOK, "Refresh token succeed")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) User(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	current, ok := middleware.CurrentUser(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	var req UpdateProfileRequest
	err := decode(r, h.validate, &req, func() {
		req.Name = strings.TrimSpace(req.Name)
		req.Username = strings.TrimSpace(req.Username)
		req.Email = validation.NormalizeEmail(req.Email)
	})
	if err != nil {
		writeError(w, r, err, "Failed to update profile")
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), current.ID, service.ProfileInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		writeError(w, r, err, "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	current, ok := middleware.CurrentUser(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	var req UpdatePasswordRequest
	if err := decode(r, h.validate, &req, nil); err != nil {
		writeError(w, r, err, "Failed to update password")
		return
	}

	err := h.authService.UpdatePassword(r.Context(), current.ID, service.PasswordInput{
		CurrentPassword: req.CurrentPassword,
		Password:        req.Password,
	})
	if err != nil {
		writeError(w, r, err, "Failed to update password")
		return
	}
	writeMessage(w, http.StatusOK, "Update password succeed")
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	err := decode(r, h.validate, &req, func() {
		req.Email = validation.NormalizeEmail(req.Email)
	})
	if err != nil {
		writeError(w, r, err, "Failed to send reset password link email")
		return
	}

	if err := h.resetService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, r, err, "Failed to send reset password link email")
		return
	}
	writeMessage(w, http.StatusOK, "Reset password link email has been sent")
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	err := decode(r, h.validate, &req, func() {
		req.Email = validation.NormalizeEmail(req.Email)
	})
	if err != nil {
		writeError(w, r, err, "Failed to reset password")
		return
	}

	err = h.resetService.ResetPassword(r.Context(), service.ResetInput{
		Email:    req.Email,
		Token:    req.Token,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err, "Failed to reset password")
		return
	}
	writeMessage(w, http.StatusOK, "Reset password succeed")
}
