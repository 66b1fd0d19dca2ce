package handlers

import (
	"net/http"

	"github.com/dom/vidshare-backend/internal/csrf"
)

type CSRFHandler struct{}

func NewCSRFHandler() *CSRFHandler {
	return &CSRFHandler{}
}

type csrfTokenResponse struct {
	CSRFToken string `json:"csrfToken"`
}

func (h *CSRFHandler) Token(w http.ResponseWriter, r *http.Request) {
	token, err := csrf.Token(r)
	if err != nil {
		writeError(w, r, err, "Failed to generate CSRF token")
		return
	}
	writeJSON(w, http.StatusOK, csrfTokenResponse{CSRFToken: token})
}
