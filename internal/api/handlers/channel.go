package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dom/vidshare-backend/internal/api/middleware"
	"github.com/dom/vidshare-backend/internal/service"
	"github.com/dom/vidshare-backend/internal/validation"
	"github.com/go-chi/chi/v5"
)

type ChannelHandler struct {
	channelService *service.ChannelService
}

func NewChannelHandler(channelService *service.ChannelService) *ChannelHandler {
	return &ChannelHandler{channelService: channelService}
}

// Get is open to anonymous viewers; isSubscribed is only present for a
// signed-in viewer.
func (h *ChannelHandler) Get(w http.ResponseWriter, r *http.Request) {
	channel, err := h.channelService.Find(r.Context(), chi.URLParam(r, "username"), middleware.Viewer(r.Context()))
	if err != nil {
		writeError(w, r, err, "Find channel failed")
		return
	}
	writeJSON(w, http.StatusOK, channel)
}

func (h *ChannelHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.channelService.Subscribe, "Subscribe succeed", "Subscribe failed")
}

func (h *ChannelHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.channelService.Unsubscribe, "Unsubscribe succeed", "Unsubscribe failed")
}

type subscriptionOp func(ctx context.Context, channelID, subscriberID uint) error

func (h *ChannelHandler) change(w http.ResponseWriter, r *http.Request, op subscriptionOp, success, fallback string) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	channelID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil || channelID == 0 {
		writeError(w, r, validation.NewFieldError("id", "Must be a valid channel id"), fallback)
		return
	}

	if err := op(r.Context(), uint(channelID), user.ID); err != nil {
		writeError(w, r, err, fallback)
		return
	}
	writeMessage(w, http.StatusOK, success)
}
