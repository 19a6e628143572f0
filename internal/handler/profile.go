package handler

import (
	"net/http"

	"github.com/stumpscore/stumpscore/internal/ctxkeys"
	"github.com/stumpscore/stumpscore/internal/respond"
	"github.com/stumpscore/stumpscore/internal/service"
)

type ProfileHandler struct {
	authService         *service.AuthService
	userService         *service.UserService
	subscriptionService *service.SubscriptionService
}

func NewProfileHandler(
	authService *service.AuthService,
	userService *service.UserService,
	subscriptionService *service.SubscriptionService,
) *ProfileHandler {
	return &ProfileHandler{
		authService:         authService,
		userService:         userService,
		subscriptionService: subscriptionService,
	}
}

func (h *ProfileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	respond.JSON(w, http.StatusOK, user.View())
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var upd service.ProfileUpdate
	err := respond.Decode(r, &upd)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	updated, err := h.userService.UpdateProfile(r.Context(), user.ID, upd)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	token, err := h.authService.GenerateJWT(updated)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, AuthResponse{UserView: updated.View(), Token: token})
}

func (h *ProfileHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	sub, err := h.subscriptionService.Status(r.Context(), user.ID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, sub)
}
