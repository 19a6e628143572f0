package handler

import (
	"log/slog"
	"net/http"

	"github.com/stumpscore/stumpscore/internal/ctxkeys"
	"github.com/stumpscore/stumpscore/internal/model"
	"github.com/stumpscore/stumpscore/internal/respond"
	"github.com/stumpscore/stumpscore/internal/service"
)

// AuthResponse is the body returned by every call that issues a token.
type AuthResponse struct {
	model.UserView
	Token string `json:"token"`
}

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	err := respond.Decode(r, &req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	user, err := h.authService.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.issue(w, r, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	err := respond.Decode(r, &req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	slog.Info("user logged in", "user_id", user.ID)
	h.issue(w, r, http.StatusOK, user)
}

// Google signs in with an authorization code the server redeems itself.
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var cred service.GoogleCredential
	err := respond.Decode(r, &cred)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	user, err := h.authService.GoogleSignIn(r.Context(), cred)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.issue(w, r, http.StatusOK, user)
}

// Logout acknowledges the client's sign-out. Tokens are stateless, so there
// is nothing to revoke server-side.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	slog.Info("user logged out", "user_id", user.ID)

	respond.JSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, status int, user *model.User) {
	token, err := h.authService.GenerateJWT(user)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, status, AuthResponse{UserView: user.View(), Token: token})
}
