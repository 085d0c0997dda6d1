package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/crucial707/detector/internal/middleware"
	"github.com/crucial707/detector/internal/models"
)

// AccessTokenTTL is how long the browser keeps the access-token cookie.
const AccessTokenTTL = 3 * 24 * time.Hour

// Authenticator exchanges an identity-provider credential for a user and a cookie value.
type Authenticator interface {
	Login(ctx context.Context, credential string) (*models.User, string, error)
}

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	Auth         Authenticator
	CookieSecure bool
	Logger       *zap.Logger
	Now          func() time.Time
}

func (h *AuthHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// ==========================
// Login
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Credentials string `json:"credentials"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	user, token, err := h.Auth.Login(r.Context(), input.Credentials)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  h.now().Add(AccessTokenTTL),
		MaxAge:   int(AccessTokenTTL / time.Second),
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	if h.Logger != nil {
		h.Logger.Info("user logged in", zap.Int64("user_id", user.ID))
	}
	writeJSON(w, http.StatusOK, user)
}

// ==========================
// Current user
// ==========================
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ==========================
// Logout
// ==========================
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
