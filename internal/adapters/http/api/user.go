package api

import (
	"errors"
	"net/http"

	"github.com/okian/seasonpoints/internal/auth"
	"github.com/okian/seasonpoints/internal/domain/types"
)

// UserHandler greets the browser's signed-in player.
type UserHandler struct {
	auth     Authenticator
	browsers Browsers
}

// NewUserHandler creates a new user handler.
func NewUserHandler(a Authenticator, browsers Browsers) *UserHandler {
	return &UserHandler{auth: a, browsers: browsers}
}

// HandleGetUser handles GET /api/user requests. It never starts a login;
// without a cached token it answers 401.
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tok, err := h.auth.CachedToken(ctx, h.browsers.Local(w, r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", ErrNotSignedIn)
		return
	}
	user, err := h.auth.FetchUser(ctx, tok)
	if err != nil {
		var httpErr *auth.HTTPError
		if errors.As(err, &httpErr) {
			writeError(w, http.StatusBadGateway, "upstream_error", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, types.Welcome{DisplayName: user.DisplayName, Message: auth.WelcomeMessage(user)})
}
