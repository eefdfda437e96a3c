package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/deployhub/internal/auth"
	"github.com/sakif/deployhub/internal/model"
	"github.com/sakif/deployhub/internal/service"
)

// UserLookup is implemented by *service.UserDirectory.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

var _ UserLookup = (*service.UserDirectory)(nil)

// SessionHandler reports and ends the cookie session started by
// fetch-details.
type SessionHandler struct {
	users    UserLookup
	sessions *auth.SessionManager
	logger   *slog.Logger
}

func NewSessionHandler(users UserLookup, sessions *auth.SessionManager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{users: users, sessions: sessions, logger: logger}
}

// HandleMe returns the logged-in user. The stored access token is never
// serialized.
//
// HTTP: GET /api/auth/me/
// Auth: Required (RequireAuth sets the user id in the context)
func (h *SessionHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.logger.Warn("session user lookup failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleLogout expires the session cookie. The JWT itself stays valid
// until it expires; without the cookie the browser no longer sends it.
//
// HTTP: POST /api/auth/logout/
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	writeMessage(w, http.StatusOK, "message", "logged out")
}
