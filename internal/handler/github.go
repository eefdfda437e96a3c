package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/deployhub/internal/apperror"
	"github.com/sakif/deployhub/internal/auth"
	"github.com/sakif/deployhub/internal/github"
	"github.com/sakif/deployhub/internal/model"
	"github.com/sakif/deployhub/internal/service"
	"github.com/sakif/deployhub/internal/validate"
)

// GitHubFlows is implemented by *service.GitHubAuth.
type GitHubFlows interface {
	AuthorizeURL() string
	LoginURL() string
	ExchangeCode(ctx context.Context, code string) (json.RawMessage, error)
	FetchDetails(ctx context.Context, token string) (*github.Details, *model.User, error)
	ListRepositories(ctx context.Context, token string) (json.RawMessage, bool, error)
	ListRepositoriesForUser(ctx context.Context, userID int64) (json.RawMessage, bool, error)
}

var _ GitHubFlows = (*service.GitHubAuth)(nil)

// GitHubHandler serves the /api/auth/github endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleAuthorize     → the URL a browser should visit to grant access
//   - HandleCallback      → echo the code GitHub redirected back with
//   - HandleAccessToken   → exchange a code for a token payload
//   - HandleFetchDetails  → identity + repositories + branches, then log in
//   - HandleRepositories  → the raw repository list, or a login hint
type GitHubHandler struct {
	flows    GitHubFlows
	sessions *auth.SessionManager
	logger   *slog.Logger
}

func NewGitHubHandler(flows GitHubFlows, sessions *auth.SessionManager, logger *slog.Logger) *GitHubHandler {
	return &GitHubHandler{flows: flows, sessions: sessions, logger: logger}
}

type codeInput struct {
	Code *string `json:"code" validate:"required,notblank,min=20"`
}

type tokenInput struct {
	AccessToken *string `json:"access_token" validate:"required,notblank,min=40"`
}

// HandleAuthorize
//
// HTTP: GET /api/auth/github/
func (h *GitHubHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "Authorize URL", h.flows.AuthorizeURL())
}

// HandleCallback is where GitHub redirects after the user grants access.
// It does not exchange the code; the client posts it to access-token.
//
// HTTP: GET /api/auth/github/callback/?code=xxx
func (h *GitHubHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeMessage(w, http.StatusBadRequest, "error", "Code not provided")
		return
	}
	writeMessage(w, http.StatusOK, "code", code)
}

// HandleAccessToken exchanges an authorization code. GitHub's payload is
// returned under "data" exactly as received, error payloads included.
//
// HTTP: GET|POST /api/auth/github/access-token/  field: code
func (h *GitHubHandler) HandleAccessToken(w http.ResponseWriter, r *http.Request) {
	var in codeInput
	if !h.bindAuthField(w, r, "code", &in.Code, &in) {
		return
	}

	payload, err := h.flows.ExchangeCode(r.Context(), *in.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"data": payload})
}

// HandleFetchDetails aggregates what GitHub knows about the token owner,
// records the login and starts a session.
//
// HTTP: GET|POST /api/auth/github/fetch-details/  field: access_token
//
// Responses:
//   - 200 {"user_info": {...}, "repositories": [...]} plus the session cookie
//   - 400 field errors, or {"error": "Failed to obtain access token"}
//   - 400 {"error": "Failed to fetch user details", "status": N} when GitHub
//     refused the identity or repository-list call
//   - 502 when GitHub could not be reached
func (h *GitHubHandler) HandleFetchDetails(w http.ResponseWriter, r *http.Request) {
	var in tokenInput
	if !h.bindAuthField(w, r, "access_token", &in.AccessToken, &in) {
		return
	}

	details, user, err := h.flows.FetchDetails(r.Context(), *in.AccessToken)
	if err != nil {
		var upErr *github.UpstreamError
		switch {
		case errors.Is(err, service.ErrNoAccessToken):
			writeMessage(w, http.StatusBadRequest, "error", service.ErrNoAccessToken.Error())
		case errors.As(err, &upErr):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "Failed to fetch user details",
				"status": upErr.Status,
			})
		default:
			h.logger.Error("fetch details failed", slog.String("error", err.Error()))
			writeError(w, err)
		}
		return
	}

	if err := h.sessions.Establish(w, user.ID); err != nil {
		h.logger.Error("establishing session failed",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// HandleRepositories returns the token owner's repositories.
//
// Any upstream status other than 200 produces a 200 login hint rather than
// an error, so clients can send the user back through authorization.
//
// HTTP: POST /api/auth/github/repo/  field: access_token
func (h *GitHubHandler) HandleRepositories(w http.ResponseWriter, r *http.Request) {
	var in tokenInput
	if !h.bindAuthField(w, r, "access_token", &in.AccessToken, &in) {
		return
	}

	payload, ok, err := h.flows.ListRepositories(r.Context(), *in.AccessToken)
	h.writeRepositories(w, payload, ok, err)
}

// HandleMyRepositories lists repositories with the session user's stored
// token.
//
// HTTP: GET /api/auth/me/repositories/
// Auth: Required
func (h *GitHubHandler) HandleMyRepositories(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	payload, ok, err := h.flows.ListRepositoriesForUser(r.Context(), userID)
	if errors.Is(err, apperror.ErrNotFound) {
		// The user or their token is gone; same hint as a refused token.
		err, ok = nil, false
	}
	h.writeRepositories(w, payload, ok, err)
}

func (h *GitHubHandler) writeRepositories(w http.ResponseWriter, payload json.RawMessage, ok bool, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{
			"msg": "Login Required",
			"URL": h.flows.LoginURL(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"Repository": payload})
}

// bindAuthField reads one string parameter into *dst and validates in.
// It writes the error response itself and reports whether to continue.
func (h *GitHubHandler) bindAuthField(w http.ResponseWriter, r *http.Request, name string, dst **string, in any) bool {
	fields, err := bodyFields(w, r)
	if err != nil {
		writeError(w, err)
		return false
	}
	if v, found := requestField(fields, r, name); found {
		*dst = &v
	}
	if err := validate.Struct(in); err != nil {
		writeError(w, err)
		return false
	}
	return true
}
