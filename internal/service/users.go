package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sakif/deployhub/internal/apperror"
	"github.com/sakif/deployhub/internal/auth"
	"github.com/sakif/deployhub/internal/model"
	"github.com/sakif/deployhub/internal/repository"
)

// UserDirectory maps GitHub identities to local users.
//
// DEPENDENCIES:
//   - users   repository.UserRepository → upsert on (external_id, provider)
//   - sealer  auth.TokenSealer          → protects the stored access token
//   - logger  *slog.Logger
type UserDirectory struct {
	users  repository.UserRepository
	sealer auth.TokenSealer
	logger *slog.Logger
}

func NewUserDirectory(users repository.UserRepository, sealer auth.TokenSealer, logger *slog.Logger) *UserDirectory {
	if sealer == nil {
		sealer = auth.PlainSealer{}
	}
	return &UserDirectory{users: users, sealer: sealer, logger: logger}
}

// Upsert records a login. identity is the raw GitHub profile payload; its
// numeric "id" is the natural key together with the provider "github".
//
// The first login stores the full payload as extra_data. Every login
// refreshes the access token and last_login. Calling Upsert twice with the
// same identity leaves exactly one user.
func (d *UserDirectory) Upsert(ctx context.Context, identity json.RawMessage, accessToken string) (*model.User, error) {
	var profile struct {
		ID    json.Number `json:"id"`
		Login string      `json:"login"`
	}
	if err := json.Unmarshal(identity, &profile); err != nil {
		return nil, apperror.ValidationFailed("user_info", "Identity payload is not a JSON object.")
	}
	externalID, err := profile.ID.Int64()
	if err != nil || externalID <= 0 {
		return nil, apperror.ValidationFailed("user_info", "Identity payload has no numeric id.")
	}

	sealed, err := d.sealer.Seal(accessToken)
	if err != nil {
		return nil, fmt.Errorf("service/users: sealing access token: %w", err)
	}

	u := &model.User{
		ExternalID:  externalID,
		Provider:    model.ProviderGitHub,
		ExtraData:   identity,
		AccessToken: &sealed,
	}
	if err := d.users.UpsertIdentity(ctx, u); err != nil {
		return nil, fmt.Errorf("service/users: upserting user (external_id=%d): %w", externalID, err)
	}

	d.logger.Info("user logged in via GitHub",
		slog.Int64("user_id", u.ID),
		slog.Int64("external_id", u.ExternalID),
		slog.String("login", profile.Login),
	)
	return u, nil
}

// GetByID returns the user with internal id.
func (d *UserDirectory) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := d.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, wrapLookup("users", id, err)
	}
	return u, nil
}

// AccessToken returns the user's stored GitHub token in the clear.
func (d *UserDirectory) AccessToken(ctx context.Context, id int64) (string, error) {
	u, err := d.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if u.AccessToken == nil {
		return "", apperror.NotFound("access token for user", id)
	}
	token, err := d.sealer.Open(*u.AccessToken)
	if err != nil {
		return "", fmt.Errorf("service/users: opening token of user %d: %w", id, err)
	}
	return token, nil
}
