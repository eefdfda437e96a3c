package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sakif/deployhub/internal/apperror"
	"github.com/sakif/deployhub/internal/model"
	"github.com/sakif/deployhub/internal/repository"
)

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

type UserStore struct {
	conn *sql.DB
}

// UpsertIdentity inserts the user or refreshes an existing one.
//
// ON CONFLICT against the (external_id, provider) unique index keeps the
// existing row id, so repeated logins never create duplicates. Only the
// token and login time change on conflict: extra_data is the profile seen
// at first login.
//
// The row is then read back to pick up the id and first created_at.
func (s *UserStore) UpsertIdentity(ctx context.Context, u *model.User) error {
	if u.Provider == "" {
		u.Provider = model.ProviderGitHub
	}
	extra := string(u.ExtraData)
	if extra == "" {
		extra = "{}"
	}

	now := time.Now().UTC()
	u.LastLogin = &now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (external_id, provider, extra_data, access_token, last_login, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(external_id, provider) DO UPDATE SET
			access_token = excluded.access_token,
			last_login   = excluded.last_login,
			updated_at   = excluded.updated_at`,
		u.ExternalID,
		u.Provider,
		extra,
		u.AccessToken,
		now,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user (external_id=%d): %w", u.ExternalID, err)
	}

	stored, err := s.scanOne(s.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE external_id = ? AND provider = ?`,
		u.ExternalID, u.Provider,
	))
	if err != nil {
		return fmt.Errorf("sqlite: reading back user (external_id=%d): %w", u.ExternalID, err)
	}
	*u = *stored
	return nil
}

// GetUserByID retrieves a user by its internal id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (s *UserStore) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.scanOne(s.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return u, nil
}

// Delete removes a user and, through the cascades, everything it owns.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %d: %w", id, err)
	}
	return checkAffected(result, apperror.NotFound("user", id))
}

const userColumns = `id, external_id, provider, extra_data, access_token, last_login, created_at, updated_at`

// scanOne reads a row selected with userColumns. sql.ErrNoRows is returned
// unwrapped so callers can compare against it.
func (s *UserStore) scanOne(row *sql.Row) (*model.User, error) {
	var (
		u     model.User
		extra string
	)
	if err := row.Scan(
		&u.ID,
		&u.ExternalID,
		&u.Provider,
		&extra,
		&u.AccessToken,
		&u.LastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.ExtraData = json.RawMessage(extra)
	return &u, nil
}
