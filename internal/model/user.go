// Package model defines the data structures used throughout the application.
package model

import (
	"encoding/json"
	"time"
)

// ProviderGitHub is the only identity provider the directory knows about.
const ProviderGitHub = "github"

// User is an identity imported from an external provider.
//
// (ExternalID, Provider) is the natural key: the users table carries a
// UNIQUE index on the pair, and the directory upserts on it.
//
// AccessToken is the most recently obtained bearer token. It may be sealed
// (see auth.TokenSealer) and is never serialized to clients.
type User struct {
	ID          int64           `json:"id"`
	ExternalID  int64           `json:"uid"`
	Provider    string          `json:"provider"`
	ExtraData   json.RawMessage `json:"extra_data"`
	AccessToken *string         `json:"-"`
	LastLogin   *time.Time      `json:"last_login"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
