package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/deployhub/internal/apperror"
	"github.com/sakif/deployhub/internal/github"
	"github.com/sakif/deployhub/internal/model"
)

// GitHubClient is the part of *github.Client these flows use.
type GitHubClient interface {
	AuthorizeURL() string
	LoginURL() string
	ExchangeCode(ctx context.Context, code string) (github.Result, error)
	ListRepositories(ctx context.Context, token string) (github.Result, error)
}

// DetailsAggregator is satisfied by *github.Aggregator.
type DetailsAggregator interface {
	Aggregate(ctx context.Context, token string) (*github.Details, error)
}

// ErrNoAccessToken is returned when a token passed validation but is
// empty once trimmed.
var ErrNoAccessToken = errors.New("Failed to obtain access token")

// GitHubAuth runs the OAuth and repository flows:
//
//	authorize URL → callback code → ExchangeCode → FetchDetails → (session)
//
// It never touches HTTP requests or cookies; the handler establishes the
// session after FetchDetails returns.
type GitHubAuth struct {
	client     GitHubClient
	aggregator DetailsAggregator
	users      *UserDirectory
	logger     *slog.Logger
}

func NewGitHubAuth(client GitHubClient, aggregator DetailsAggregator, users *UserDirectory, logger *slog.Logger) *GitHubAuth {
	return &GitHubAuth{client: client, aggregator: aggregator, users: users, logger: logger}
}

func (s *GitHubAuth) AuthorizeURL() string { return s.client.AuthorizeURL() }

func (s *GitHubAuth) LoginURL() string { return s.client.LoginURL() }

// ExchangeCode performs exactly one token exchange and returns GitHub's
// payload unchanged, whatever its status or shape.
func (s *GitHubAuth) ExchangeCode(ctx context.Context, code string) (json.RawMessage, error) {
	res, err := s.client.ExchangeCode(ctx, code)
	if err != nil {
		s.logger.Error("token exchange failed", slog.String("error", err.Error()))
		return nil, apperror.Upstream("token exchange", err)
	}
	if !res.OK() {
		s.logger.Warn("token exchange returned non-success", slog.Int("status", res.Status))
	}
	return res.Payload, nil
}

// FetchDetails aggregates the token owner's identity and repositories and
// records the login in the user directory.
//
// Errors:
//   - ErrNoAccessToken for a blank token
//   - *github.UpstreamError when GitHub rejected the identity or list call
//   - apperror.ErrUpstream when GitHub could not be reached
func (s *GitHubAuth) FetchDetails(ctx context.Context, token string) (*github.Details, *model.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, ErrNoAccessToken
	}

	details, err := s.aggregator.Aggregate(ctx, token)
	if err != nil {
		var upErr *github.UpstreamError
		if errors.As(err, &upErr) {
			s.logger.Warn("github rejected details request",
				slog.String("call", upErr.Call),
				slog.Int("status", upErr.Status),
			)
			return nil, nil, upErr
		}
		if errors.Is(err, context.Canceled) {
			return nil, nil, err
		}
		return nil, nil, apperror.Upstream("user details", err)
	}

	user, err := s.users.Upsert(ctx, details.UserInfo, token)
	if err != nil {
		return nil, nil, fmt.Errorf("service/github: recording login: %w", err)
	}
	return details, user, nil
}

// ListRepositories returns the raw repository list. ok is false whenever
// GitHub did not answer 200, in which case payload is GitHub's error body.
func (s *GitHubAuth) ListRepositories(ctx context.Context, token string) (payload json.RawMessage, ok bool, err error) {
	res, err := s.client.ListRepositories(ctx, token)
	if err != nil {
		return nil, false, apperror.Upstream("repositories", err)
	}
	if res.Status != 200 {
		s.logger.Info("repository listing refused", slog.Int("status", res.Status))
		return res.Payload, false, nil
	}
	return res.Payload, true, nil
}

// ListRepositoriesForUser lists repositories with the token stored at the
// user's last login.
func (s *GitHubAuth) ListRepositoriesForUser(ctx context.Context, userID int64) (json.RawMessage, bool, error) {
	token, err := s.users.AccessToken(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return s.ListRepositories(ctx, token)
}
