// Package github talks to the GitHub OAuth endpoints and REST API.
//
// The client is deliberately thin: it returns raw payloads wrapped in a
// Result and leaves every decision about upstream failures to its caller.
package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 8 << 20

type Config struct {
	ClientID     string
	ClientSecret string
	HostURL      string // our own public base URL

	TokenURL     string // default: GitHub's token endpoint
	UserInfoURL  string
	UserReposURL string

	// Timeout bounds each outbound call. Zero means no timeout.
	Timeout time.Duration
	// RequestsPerSecond caps outbound calls across the whole client.
	// Zero or less means unlimited.
	RequestsPerSecond float64

	// HTTPClient overrides the transport, mostly for tests. Its own Timeout
	// is cleared; calls are bounded by Timeout through their context.
	HTTPClient *http.Client
}

// Client issues the outbound calls. It is safe for concurrent use.
type Client struct {
	oauth    *oauth2.Config
	hostURL  string
	userURL  string
	reposURL string

	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	endpoint := oauthgithub.Endpoint
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	hostURL := strings.TrimRight(cfg.HostURL, "/")

	httpClient := &http.Client{}
	if cfg.HTTPClient != nil {
		c := *cfg.HTTPClient
		httpClient = &c
	}
	// http.Client.Timeout over oauth2.Transport ends in the deprecated
	// CancelRequest, which writes to the stdlib log.
	httpClient.Timeout = 0

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  hostURL + callbackPath,
			Scopes:       []string{"user"},
		},
		hostURL:  hostURL,
		userURL:  cfg.UserInfoURL,
		reposURL: cfg.UserReposURL,
		http:     httpClient,
		timeout:  cfg.Timeout,
		limiter:  limiter,
		logger:   logger,
	}
}

// ExchangeCode trades a one-time authorization code for a token payload.
//
// The payload is returned as GitHub sent it. GitHub reports a bad or
// expired code with a 200 and an "error" field, so no shape checks happen
// here.
func (c *Client) ExchangeCode(ctx context.Context, code string) (Result, error) {
	form := url.Values{
		"client_id":     {c.oauth.ClientID},
		"client_secret": {c.oauth.ClientSecret},
		"code":          {code},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauth.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("github: building token exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	return c.do(ctx, c.http, "token exchange", req)
}

// FetchIdentity returns the profile of the token's owner.
func (c *Client) FetchIdentity(ctx context.Context, token string) (Result, error) {
	return c.get(ctx, token, "identity", c.userURL)
}

// ListRepositories returns the first page of the token owner's repositories.
func (c *Client) ListRepositories(ctx context.Context, token string) (Result, error) {
	return c.get(ctx, token, "repositories", c.reposURL)
}

// ListBranches returns the branches of one repository. repoURL is the
// repository's API url as found in the repositories payload.
func (c *Client) ListBranches(ctx context.Context, token, repoURL string) (Result, error) {
	return c.get(ctx, token, "branches", strings.TrimRight(repoURL, "/")+"/branches")
}

func (c *Client) get(ctx context.Context, token, call, target string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Result{}, fmt.Errorf("github: building %s request: %w", call, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	// oauth2.NewClient wraps our transport and adds the Authorization
	// header from the static token source.
	authed := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, c.http),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
	)

	return c.do(ctx, authed, call, req)
}

func (c *Client) do(ctx context.Context, hc *http.Client, call string, req *http.Request) (Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("github: waiting to send %s request: %w", call, err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("github: %s request: %w", call, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{}, fmt.Errorf("github: reading %s response: %w", call, err)
	}

	c.logger.Debug("github call",
		slog.String("call", call),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	return Result{Status: resp.StatusCode, Payload: asPayload(body)}, nil
}
