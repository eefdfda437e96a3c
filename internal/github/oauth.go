package github

import "fmt"

// callbackPath is where GitHub sends the browser back with ?code=.
// It must match the "Authorization callback URL" of the OAuth App.
const callbackPath = "/api/auth/github/callback/"

// loginPath is the endpoint that hands out the authorize URL.
const loginPath = "/api/auth/github/"

// AuthorizeURL is the page the user is sent to in order to grant access.
//
// Clients compare against this exact string, so it is assembled by hand
// rather than with oauth2.Config.AuthCodeURL: no escaping of the redirect,
// fixed parameter order, no state parameter.
//
//	https://github.com/login/oauth/authorize?client_id=abc123&scope=user&redirect_uri=http://localhost:8000/api/auth/github/callback/
func (c *Client) AuthorizeURL() string {
	return fmt.Sprintf("%s?client_id=%s&scope=%s&redirect_uri=%s",
		c.oauth.Endpoint.AuthURL,
		c.oauth.ClientID,
		c.oauth.Scopes[0],
		c.oauth.RedirectURL,
	)
}

// CallbackURL is the redirect target registered with GitHub.
func (c *Client) CallbackURL() string {
	return c.oauth.RedirectURL
}

// LoginURL is our own endpoint that starts a fresh login, returned to
// clients whose token no longer works.
func (c *Client) LoginURL() string {
	return c.hostURL + loginPath
}
