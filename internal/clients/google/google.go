// Package google signs users in with Google's OAuth 2.0 authorization code
// flow and reads their identity from the OpenID Connect userinfo endpoint.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jobassist/jobassist/internal/api/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const DefaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

var ErrNotConfigured = errors.New("google: client id or secret missing")

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint and UserInfoURL default to Google's. Tests point them at a
	// local server.
	Endpoint    oauth2.Endpoint
	UserInfoURL string

	Timeout time.Duration
}

type Client struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = endpoints.Google
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = DefaultUserInfoURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     cfg.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// AuthCodeURL builds the consent URL carrying state.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

type userInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Exchange trades an authorization code for the user's identity.
func (c *Client) Exchange(ctx context.Context, code string) (domain.FederatedIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return domain.FederatedIdentity{}, fmt.Errorf("google: exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return domain.FederatedIdentity{}, err
	}
	resp, err := c.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return domain.FederatedIdentity{}, fmt.Errorf("google: userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.FederatedIdentity{}, fmt.Errorf("google: userinfo status %d: %s", resp.StatusCode, body)
	}

	var info userInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return domain.FederatedIdentity{}, fmt.Errorf("google: decode userinfo: %w", err)
	}

	return domain.FederatedIdentity{
		Subject:       info.Sub,
		Email:         info.Email,
		Name:          info.Name,
		EmailVerified: info.EmailVerified,
	}, nil
}
