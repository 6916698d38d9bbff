package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Auth0Service performs the server side of the authorization-code flow:
// building the authorize URL, exchanging the code, and fetching the profile.
type Auth0Service struct {
	domain       string
	clientID     string
	clientSecret string
	callbackURL  string
	client       *http.Client
}

// NewAuth0Service creates an Auth0Service.
func NewAuth0Service(domain, clientID, clientSecret, callbackURL string) *Auth0Service {
	return &Auth0Service{
		domain:       strings.TrimSuffix(domain, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		callbackURL:  callbackURL,
		client:       &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether social login can run at all.
func (s *Auth0Service) Configured() bool {
	return s.domain != "" && s.clientID != "" && s.clientSecret != ""
}

// AuthorizeURL builds the browser redirect target for the login flow.
func (s *Auth0Service) AuthorizeURL(state string) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", s.clientID)
	params.Set("redirect_uri", s.callbackURL)
	params.Set("scope", "openid profile email")
	params.Set("state", state)
	return fmt.Sprintf("https://%s/authorize?%s", s.domain, params.Encode())
}

// Profile is what the identity provider tells us about the visitor.
type Profile struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Exchange trades the authorization code for the provider profile.
func (s *Auth0Service) Exchange(ctx context.Context, code string) (*Profile, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", s.callbackURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("https://%s/oauth/token", s.domain),
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth0 token endpoint returned status %d", resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("auth0 returned no access token")
	}

	return s.userinfo(ctx, token.AccessToken)
}

func (s *Auth0Service) userinfo(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("https://%s/userinfo", s.domain), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth0 userinfo returned status %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}

	return &profile, nil
}
