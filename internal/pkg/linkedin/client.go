package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nzci/enrolbridge/internal/pkg/apperrors"
	"github.com/nzci/enrolbridge/internal/pkg/config"
)

const (
	defaultAuthorizeURL = "https://www.linkedin.com/oauth/v2/authorization"
	defaultTokenURL     = "https://www.linkedin.com/oauth/v2/accessToken"
	defaultAPIBaseURL   = "https://api.linkedin.com/v2"

	// Requested consent set: identity for actor resolution, posting rights.
	oauthScopes = "openid profile email w_member_social"
)

// Client drives LinkedIn's authorization-code handshake and the two API
// calls this service makes (userinfo, ugcPosts). All calls are blocking and
// single-attempt with a fixed timeout.
type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	AuthorizeURL string
	TokenURL     string
	APIBaseURL   string

	HTTPClient *http.Client
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

type UserInfo struct {
	Sub   string `json:"sub"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PersonURN is the canonical actor identifier used as post author.
func (u *UserInfo) PersonURN() string {
	return "urn:li:person:" + u.Sub
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		ClientID:     cfg.LinkedInClientID,
		ClientSecret: cfg.LinkedInClientSecret,
		RedirectURI:  cfg.LinkedInRedirectURI,
		AuthorizeURL: defaultAuthorizeURL,
		TokenURL:     defaultTokenURL,
		APIBaseURL:   defaultAPIBaseURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) AuthorizeURLWithState(state string) (string, error) {
	if strings.TrimSpace(c.ClientID) == "" {
		return "", errors.New("LINKEDIN_CLIENT_ID is not configured")
	}
	if strings.TrimSpace(c.RedirectURI) == "" {
		return "", errors.New("LINKEDIN_REDIRECT_URI is not configured")
	}
	u, err := url.Parse(c.AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("invalid authorize URL: %w", err)
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURI)
	q.Set("scope", oauthScopes)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("oauth code is required")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", strings.TrimSpace(code))
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("redirect_uri", c.RedirectURI)

	return c.tokenGrant(ctx, form)
}

// RefreshToken trades a refresh token for a fresh bundle. LinkedIn only
// issues refresh tokens to approved applications; callers must handle its
// absence.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, errors.New("refresh token is required")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", strings.TrimSpace(refreshToken))
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)

	return c.tokenGrant(ctx, form)
}

func (c *Client) tokenGrant(ctx context.Context, form url.Values) (*TokenResponse, error) {
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
		return nil, errors.New("LINKEDIN_CLIENT_ID/LINKEDIN_CLIENT_SECRET are not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("linkedin token grant failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out TokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return nil, errors.New("linkedin token grant returned empty access_token")
	}
	return &out, nil
}

// GetUserInfo resolves the authorized member via the OpenID userinfo call.
func (c *Client) GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, errors.New("access token is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.APIBaseURL, "/")+"/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("linkedin userinfo failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out UserInfo
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Sub) == "" {
		return nil, errors.New("linkedin userinfo response missing sub")
	}
	return &out, nil
}

// CreatePost publishes a text-only share with public visibility and returns
// the remote-assigned post ID.
func (c *Client) CreatePost(ctx context.Context, accessToken, authorURN, text string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"author":         authorURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]any{"text": text},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.APIBaseURL, "/")+"/ugcPosts", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &apperrors.PublishError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if id := strings.TrimSpace(resp.Header.Get("X-RestLi-Id")); id != "" {
		return id, nil
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err == nil && strings.TrimSpace(out.ID) != "" {
		return out.ID, nil
	}
	return "", errors.New("linkedin post response missing post id")
}
