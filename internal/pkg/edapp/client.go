package edapp

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
)

// Client talks to the EdApp REST API. All calls are blocking, single-attempt
// and bounded by the HTTP client timeout; the first failure is final.
type Client struct {
	APIKey  string
	BaseURL string

	HTTPClient *http.Client
}

// User is the subset of the EdApp user resource this service reads.
type User struct {
	ID        string `json:"_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Activated bool   `json:"activated"`
}

func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		APIKey:  strings.TrimSpace(apiKey),
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FindUserByEmail queries the directory for an exact email match and returns
// the first hit. The directory does not guarantee uniqueness; when multiple
// accounts share an email the pick is first-match with undefined order.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, errors.New("email is required")
	}

	u, err := url.Parse(c.BaseURL + "/api/v2/users")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("email", email)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("edapp user lookup failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out struct {
		Users []User `json:"users"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if len(out.Users) == 0 {
		return nil, nil
	}
	return &out.Users[0], nil
}

// CreateUser issues a directory create with activation forced true.
func (c *Client) CreateUser(ctx context.Context, email, name string) (*User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, errors.New("email is required")
	}

	payload, err := json.Marshal(map[string]any{
		"email":     email,
		"name":      name,
		"activated": true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v2/users", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("edapp user create failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out struct {
		User User `json:"user"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.User.ID) == "" {
		return nil, errors.New("edapp user create returned empty user id")
	}
	return &out.User, nil
}

// Enroll adds a user to a course roster. The remote system tolerates
// duplicate adds, so there is no pre-existence check.
func (c *Client) Enroll(ctx context.Context, userID, courseID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(courseID) == "" {
		return errors.New("user id and course id are required")
	}

	payload, err := json.Marshal(map[string]any{
		"users": []string{userID},
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/api/v2/courses/%s/users", c.BaseURL, url.PathEscape(courseID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("edapp enrolment failed: status=%d body=%s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "ApiKey "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
