package models

import "time"

// OAuthTokenBundle is the single persisted LinkedIn credential. Every update
// replaces the whole bundle; there is no history and no merge beyond the
// explicit person URN overlay after the userinfo call.
type OAuthTokenBundle struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int       `json:"expires_in"`
	PersonURN    string    `json:"person_urn,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`
}

// Expired reports whether the expiry hint has elapsed. A zero ExpiresIn is
// treated as non-expiring because some providers omit the hint.
func (t *OAuthTokenBundle) Expired(now time.Time) bool {
	if t.ExpiresIn <= 0 {
		return false
	}
	return now.After(t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second))
}

// ExpiresInSeconds returns the remaining lifetime hint, floored at zero.
func (t *OAuthTokenBundle) ExpiresInSeconds(now time.Time) int {
	if t.ExpiresIn <= 0 {
		return 0
	}
	remaining := int(t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second).Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}
