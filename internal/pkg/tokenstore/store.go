package tokenstore

import (
	"time"

	"github.com/nzci/enrolbridge/app/models"
)

// Store persists the single LinkedIn credential slot plus short-lived OAuth
// state nonces. The token slot is a whole-object overwrite with no versioning;
// concurrent authorize/publish operations race under last-write-wins
// semantics. Unlike the sale ledger, write failures here propagate to the
// caller: losing a token silently would strand the publish flow.
type Store interface {
	// Load returns the current bundle, or (nil, nil) when none is persisted.
	Load() (*models.OAuthTokenBundle, error)
	// Save replaces the whole bundle.
	Save(bundle *models.OAuthTokenBundle) error

	// SaveState stores an anti-forgery nonce for the authorization redirect.
	SaveState(state string, ttl time.Duration) error
	// ConsumeState validates and deletes a nonce, returning whether it was
	// present and unexpired. A nonce is single-use.
	ConsumeState(state string) (bool, error)
}
