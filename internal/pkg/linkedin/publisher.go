package linkedin

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nzci/enrolbridge/app/models"
	"github.com/nzci/enrolbridge/internal/pkg/apperrors"
	"github.com/nzci/enrolbridge/internal/pkg/tokenstore"
)

// Publisher posts content as the single authorized LinkedIn member. It owns
// the expiry policy for the persisted credential: an expired bundle with a
// refresh token is refreshed once and re-persisted; an expired bundle
// without one requires manual re-authorization.
type Publisher struct {
	client *Client
	tokens tokenstore.Store
}

func NewPublisher(client *Client, tokens tokenstore.Store) *Publisher {
	return &Publisher{client: client, tokens: tokens}
}

// Publish posts a text share and returns the remote post ID. It performs
// zero remote calls when no credential is persisted.
func (p *Publisher) Publish(ctx context.Context, text string) (string, error) {
	bundle, err := p.currentBundle(ctx)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(bundle.PersonURN) == "" {
		// Lazy actor resolution, persisted before posting so the next
		// publish skips the userinfo call.
		info, err := p.client.GetUserInfo(ctx, bundle.AccessToken)
		if err != nil {
			return "", &apperrors.ProvisioningError{Op: "resolve linkedin actor", Err: err}
		}
		bundle.PersonURN = info.PersonURN()
		if err := p.tokens.Save(bundle); err != nil {
			return "", fmt.Errorf("persist actor urn: %w", err)
		}
	}

	postID, err := p.client.CreatePost(ctx, bundle.AccessToken, bundle.PersonURN, text)
	if err != nil {
		return "", err
	}
	log.Printf("published linkedin post %s as %s", postID, bundle.PersonURN)
	return postID, nil
}

// Status reports the credential slot without side effects.
func (p *Publisher) Status() (connected bool, personURN string, expiresIn int, err error) {
	bundle, err := p.tokens.Load()
	if err != nil || bundle == nil {
		return false, "", 0, err
	}
	return true, bundle.PersonURN, bundle.ExpiresInSeconds(time.Now()), nil
}

// currentBundle loads the persisted credential and applies the
// refresh-or-reauthorize policy.
func (p *Publisher) currentBundle(ctx context.Context) (*models.OAuthTokenBundle, error) {
	bundle, err := p.tokens.Load()
	if err != nil {
		return nil, fmt.Errorf("load token slot: %w", err)
	}
	if bundle == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if !bundle.Expired(time.Now()) {
		return bundle, nil
	}

	if strings.TrimSpace(bundle.RefreshToken) == "" {
		return nil, fmt.Errorf("access token expired, re-authorization required: %w", apperrors.ErrUnauthorized)
	}

	refreshed, err := p.client.RefreshToken(ctx, bundle.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed, re-authorization required: %w", apperrors.ErrUnauthorized)
	}

	next := &models.OAuthTokenBundle{
		AccessToken:  refreshed.AccessToken,
		RefreshToken: refreshed.RefreshToken,
		ExpiresIn:    refreshed.ExpiresIn,
		PersonURN:    bundle.PersonURN,
		IssuedAt:     time.Now().UTC(),
	}
	if next.RefreshToken == "" {
		next.RefreshToken = bundle.RefreshToken
	}
	if err := p.tokens.Save(next); err != nil {
		return nil, fmt.Errorf("persist refreshed token: %w", err)
	}
	log.Print("refreshed expired linkedin access token")
	return next, nil
}
