package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nzci/enrolbridge/app/models"
	"github.com/nzci/enrolbridge/internal/pkg/config"
	"github.com/nzci/enrolbridge/internal/pkg/linkedin"
	"github.com/nzci/enrolbridge/internal/pkg/tokenstore"
)

type linkedInFixture struct {
	app           *fiber.App
	tokens        *tokenstore.FileStore
	exchangeCalls int64
	postCalls     int64
}

func newLinkedInFixture(t *testing.T) *linkedInFixture {
	t.Helper()
	fx := &linkedInFixture{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/accessToken":
			atomic.AddInt64(&fx.exchangeCalls, 1)
			_ = json.NewEncoder(w).Encode(linkedin.TokenResponse{
				AccessToken: "tok-1",
				ExpiresIn:   5184000,
			})
		case "/userinfo":
			_ = json.NewEncoder(w).Encode(linkedin.UserInfo{Sub: "abc", Name: "Jane"})
		case "/ugcPosts":
			atomic.AddInt64(&fx.postCalls, 1)
			w.Header().Set("X-RestLi-Id", "urn:li:share:1")
			w.WriteHeader(http.StatusCreated)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	client := linkedin.NewClient(&config.Config{
		LinkedInClientID:     "client-id",
		LinkedInClientSecret: "client-secret",
		LinkedInRedirectURI:  "https://example.test/linkedin/callback",
	})
	client.TokenURL = srv.URL + "/oauth/accessToken"
	client.APIBaseURL = srv.URL

	fx.tokens = tokenstore.NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	lc := NewLinkedInController(client, fx.tokens)

	fx.app = fiber.New()
	fx.app.Get("/linkedin/auth", lc.HandleAuth)
	fx.app.Get("/linkedin/callback", lc.HandleCallback)
	fx.app.Post("/linkedin/post", lc.HandlePost)
	fx.app.Get("/linkedin/status", lc.HandleStatus)
	return fx
}

func (fx *linkedInFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := fx.app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	return resp
}

func TestLinkedInAuth_RedirectsWithFreshState(t *testing.T) {
	fx := newLinkedInFixture(t)

	resp := fx.get(t, "/linkedin/auth")
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	q := loc.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "openid profile email w_member_social", q.Get("scope"))
	require.NotEmpty(t, q.Get("state"))

	// The issued state is stored and consumable exactly once.
	ok, err := fx.tokens.ConsumeState(q.Get("state"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLinkedInCallback_Success(t *testing.T) {
	fx := newLinkedInFixture(t)

	authResp := fx.get(t, "/linkedin/auth")
	loc, err := url.Parse(authResp.Header.Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")

	resp := fx.get(t, "/linkedin/callback?code=the-code&state="+state)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "connected", body["status"])
	assert.Equal(t, "urn:li:person:abc", body["person_urn"])
	assert.Equal(t, int64(1), atomic.LoadInt64(&fx.exchangeCalls))

	bundle, err := fx.tokens.Load()
	require.NoError(t, err)
	require.NotNil(t, bundle)
	assert.Equal(t, "tok-1", bundle.AccessToken)
	assert.Equal(t, "urn:li:person:abc", bundle.PersonURN)
}

func TestLinkedInCallback_ProviderErrorSkipsExchange(t *testing.T) {
	fx := newLinkedInFixture(t)

	resp := fx.get(t, "/linkedin/callback?error=access_denied&error_description=user+cancelled")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "access_denied", body["error"])
	assert.Equal(t, "user cancelled", body["error_description"])
	assert.Zero(t, atomic.LoadInt64(&fx.exchangeCalls))
}

func TestLinkedInCallback_StateMismatchSkipsExchange(t *testing.T) {
	fx := newLinkedInFixture(t)

	resp := fx.get(t, "/linkedin/callback?code=the-code&state=forged")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "state mismatch", body["error"])
	assert.Zero(t, atomic.LoadInt64(&fx.exchangeCalls))
}

func TestLinkedInPost_WithoutTokenIs401AndNoRemoteCalls(t *testing.T) {
	fx := newLinkedInFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/linkedin/post", strings.NewReader(`{"text":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := fx.app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, atomic.LoadInt64(&fx.postCalls))
}

func TestLinkedInPost_EmptyTextIs400(t *testing.T) {
	fx := newLinkedInFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/linkedin/post", strings.NewReader(`{"text":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := fx.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLinkedInPost_Success(t *testing.T) {
	fx := newLinkedInFixture(t)
	require.NoError(t, fx.tokens.Save(&models.OAuthTokenBundle{
		AccessToken: "tok-1",
		ExpiresIn:   3600,
		PersonURN:   "urn:li:person:abc",
		IssuedAt:    time.Now().UTC(),
	}))

	req := httptest.NewRequest(http.MethodPost, "/linkedin/post", strings.NewReader(`{"text":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := fx.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "posted", body["status"])
	assert.Equal(t, "urn:li:share:1", body["post_id"])
}

func TestLinkedInStatus(t *testing.T) {
	fx := newLinkedInFixture(t)

	resp := fx.get(t, "/linkedin/status")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, false, body["connected"])

	require.NoError(t, fx.tokens.Save(&models.OAuthTokenBundle{
		AccessToken: "tok-1",
		ExpiresIn:   3600,
		PersonURN:   "urn:li:person:abc",
		IssuedAt:    time.Now().UTC(),
	}))

	resp = fx.get(t, "/linkedin/status")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, "urn:li:person:abc", body["person_urn"])
	assert.NotZero(t, body["expires_in"])
}
