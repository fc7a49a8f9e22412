package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nzci/enrolbridge/internal/pkg/config"
	"github.com/nzci/enrolbridge/internal/pkg/courses"
	"github.com/nzci/enrolbridge/internal/pkg/edapp"
	"github.com/nzci/enrolbridge/internal/pkg/enrollment"
	"github.com/nzci/enrolbridge/internal/pkg/ledger"
)

type webhookFixture struct {
	app         *fiber.App
	ledgerPath  string
	lookupCalls int64
	createCalls int64
	enrollCalls int64
}

func newWebhookFixture(t *testing.T, enrollStatus int) *webhookFixture {
	t.Helper()
	fx := &webhookFixture{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v2/users":
			atomic.AddInt64(&fx.lookupCalls, 1)
			_ = json.NewEncoder(w).Encode(map[string]any{"users": []any{}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v2/users":
			atomic.AddInt64(&fx.createCalls, 1)
			_ = json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{"_id": "u1"}})
		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/v2/courses/"):
			atomic.AddInt64(&fx.enrollCalls, 1)
			w.WriteHeader(enrollStatus)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		CourseMap:      map[string]string{"wqlta": "6243abf7", "nzci-flexi": "6243abf7"},
		DefaultProduct: "nzci-flexi",
		DefaultCourse:  "6243abf7",
		PriceTiers:     map[int]string{97: "Intro", 497: "Certificate", 997: "Corporate"},
	}
	fx.ledgerPath = filepath.Join(t.TempDir(), "sales.json")
	svc := enrollment.NewService(
		courses.NewResolver(cfg),
		edapp.NewClient("key", srv.URL),
		ledger.NewFileStore(fx.ledgerPath),
		cfg.DefaultProduct,
	)

	fx.app = fiber.New()
	wc := NewWebhookController(svc)
	fx.app.Post("/webhook/gumroad", wc.HandleGumroadWebhook)
	fx.app.Post("/admin/reconcile", wc.HandleReconcile)
	return fx
}

func (fx *webhookFixture) post(t *testing.T, form url.Values) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/gumroad", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := fx.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (fx *webhookFixture) ledgerLines(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(fx.ledgerPath)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestGumroadWebhook_Success(t *testing.T) {
	fx := newWebhookFixture(t, http.StatusOK)

	resp := fx.post(t, url.Values{
		"email":             {"a@x.com"},
		"full_name":         {"Jane"},
		"product_permalink": {"wqlta"},
		"price":             {"9700"},
		"sale_id":           {"s1"},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Intro", body["tier"])
	assert.Equal(t, "6243abf7", body["course_id"])
	assert.Equal(t, "Jane enrolled in NZCI Flexi Intro", body["message"])

	assert.Equal(t, int64(1), atomic.LoadInt64(&fx.lookupCalls))
	assert.Equal(t, int64(1), atomic.LoadInt64(&fx.createCalls))
	assert.Equal(t, int64(1), atomic.LoadInt64(&fx.enrollCalls))

	// One sale line plus one outcome line.
	lines := fx.ledgerLines(t)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"kind":"sale"`)
}

func TestGumroadWebhook_MissingEmailHasNoSideEffects(t *testing.T) {
	fx := newWebhookFixture(t, http.StatusOK)

	resp := fx.post(t, url.Values{"full_name": {"Jane"}})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "No email", body["error"])

	assert.Empty(t, fx.ledgerLines(t))
	assert.Zero(t, atomic.LoadInt64(&fx.lookupCalls))
	assert.Zero(t, atomic.LoadInt64(&fx.enrollCalls))
}

func TestGumroadWebhook_EnrolmentFailureStillLedgers(t *testing.T) {
	fx := newWebhookFixture(t, http.StatusConflict)

	resp := fx.post(t, url.Values{
		"email":   {"a@x.com"},
		"sale_id": {"s1"},
	})
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Enrolment failed", body["error"])

	// Ledger append happened before the provisioning failure.
	lines := fx.ledgerLines(t)
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], `"kind":"sale"`)
}

func TestGumroadWebhook_UnknownProductUsesDefaultCourse(t *testing.T) {
	fx := newWebhookFixture(t, http.StatusOK)

	resp := fx.post(t, url.Values{
		"email":             {"a@x.com"},
		"product_permalink": {"never-heard-of-it"},
		"price":             {"123"},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "6243abf7", body["course_id"])
	assert.Equal(t, "Standard", body["tier"])
}

func TestReconcileEndpoint(t *testing.T) {
	fx := newWebhookFixture(t, http.StatusConflict)

	resp := fx.post(t, url.Values{"email": {"a@x.com"}, "sale_id": {"s1"}})
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/admin/reconcile", nil)
	recResp, err := fx.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, recResp.StatusCode)

	body := decodeBody(t, recResp)
	// Still failing remotely: replayed but not succeeded.
	assert.Equal(t, float64(1), body["replayed"])
	assert.Equal(t, float64(1), body["failed"])
}
