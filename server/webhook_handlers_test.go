package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-1511/Facebook-Helpdesk/auth"
	"github.com/aman-1511/Facebook-Helpdesk/profile"
	"github.com/aman-1511/Facebook-Helpdesk/processor"
	"github.com/aman-1511/Facebook-Helpdesk/store"
)

type webhookFixture struct {
	server *Server
	store  *processor.MockStore
	hub    *processor.MockHub
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	st := processor.NewMockStore()
	hub := &processor.MockHub{}
	resolver := &processor.MockResolver{Profile: profile.Profile{Name: "Jane Customer"}}
	engine := processor.NewEngine(st, resolver, &processor.MockSender{}, hub)

	s := &Server{
		app:                fiber.New(),
		engine:             engine,
		tokens:             auth.NewTokenManager("test-secret", time.Hour),
		webhookVerifyToken: "verify-token",
	}
	s.setupRoutes()

	return &webhookFixture{server: s, store: st, hub: hub}
}

func (f *webhookFixture) connectPage(pageID, ownerID string) {
	f.store.AddPage(&store.Page{
		ID:          "link-" + pageID,
		UserID:      ownerID,
		PageID:      pageID,
		AccessToken: "page-token",
		Status:      store.PageStatusConnected,
	})
}

func messagePayload(pageID, senderID, messageID, text string) WebhookPayload {
	return WebhookPayload{
		Object: "page",
		Entry: []WebhookEntry{{
			ID:   pageID,
			Time: 1710000000000,
			Messaging: []MessagingEvent{{
				Sender:    WebhookParty{ID: senderID},
				Recipient: WebhookParty{ID: pageID},
				Timestamp: 1710000000000,
				Message:   &WebhookMessage{MID: messageID, Text: text},
			}},
		}},
	}
}

func TestVerifyWebhook_EchoesChallenge(t *testing.T) {
	f := newWebhookFixture(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/facebook/webhook?hub.mode=subscribe&hub.verify_token=verify-token&hub.challenge=challenge-123", nil)

	resp, err := f.server.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "challenge-123", string(body))
}

func TestVerifyWebhook_RejectsBadToken(t *testing.T) {
	f := newWebhookFixture(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/facebook/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=challenge-123", nil)

	resp, err := f.server.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebhook_AcksImmediatelyAndIngests(t *testing.T) {
	f := newWebhookFixture(t)
	f.connectPage("page-1", "account-a")

	body, err := json.Marshal(messagePayload("page-1", "cust-1", "m1", "hi"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/facebook/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.server.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	respBody, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "EVENT_RECEIVED", string(respBody))

	// Ingestion runs after the ack.
	require.Eventually(t, func() bool {
		return f.store.MessageCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWebhook_IgnoresNonPageObject(t *testing.T) {
	f := newWebhookFixture(t)
	f.connectPage("page-1", "account-a")

	payload := messagePayload("page-1", "cust-1", "m1", "hi")
	payload.Object = "instagram"

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/facebook/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.server.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, f.store.MessageCount())
}

func TestWebhook_MalformedJSON(t *testing.T) {
	f := newWebhookFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/facebook/webhook", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.server.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProcessWebhookPayload_SkipsEchoes(t *testing.T) {
	f := newWebhookFixture(t)
	f.connectPage("page-1", "account-a")

	payload := messagePayload("page-1", "cust-1", "m1", "hi")
	payload.Entry[0].Messaging[0].Message.IsEcho = true

	f.server.processWebhookPayload(payload)

	assert.Equal(t, 0, f.store.MessageCount())
	assert.Empty(t, f.hub.Events())
}

func TestProcessWebhookPayload_SkipsNonMessageEvents(t *testing.T) {
	f := newWebhookFixture(t)
	f.connectPage("page-1", "account-a")

	payload := messagePayload("page-1", "cust-1", "m1", "hi")
	payload.Entry[0].Messaging[0].Message = nil

	f.server.processWebhookPayload(payload)

	assert.Equal(t, 0, f.store.MessageCount())
}

func TestProcessWebhookPayload_FailingEventDoesNotAbortSiblings(t *testing.T) {
	f := newWebhookFixture(t)
	f.connectPage("page-1", "account-a")

	payload := WebhookPayload{
		Object: "page",
		Entry: []WebhookEntry{
			// First entry targets a page nobody connected; its failure must
			// not stop the second entry from being ingested.
			messagePayload("page-unknown", "cust-1", "m1", "hi").Entry[0],
			messagePayload("page-1", "cust-2", "m2", "hello").Entry[0],
		},
	}

	f.server.processWebhookPayload(payload)

	assert.Equal(t, 1, f.store.MessageCount())
}

func TestRequireAuth_RejectsMissingAndBadTokens(t *testing.T) {
	f := newWebhookFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	resp, err := f.server.app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = f.server.app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
