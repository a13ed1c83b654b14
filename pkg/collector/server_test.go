package collector

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlhsmylv/standlog-script/pkg/types"
)

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_SessionIdempotentOnAnonymousID(t *testing.T) {
	srv := NewServer()
	router := srv.Router()

	first := postJSON(t, router, "/session", types.SessionRequest{AnonymousID: "anon_1_abc"})
	require.Equal(t, http.StatusOK, first.Code)

	var resp1 types.SessionResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &resp1))
	assert.True(t, resp1.Success)
	assert.NotEmpty(t, resp1.ID)
	assert.Equal(t, "anon_1_abc", resp1.AnonymousID)

	// Calling again with the same anonymous id returns the same session.
	second := postJSON(t, router, "/session", types.SessionRequest{AnonymousID: "anon_1_abc"})
	var resp2 types.SessionResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp2))
	assert.Equal(t, resp1.ID, resp2.ID)
	assert.Equal(t, 1, srv.SessionCount())

	// A different anonymous id gets a fresh session.
	third := postJSON(t, router, "/session", types.SessionRequest{AnonymousID: "anon_2_def"})
	var resp3 types.SessionResponse
	require.NoError(t, json.Unmarshal(third.Body.Bytes(), &resp3))
	assert.NotEqual(t, resp1.ID, resp3.ID)
	assert.Equal(t, 2, srv.SessionCount())
}

func TestServer_SessionRejectsBadRequests(t *testing.T) {
	srv := NewServer()
	router := srv.Router()

	rec := postJSON(t, router, "/session", types.SessionRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/session", bytes.NewReader([]byte("not json")))
	out := httptest.NewRecorder()
	router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}

func TestServer_EventsCountedPerSession(t *testing.T) {
	srv := NewServer()
	router := srv.Router()

	created := postJSON(t, router, "/session", types.SessionRequest{AnonymousID: "anon_1_abc"})
	var sess types.SessionResponse
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &sess))

	batch := types.EventsRequest{
		SessionID: sess.ID,
		Events: []types.Event{
			{Type: types.EventPageview, Metadata: types.EventMetadata{SessionID: sess.ID}, Data: types.PageviewPayload{URL: "/"}},
			{Type: types.EventClick, Metadata: types.EventMetadata{SessionID: sess.ID}, Data: types.ClickPayload{Selector: "#buy"}},
		},
	}

	rec := postJSON(t, router, "/events", batch)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.EventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.EventsProcessed)
	assert.Equal(t, sess.ID, resp.SessionID)

	assert.Equal(t, 2, srv.EventCount(sess.ID))

	postJSON(t, router, "/events", batch)
	assert.Equal(t, 4, srv.EventCount(sess.ID))
}

func TestServer_EventsRejectMissingSession(t *testing.T) {
	srv := NewServer()
	router := srv.Router()

	rec := postJSON(t, router, "/events", types.EventsRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv := NewServer()
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
