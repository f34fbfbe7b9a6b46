package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/mcp-runtime/pkg/session"
)

func withEngine(r *http.Request, engine any) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), engineContextKey{}, engine))
}

func TestHTTPTransportHandlesPing(t *testing.T) {
	tr := NewHTTPTransport("127.0.0.1", 0, "/mcp", nil)
	engine := newTestEngine(t)

	body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	req := httptest.NewRequest(http.MethodPost, "/mcp", body)
	req = withEngine(req, engine)
	rec := httptest.NewRecorder()

	tr.handle(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"jsonrpc":"2.0"`)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("Mcp-Session-Id"))
}

func TestHTTPTransportShortCircuitsInitializedNotification(t *testing.T) {
	tr := NewHTTPTransport("127.0.0.1", 0, "/mcp", nil)
	engine := newTestEngine(t)

	body := strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	req := httptest.NewRequest(http.MethodPost, "/mcp", body)
	req = withEngine(req, engine)
	rec := httptest.NewRecorder()

	tr.handle(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHTTPTransportOptionsRequestIsNoContent(t *testing.T) {
	tr := NewHTTPTransport("127.0.0.1", 0, "/mcp", nil)
	req := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
	rec := httptest.NewRecorder()

	tr.handle(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHTTPTransportRejectsBodyWithoutMethod(t *testing.T) {
	tr := NewHTTPTransport("127.0.0.1", 0, "/mcp", nil)
	engine := newTestEngine(t)

	body := strings.NewReader(`{"jsonrpc":"2.0","id":1}`)
	req := httptest.NewRequest(http.MethodPost, "/mcp", body)
	req = withEngine(req, engine)
	rec := httptest.NewRecorder()

	tr.handle(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPTransportPreservesSessionIDHeader(t *testing.T) {
	tr := NewHTTPTransport("127.0.0.1", 0, "/mcp", nil)
	engine := newTestEngine(t)

	body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	req := httptest.NewRequest(http.MethodPost, "/mcp", body)
	req.Header.Set("Mcp-Session-Id", "caller-supplied-id")
	req = withEngine(req, engine)
	rec := httptest.NewRecorder()

	tr.handle(rec, req)

	assert.Equal(t, "caller-supplied-id", rec.Header().Get("Mcp-Session-Id"))
}

func TestHTTPTransportWriteNotificationIsNoop(t *testing.T) {
	rw := &httpResponseWriter{w: httptest.NewRecorder()}
	require.NoError(t, rw.WriteNotification(nil))
	assert.False(t, rw.wrote)
}

func TestHTTPTransportDispatchesAgainstTheResolvedSessionsHandshake(t *testing.T) {
	mgr := session.NewManager(10, time.Hour, time.Minute, nil)
	tr := NewHTTPTransport("127.0.0.1", 0, "/mcp", mgr)
	engine := newTestEngine(t)

	initReq := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`))
	initReq = withEngine(initReq, engine)
	initRec := httptest.NewRecorder()
	tr.handle(initRec, initReq)
	require.Equal(t, http.StatusOK, initRec.Code)
	sid := initRec.Header().Get("Mcp-Session-Id")
	require.NotEmpty(t, sid)

	sess, ok := mgr.Find(sid)
	require.True(t, ok)
	defer mgr.Release(sess)
	assert.Equal(t, 1, mgr.Count(), "one session in the table after one request")

	otherReq := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":2,"method":"ping"}`))
	otherReq = withEngine(otherReq, engine)
	otherRec := httptest.NewRecorder()
	tr.handle(otherRec, otherReq)
	require.Equal(t, http.StatusOK, otherRec.Code)
	otherSid := otherRec.Header().Get("Mcp-Session-Id")
	assert.NotEqual(t, sid, otherSid, "a request with no Mcp-Session-Id header gets its own session")

	otherSess, ok := mgr.Find(otherSid)
	require.True(t, ok)
	defer mgr.Release(otherSess)
	assert.NotEqual(t, sess.Handshake.State(), otherSess.Handshake.State(),
		"the initialized session's handshake advanced independently of the never-initialized one")
}
