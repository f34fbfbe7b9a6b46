package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/richard-senior/mcp-runtime/internal/logger"
	"github.com/richard-senior/mcp-runtime/pkg/protocol"
	"github.com/richard-senior/mcp-runtime/pkg/session"
)

// HTTPTransport serves MCP over a single POST endpoint, per §4.7/§6: every
// request is correlated to a session via Mcp-Session-Id, forwarded to the
// protocol engine against that session's own handshake, and answered as
// 200 application/json (202 for a bare notification) with CORS headers
// enabled.
type HTTPTransport struct {
	stateMachine

	Host string
	Port int
	Path string

	sessions *session.Manager

	router *mux.Router
	server *http.Server
}

// NewHTTPTransport builds a transport bound to path (default "/mcp").
// sessions may be nil (EnableSessions off), in which case every request
// dispatches through the engine's own shared handshake instead of a
// per-session one — correct only when a single client talks to the host at
// a time.
func NewHTTPTransport(host string, port int, path string, sessions *session.Manager) *HTTPTransport {
	if path == "" {
		path = "/mcp"
	}
	t := &HTTPTransport{Host: host, Port: port, Path: path, sessions: sessions}
	t.router = mux.NewRouter()
	t.router.HandleFunc(path, t.handle).Methods(http.MethodPost, http.MethodOptions)
	return t
}

func (t *HTTPTransport) Start(ctx context.Context, engine *protocol.Engine) error {
	if !t.transitionStart() {
		return fmt.Errorf("http transport already running")
	}

	t.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(context.WithValue(r.Context(), engineContextKey{}, engine))
			next.ServeHTTP(w, r)
		})
	})

	addr := fmt.Sprintf("%s:%d", t.Host, t.Port)
	t.server = &http.Server{Addr: addr, Handler: t.router}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http transport listening on %s%s", addr, t.Path)
		t.set(StateRunning)
		errCh <- t.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return t.Stop()
	case err := <-errCh:
		t.set(StateError)
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func (t *HTTPTransport) Stop() error {
	t.set(StateStopping)
	defer t.set(StateStopped)
	if t.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.server.Shutdown(shutdownCtx)
}

type engineContextKey struct{}

func (t *HTTPTransport) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Mcp-Session-Id, Mcp-Protocol-Version")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	var probe struct {
		Method *string `json:"method"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.Method == nil {
		http.Error(w, "request body must carry a JSON-RPC method", http.StatusBadRequest)
		return
	}

	engine, _ := r.Context().Value(engineContextKey{}).(*protocol.Engine)
	if engine == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	sess, release := t.resolveSession(r.Header.Get("Mcp-Session-Id"))
	if sess == nil && t.sessions != nil {
		http.Error(w, "session table at capacity", http.StatusServiceUnavailable)
		return
	}
	if release != nil {
		defer release()
	}

	var hs *protocol.Handshake
	if sess != nil {
		w.Header().Set("Mcp-Session-Id", sess.ID)
		hs = sess.Handshake
	} else {
		sessionID := r.Header.Get("Mcp-Session-Id")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		w.Header().Set("Mcp-Session-Id", sessionID)
	}
	if pv := r.Header.Get("Mcp-Protocol-Version"); pv != "" {
		w.Header().Set("Mcp-Protocol-Version", pv)
	}

	rw := &httpResponseWriter{w: w}
	if err := engine.HandleSessionMessage(r.Context(), body, rw, hs); err != nil {
		logger.Error("http transport: error handling message", err)
		if !rw.wrote {
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	if !rw.wrote {
		w.WriteHeader(http.StatusAccepted)
	}
}

// resolveSession finds or creates the session for id, touching it so its
// expiry extends with every request. When the transport has no session
// manager it returns (nil, nil): the caller falls back to the engine's
// shared handshake. The returned release func, if non-nil, must be called
// once the request is done to drop the Find reference.
func (t *HTTPTransport) resolveSession(id string) (*session.Session, func()) {
	if t.sessions == nil {
		return nil, nil
	}

	if id != "" {
		if s, ok := t.sessions.Find(id); ok {
			t.sessions.Touch(s)
			return s, func() { t.sessions.Release(s) }
		}
	}

	s, err := t.sessions.Create(id)
	if err != nil {
		// id was empty, already taken, or not a valid UUIDv4 for the
		// "not found" fallback above; mint a fresh one rather than fail
		// the request outright, unless the table is genuinely full.
		s, err = t.sessions.Create("")
		if err != nil {
			return nil, nil
		}
	}
	t.sessions.Touch(s)
	return s, nil
}

// httpResponseWriter adapts one in-flight HTTP request to
// protocol.ResponseWriter. WriteNotification is a no-op: an HTTP request
// has no channel to push on once its single response has been sent, so a
// listChanged notification racing a response here is simply dropped.
type httpResponseWriter struct {
	w     http.ResponseWriter
	wrote bool
}

func (h *httpResponseWriter) WriteResponse(resp *protocol.JsonRpcResponse) error {
	data, err := protocol.Serialize(resp)
	if err != nil {
		return err
	}
	h.w.Header().Set("Content-Type", "application/json")
	h.w.WriteHeader(http.StatusOK)
	h.wrote = true
	_, err = h.w.Write(data)
	return err
}

func (h *httpResponseWriter) WriteNotification(*protocol.JsonRpcRequest) error {
	return nil
}
