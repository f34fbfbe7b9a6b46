package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/mcp-runtime/pkg/protocol"
	"github.com/richard-senior/mcp-runtime/pkg/tools"
)

// recordingWriter captures notifications pushed by the engine, standing in
// for a connection a host would otherwise hold open (stdio).
type recordingWriter struct {
	notifications []*protocol.JsonRpcRequest
}

func (w *recordingWriter) WriteResponse(*protocol.JsonRpcResponse) error { return nil }
func (w *recordingWriter) WriteNotification(r *protocol.JsonRpcRequest) error {
	w.notifications = append(w.notifications, r)
	return nil
}

func TestNewRequiresNameAndVersion(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Name: "x"})
	assert.Error(t, err)
}

func TestNewAppliesDefaults(t *testing.T) {
	h, err := New(Config{Name: "demo", Version: "1.0"})
	require.NoError(t, err)
	defer h.Destroy()

	assert.Equal(t, "0.0.0.0", h.config.Host)
	assert.Equal(t, 8080, h.config.Port)
	assert.Equal(t, "/mcp", h.config.Path)
	assert.Equal(t, 100, h.config.MaxTools)
	assert.NotNil(t, h.Sessions, "sessions are enabled by default")
}

func TestNewDisablesSessionsWhenRequested(t *testing.T) {
	h, err := New(Config{Name: "demo", Version: "1.0", EnableSessions: false})
	require.NoError(t, err)
	defer h.Destroy()

	assert.Nil(t, h.Sessions)
}

func TestAddToolRegistersAgainstEngine(t *testing.T) {
	h, err := New(Config{Name: "demo", Version: "1.0"})
	require.NoError(t, err)
	defer h.Destroy()

	err = h.AddTool(tools.RegisterOptions{
		Name:        "echo",
		Description: "echoes its input",
		Params: []tools.ParamDesc{
			{Name: "s", Category: tools.CategorySingle, Type: "string", Required: true},
		},
		Execute: func(acc *tools.Accessor, _ any) (tools.Value, error) {
			return tools.StringValue(acc.String("s")), nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, h.Tools.Count())
}

func TestAddToolFailureRecordsLastError(t *testing.T) {
	h, err := New(Config{Name: "demo", Version: "1.0"})
	require.NoError(t, err)
	defer h.Destroy()

	err = h.AddTool(tools.RegisterOptions{Name: "bad name!"})
	assert.Error(t, err)
	assert.NotEmpty(t, h.LastErrorMessage())
}

func TestAddToolNotifiesSubscribedConnections(t *testing.T) {
	h, err := New(Config{Name: "demo", Version: "1.0"})
	require.NoError(t, err)
	defer h.Destroy()

	w := &recordingWriter{}
	h.Engine.Subscribe(w)
	h.Engine.Handshake.Fire(protocol.EventInitializeRequest)
	h.Engine.Handshake.Fire(protocol.EventInitializeResponseSent)
	h.Engine.Handshake.Fire(protocol.EventInitializedNotification)

	require.NoError(t, h.AddTool(tools.RegisterOptions{
		Name:    "echo",
		Execute: func(acc *tools.Accessor, _ any) (tools.Value, error) { return tools.StringValue(""), nil },
	}))

	require.Len(t, w.notifications, 1)
	assert.Equal(t, string(protocol.MethodToolsListChanged), w.notifications[0].Method)
}

func TestNewOpensSessionAuditLogWhenConfigured(t *testing.T) {
	dbPath := t.TempDir() + "/audit.db"
	h, err := New(Config{Name: "demo", Version: "1.0", SessionAuditDB: dbPath})
	require.NoError(t, err)
	defer h.Destroy()

	assert.NotNil(t, h.audit)
}
