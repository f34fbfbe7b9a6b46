package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/richard-senior/mcp-runtime/internal/logger"
	"github.com/richard-senior/mcp-runtime/pkg/protocol"
)

// stdioConnectionID is the fixed id of the transport's sole connection.
const stdioConnectionID = "stdio-0"

// StdioTransport is a line-delimited stdio channel: a reader task blocks on
// one line at a time from the inbound stream and hands each nonempty line
// whole to the protocol engine; output is serialized through a mutex, with
// a trailing newline appended if the caller omitted one.
type StdioTransport struct {
	stateMachine

	in  io.Reader
	out io.Writer

	writeMu sync.Mutex
	writer  *bufio.Writer
}

// NewStdioTransport builds a transport over in/out (os.Stdin/os.Stdout in
// production; swappable in tests).
func NewStdioTransport(in io.Reader, out io.Writer) *StdioTransport {
	return &StdioTransport{in: in, out: out, writer: bufio.NewWriter(out)}
}

// Start runs the reader loop until in reaches EOF or ctx is cancelled.
func (t *StdioTransport) Start(ctx context.Context, engine *protocol.Engine) error {
	if !t.transitionStart() {
		return fmt.Errorf("stdio transport already running")
	}
	t.set(StateRunning)
	defer t.set(StateStopped)

	engine.Subscribe(t)
	defer engine.Unsubscribe(t)

	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				err := <-scanErr
				logger.Info("stdio transport reached EOF")
				return err
			}
			if line == "" {
				continue
			}
			if err := engine.HandleMessage(ctx, []byte(line), t); err != nil {
				logger.Warn("stdio transport: error handling message", err)
			}
		}
	}
}

// Stop records the Stopping -> Stopped state change only. It does not end a
// running Start: that returns when its ctx is cancelled or the input
// reaches EOF.
func (t *StdioTransport) Stop() error {
	t.set(StateStopping)
	t.set(StateStopped)
	return nil
}

// WriteResponse and WriteNotification both funnel through a single mutex so
// that a response and a concurrently emitted listChanged notification never
// interleave their bytes on the wire.
func (t *StdioTransport) WriteResponse(resp *protocol.JsonRpcResponse) error {
	return t.writeLine(resp)
}

func (t *StdioTransport) WriteNotification(req *protocol.JsonRpcRequest) error {
	return t.writeLine(req)
}

func (t *StdioTransport) writeLine(v any) error {
	data, err := protocol.Serialize(v)
	if err != nil {
		return fmt.Errorf("serializing stdio message: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.writer.Write(data); err != nil {
		return err
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		if err := t.writer.WriteByte('\n'); err != nil {
			return err
		}
	}
	return t.writer.Flush()
}

// ConnectionID returns the sole connection identifier this transport ever uses.
func (t *StdioTransport) ConnectionID() string { return stdioConnectionID }
