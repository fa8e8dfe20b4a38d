package bridge

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vk/optalg/internal/ctxlog"
	"github.com/vk/optalg/internal/moderr"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// SocketTransport submits jobs to a remote engine daemon over socket.io.
// The daemon accepts an "execute" event carrying the statement batch and
// answers with a single "result" event whose payload is the same
// line-oriented result format the process transport reads from disk.
type SocketTransport struct {
	// URL is the daemon endpoint, e.g. "wss://engine.example.com/io".
	URL string
	// Namespace is the socket.io namespace, empty for the default one.
	Namespace string
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	// ConnectTimeout bounds the initial handshake. Defaults to 15s.
	ConnectTimeout time.Duration
	// RequestTimeout bounds one submit round-trip. Defaults to 5m.
	RequestTimeout time.Duration

	mu     sync.Mutex
	client *socket.Socket
}

type socketReply struct {
	payload string
	err     error
}

// Submit connects on first use, emits the batch and waits for the result
// event. The connection is kept for subsequent submissions.
func (t *SocketTransport) Submit(ctx context.Context, batch Batch) (*Result, error) {
	logger := ctxlog.Maybe(ctx).With("transport", "socket", "url", t.URL)

	client, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}

	timeout := t.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan socketReply, 1)
	client.Once(types.EventName("result"), func(data ...any) {
		if len(data) == 0 {
			done <- socketReply{err: fmt.Errorf("result event carried no payload")}
			return
		}
		payload, ok := data[0].(string)
		if !ok {
			done <- socketReply{err: fmt.Errorf("result payload is %T, want string", data[0])}
			return
		}
		done <- socketReply{payload: payload}
	})

	logger.Debug("emitting execute event", "statements", len(batch.Statements))
	client.Emit("execute", map[string]any{
		"statements": batch.Statements,
		"want":       batch.Want,
	})

	select {
	case <-opCtx.Done():
		return nil, &moderr.EngineExecutionError{
			Detail: fmt.Sprintf("timed out waiting for result event from %s", t.URL),
			Err:    opCtx.Err(),
		}
	case reply := <-done:
		if reply.err != nil {
			return nil, &moderr.EngineExecutionError{Fatal: true, Detail: "bad result event", Err: reply.err}
		}
		res, err := parseResult(strings.NewReader(reply.payload))
		if err != nil {
			return nil, &moderr.EngineExecutionError{Fatal: true, Detail: "malformed result payload", Err: err}
		}
		logger.Info("received solve result", "status", res.Status.String())
		return res, nil
	}
}

func (t *SocketTransport) connect(ctx context.Context) (*socket.Socket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil && t.client.Connected() {
		return t.client, nil
	}

	logger := ctxlog.Maybe(ctx).With("transport", "socket", "url", t.URL)
	logger.Info("connecting to engine daemon")

	parsedURL, err := url.Parse(t.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if t.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(t.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("connected to engine daemon", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errs[0].(error)
		connectChan <- err
	})

	io.Connect()

	timeout := t.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, &moderr.EngineExecutionError{Fatal: true, Detail: "socket.io connection failed", Err: err}
		}
		t.client = io
		return io, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %v waiting for socket.io connection", timeout)
	}
}

// Close disconnects the daemon connection if one was established.
func (t *SocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		t.client.Disconnect()
		t.client = nil
	}
	return nil
}
