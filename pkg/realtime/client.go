package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn used by Client.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// controlWriter is implemented by *websocket.Conn.
type controlWriter interface {
	WriteControl(messageType int, data []byte, deadline time.Time) error
}

// HandshakeError is returned when the server rejects the opening handshake.
type HandshakeError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *HandshakeError) Error() string {
	msg := fmt.Sprintf("websocket handshake failed: HTTP %d", e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// Client is an open realtime connection. Send and Recv may be called from
// different goroutines but each must not be called concurrently with itself.
type Client struct {
	conn   Conn
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewClient wraps an established connection.
func NewClient(conn Conn, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{conn: conn, logger: logger}
}

// Dial performs the opening handshake. It fails before touching the network
// when no API key is set.
func Dial(ctx context.Context, opts Options, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	endpoint, err := opts.Endpoint()
	if err != nil {
		return nil, err
	}

	dialer, err := NewDialer(opts)
	if err != nil {
		return nil, err
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, opts.Header())
	if err != nil {
		if resp != nil {
			return nil, &HandshakeError{
				StatusCode: resp.StatusCode,
				Body:       readBody(resp),
				Err:        err,
			}
		}
		return nil, fmt.Errorf("dialing %s: %w", redactQuery(endpoint), err)
	}

	return NewClient(conn, logger), nil
}

// Send writes a client event as a JSON text frame.
func (c *Client) Send(ctx context.Context, ev ClientEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.conn.WriteJSON(ev); err != nil {
		return fmt.Errorf("sending %s: %w", ev.EventType(), err)
	}

	c.logger.Debug("sent client event", "type", ev.EventType())
	return nil
}

// Recv blocks until the next decodable server event arrives. Frames that are
// not valid events are logged and skipped. Cancelling ctx closes the
// connection and unblocks the read.
func (c *Client) Recv(ctx context.Context) (*ServerEvent, error) {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("reading server event: %w", err)
		}

		ev, err := DecodeServerEvent(data)
		if err != nil {
			c.logger.Warn("skipping undecodable frame", "error", err, "bytes", len(data))
			continue
		}

		return ev, nil
	}
}

// Close sends a normal closure frame when possible and closes the socket.
// It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if cw, ok := c.conn.(controlWriter); ok {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = cw.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		}
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func readBody(resp *http.Response) string {
	if resp.Body == nil {
		return ""
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func redactQuery(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}

// IsClosed reports whether err is a normal websocket closure.
func IsClosed(err error) bool {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
	}
	return false
}
