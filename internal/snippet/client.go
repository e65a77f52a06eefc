// Package snippet implements the client side of the on-device betocq agent
// protocol: synchronous JSON calls over a websocket, one agent per device.
package snippet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/betocq/betocq/internal/metrics"
	"github.com/betocq/betocq/internal/netx"
	"github.com/betocq/betocq/pkg/nc/spec"
)

// DefaultHandshakeTimeout is the timeout used for the websocket handshake
// with the device agent.
const DefaultHandshakeTimeout = 5 * time.Second

// ErrCallTimeout is returned when the agent does not answer a call within
// the caller's deadline.
var ErrCallTimeout = errors.New("agent call timed out")

// defaultDialer wraps the dialed TCP conn with a netx.Conn so the harness
// can report control-link health.
var defaultDialer = &websocket.Dialer{
	HandshakeTimeout: DefaultHandshakeTimeout,
	NetDial: func(network, addr string) (net.Conn, error) {
		conn, err := net.Dial(network, addr)
		if err != nil {
			return nil, err
		}
		return netx.FromTCPConn(conn.(*net.TCPConn))
	},
}

// request is one call frame sent to the agent.
type request struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// response is one answer frame received from the agent.
type response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Client is a synchronous call client for one device agent. Calls are
// serialized: the agent processes one request at a time per connection.
type Client struct {
	serial string

	conn     *websocket.Conn
	connInfo netx.ConnInfo

	nextID atomic.Int64
	mu     sync.Mutex
}

// Dial connects to the device agent listening on host:port for the device
// with the given serial.
func Dial(ctx context.Context, addr, serial string) (*Client, error) {
	u := &url.URL{Scheme: "ws", Host: addr, Path: spec.AgentPath}
	q := u.Query()
	q.Set("serial", serial)
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Add("Sec-WebSocket-Protocol", spec.SecWebSocketProtocol)

	conn, _, err := defaultDialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return nil, fmt.Errorf("dialing agent for %s: %w", serial, err)
	}
	c := &Client{
		serial:   serial,
		conn:     conn,
		connInfo: netx.ToConnInfo(conn.UnderlyingConn()),
	}
	log.Debug("connected to device agent", "serial", serial, "addr", addr)
	return c, nil
}

// Serial returns the serial of the device this client controls.
func (c *Client) Serial() string {
	return c.serial
}

// Call invokes method on the agent and decodes the answer into result, which
// may be nil when the caller only cares about success. The context's
// deadline bounds the whole round trip; without one, calls could hang on a
// wedged device.
func (c *Client) Call(ctx context.Context, method string, params, result any) (err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.AgentCalls.WithLabelValues(c.serial, outcome).Inc()
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(time.Minute)
	}
	c.conn.SetWriteDeadline(deadline)
	c.conn.SetReadDeadline(deadline)

	var rawParams json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encoding %s params: %w", method, err)
		}
		rawParams = b
	}
	req := request{
		ID:     c.nextID.Add(1),
		Method: method,
		Params: rawParams,
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("sending %s to %s: %w", method, c.serial, err)
	}

	// The agent may interleave unsolicited event frames (ID 0) with the
	// answer; skip them until our ID comes back.
	for {
		var resp response
		if err := c.conn.ReadJSON(&resp); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
				return fmt.Errorf("%s on %s: %w", method, c.serial, ErrCallTimeout)
			}
			return fmt.Errorf("reading %s answer from %s: %w", method, c.serial, err)
		}
		if resp.ID != req.ID {
			continue
		}
		if resp.Error != "" {
			return fmt.Errorf("%s on %s: %s", method, c.serial, resp.Error)
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("decoding %s result: %w", method, err)
			}
		}
		return nil
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ControlLinkHealth returns a short description of the control channel's
// state for debug reporting: flow UUID, byte counters and, where supported,
// the smoothed RTT from TCP_INFO.
func (c *Client) ControlLinkHealth() string {
	id, _ := c.connInfo.UUID()
	read, written := c.connInfo.ByteCounters()
	health := fmt.Sprintf("uuid=%s read=%d written=%d", id, read, written)
	if info, err := c.connInfo.Info(); err == nil {
		health += fmt.Sprintf(" rtt=%dus", info.RTT)
	}
	return health
}

// Close closes the connection to the agent.
func (c *Client) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
