package mqttv5

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketSubprotocol is the WebSocket subprotocol name MQTT clients and
// servers negotiate during the handshake.
const WebSocketSubprotocol = "mqtt"

const wsBufferSize = 4096

// wsReader turns the WebSocket frame-oriented API into a byte stream:
// ReadMessage returns a whole frame at once, so leftover bytes from a
// frame larger than the caller's buffer are held until the next Read.
type wsReader struct {
	conn    *websocket.Conn
	buf     []byte
	readPos int
}

func (r *wsReader) Read(p []byte) (int, error) {
	if r.readPos < len(r.buf) {
		n := copy(p, r.buf[r.readPos:])
		r.readPos += n
		return n, nil
	}

	messageType, data, err := r.conn.ReadMessage()
	if err != nil {
		return 0, err
	}
	if messageType != websocket.BinaryMessage {
		return 0, ErrProtocolViolation
	}

	r.buf = data
	n := copy(p, r.buf)
	r.readPos = n
	return n, nil
}

// WSConn adapts a WebSocket connection, which carries binary MQTT frames,
// to net.Conn.
type WSConn struct {
	conn   *websocket.Conn
	reader *wsReader
}

func newWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn, reader: &wsReader{conn: conn}}
}

func (c *WSConn) Read(b []byte) (int, error) { return c.reader.Read(b) }

func (c *WSConn) Write(b []byte) (int, error) {
	if err := c.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (c *WSConn) Close() error          { return c.conn.Close() }
func (c *WSConn) LocalAddr() net.Addr   { return c.conn.LocalAddr() }
func (c *WSConn) RemoteAddr() net.Addr  { return c.conn.RemoteAddr() }

func (c *WSConn) SetDeadline(t time.Time) error {
	if err := c.conn.SetReadDeadline(t); err != nil {
		return err
	}
	return c.conn.SetWriteDeadline(t)
}

func (c *WSConn) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *WSConn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }

// WSDialer opens a WebSocket connection carrying the MQTT subprotocol.
type WSDialer struct {
	// Dialer is the underlying WebSocket dialer, or nil for
	// websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// Header carries extra HTTP headers sent with the handshake request.
	Header http.Header
}

// NewWSDialer returns a dialer preconfigured with the MQTT subprotocol
// and generous buffer sizes.
func NewWSDialer() *WSDialer {
	return &WSDialer{
		Dialer: &websocket.Dialer{
			Subprotocols:    []string{WebSocketSubprotocol},
			ReadBufferSize:  wsBufferSize,
			WriteBufferSize: wsBufferSize,
		},
	}
}

// SetProxyFromEnvironment configures the dialer to resolve a proxy from
// the standard HTTP_PROXY/HTTPS_PROXY/NO_PROXY environment variables.
func (d *WSDialer) SetProxyFromEnvironment() {
	if d.Dialer == nil {
		d.Dialer = &websocket.Dialer{
			Subprotocols:    []string{WebSocketSubprotocol},
			ReadBufferSize:  wsBufferSize,
			WriteBufferSize: wsBufferSize,
		}
	}
	d.Dialer.Proxy = http.ProxyFromEnvironment
}

// Dial performs the WebSocket handshake against address.
func (d *WSDialer) Dial(ctx context.Context, address string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	header := d.Header
	if header == nil {
		header = http.Header{}
	}

	conn, _, err := dialer.DialContext(ctx, address, header)
	if err != nil {
		return nil, err
	}
	return newWSConn(conn), nil
}

// WSHandler upgrades incoming HTTP requests to WebSocket connections
// carrying MQTT traffic.
type WSHandler struct {
	Upgrader websocket.Upgrader

	// OnConnect is invoked with each newly upgraded connection.
	OnConnect func(conn Conn)

	// AllowedOrigins restricts which Origin header values are accepted.
	// Empty means strict same-origin checking (Origin host must equal the
	// Host header); "*" in the list disables the check entirely.
	AllowedOrigins []string
}

// NewWSHandler returns a handler that calls onConnect for each accepted
// connection, with strict same-origin checking until AllowedOrigins is
// set on the returned handler.
func NewWSHandler(onConnect func(conn Conn)) *WSHandler {
	h := &WSHandler{OnConnect: onConnect}
	h.Upgrader = websocket.Upgrader{
		Subprotocols:    []string{WebSocketSubprotocol},
		ReadBufferSize:  wsBufferSize,
		WriteBufferSize: wsBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *WSHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(h.AllowedOrigins) > 0 {
		for _, allowed := range h.AllowedOrigins {
			if allowed == "*" || origin == allowed {
				return true
			}
		}
		return false
	}

	if r.Host == "" {
		return false
	}
	originHost := stripScheme(origin)
	return originHost != "" && originHost == r.Host
}

var wsSchemePrefixes = []string{"https://", "http://", "wss://", "ws://"}

// stripScheme trims a leading scheme:// from a URL string and returns the
// host[:port] portion up to the first '/', or "" if none of the
// recognized schemes prefix it.
func stripScheme(urlStr string) string {
	for _, prefix := range wsSchemePrefixes {
		if !strings.HasPrefix(urlStr, prefix) {
			continue
		}
		rest := urlStr[len(prefix):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return rest[:i]
		}
		return rest
	}
	return ""
}

// ServeHTTP implements http.Handler, upgrading the request and handing
// the resulting connection to OnConnect.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if h.OnConnect != nil {
		h.OnConnect(newWSConn(conn))
	}
}
