package mqttv5

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
)

// ErrTLSRequired is returned when a QUIC dialer or listener is configured
// without TLS, which QUIC has no insecure fallback for.
var ErrTLSRequired = errors.New("TLS configuration is required for QUIC")

// mqttALPN is the ALPN protocol identifier advertised over QUIC so a
// multi-protocol listener can route the connection to the MQTT handler.
const mqttALPN = "mqtt"

// withMQTTALPN returns cfg (or a default if nil) with TLS 1.3 and the MQTT
// ALPN token set, cloning only when a change is actually needed.
func withMQTTALPN(cfg *tls.Config) *tls.Config {
	if cfg == nil {
		return &tls.Config{MinVersion: tls.VersionTLS13, NextProtos: []string{mqttALPN}}
	}
	needsClone := cfg.MinVersion < tls.VersionTLS13 || len(cfg.NextProtos) == 0
	if !needsClone {
		return cfg
	}
	cfg = cfg.Clone()
	if cfg.MinVersion < tls.VersionTLS13 {
		cfg.MinVersion = tls.VersionTLS13
	}
	if len(cfg.NextProtos) == 0 {
		cfg.NextProtos = []string{mqttALPN}
	}
	return cfg
}

// QUICConn adapts a single bidirectional QUIC stream, plus the connection
// it belongs to, to net.Conn.
type QUICConn struct {
	conn   *quic.Conn
	stream *quic.Stream
	mu     sync.Mutex
}

func (c *QUICConn) Read(b []byte) (int, error)  { return c.stream.Read(b) }
func (c *QUICConn) Write(b []byte) (int, error) { return c.stream.Write(b) }

func (c *QUICConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.stream.Close(); err != nil {
		return err
	}
	return c.conn.CloseWithError(0, "")
}

func (c *QUICConn) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c *QUICConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *QUICConn) SetDeadline(t time.Time) error {
	if err := c.stream.SetReadDeadline(t); err != nil {
		return err
	}
	return c.stream.SetWriteDeadline(t)
}

func (c *QUICConn) SetReadDeadline(t time.Time) error  { return c.stream.SetReadDeadline(t) }
func (c *QUICConn) SetWriteDeadline(t time.Time) error { return c.stream.SetWriteDeadline(t) }

// QUICDialer opens QUIC connections, then a single bidirectional stream
// carrying the MQTT byte stream.
type QUICDialer struct {
	// TLSConfig configures the handshake; QUIC requires TLS 1.3, so a nil
	// value is filled in with a minimal default rather than left unset.
	TLSConfig *tls.Config

	// QUICConfig tunes the underlying QUIC session, or nil for defaults.
	QUICConfig *quic.Config
}

// NewQUICDialer returns a dialer using tlsConfig, or a TLS 1.3 default
// with the MQTT ALPN token if tlsConfig is nil.
func NewQUICDialer(tlsConfig *tls.Config) *QUICDialer {
	return &QUICDialer{TLSConfig: withMQTTALPN(tlsConfig)}
}

// Dial opens a QUIC session to address ("host:port") and a stream on it.
func (d *QUICDialer) Dial(ctx context.Context, address string) (Conn, error) {
	tlsConfig := withMQTTALPN(d.TLSConfig)

	conn, err := quic.DialAddr(ctx, address, tlsConfig, d.QUICConfig)
	if err != nil {
		return nil, err
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(0, "failed to open stream")
		return nil, err
	}
	return &QUICConn{conn: conn, stream: stream}, nil
}

// QUICListener accepts QUIC sessions and the single stream each carries.
type QUICListener struct {
	listener *quic.Listener
}

// NewQUICListener binds a QUIC listener to addr. tlsConfig must be
// non-nil; a copy of it is raised to TLS 1.3 and given the MQTT ALPN token
// where those are missing, and the caller's config is left unchanged.
func NewQUICListener(addr string, tlsConfig *tls.Config, quicConfig *quic.Config) (*QUICListener, error) {
	if tlsConfig == nil {
		return nil, ErrTLSRequired
	}

	listener, err := quic.ListenAddr(addr, withMQTTALPN(tlsConfig), quicConfig)
	if err != nil {
		return nil, err
	}
	return &QUICListener{listener: listener}, nil
}

// Accept waits for the next QUIC session and its opened stream.
func (l *QUICListener) Accept(ctx context.Context) (Conn, error) {
	conn, err := l.listener.Accept(ctx)
	if err != nil {
		return nil, err
	}

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		conn.CloseWithError(0, "failed to accept stream")
		return nil, err
	}
	return &QUICConn{conn: conn, stream: stream}, nil
}

func (l *QUICListener) Close() error   { return l.listener.Close() }
func (l *QUICListener) Addr() net.Addr { return l.listener.Addr() }

// NetListener wraps l as a net.Listener for callers that need the stdlib
// interface; Accept calls run against a background context cancelled on
// Close.
func (l *QUICListener) NetListener() net.Listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &quicNetListener{quicListener: l, ctx: ctx, cancel: cancel}
}

type quicNetListener struct {
	quicListener *QUICListener
	ctx          context.Context
	cancel       context.CancelFunc
}

func (l *quicNetListener) Accept() (net.Conn, error) {
	conn, err := l.quicListener.Accept(l.ctx)
	if err != nil {
		return nil, err
	}
	return conn.(*QUICConn), nil
}

func (l *quicNetListener) Close() error {
	l.cancel()
	return l.quicListener.Close()
}

func (l *quicNetListener) Addr() net.Addr { return l.quicListener.Addr() }
