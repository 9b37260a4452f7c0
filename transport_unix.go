package mqttv5

import (
	"context"
	"net"
)

// UnixDialer dials a Unix domain socket, for connecting to a broker
// running on the same host without going through the TCP stack.
type UnixDialer struct{}

// NewUnixDialer returns a ready-to-use UnixDialer.
func NewUnixDialer() *UnixDialer {
	return &UnixDialer{}
}

// Dial connects to the socket file at address (e.g. "/var/run/mqtt.sock").
func (d *UnixDialer) Dial(ctx context.Context, address string) (Conn, error) {
	var dialer net.Dialer
	return dialer.DialContext(ctx, "unix", address)
}

// UnixListener is a net.Listener bound to a Unix domain socket path. Its
// Accept returns net.Conn, so it does not satisfy this package's Listener.
type UnixListener struct {
	listener net.Listener
	path     string
}

// NewUnixListener binds a listener to the socket file at path.
func NewUnixListener(path string) (*UnixListener, error) {
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return &UnixListener{listener: listener, path: path}, nil
}

func (l *UnixListener) Accept() (net.Conn, error) { return l.listener.Accept() }

// Close closes the listener. The socket file itself is removed by the
// net package's unix listener on Close.
func (l *UnixListener) Close() error { return l.listener.Close() }

func (l *UnixListener) Addr() net.Addr { return l.listener.Addr() }

// Path returns the socket file path this listener was bound to.
func (l *UnixListener) Path() string { return l.path }
