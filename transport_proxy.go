package mqttv5

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/net/proxy"
)

// ProxyConfig describes how a client should reach a broker through an
// intermediary: an http(s):// URL for HTTP CONNECT, or a socks5:// URL.
type ProxyConfig struct {
	URL      string
	Username string
	Password string
}

// ProxyDialer dials a target address through an HTTP CONNECT or SOCKS5
// proxy, picking the method from the proxy URL's scheme.
type ProxyDialer struct {
	proxyURL *url.URL
	username string
	password string
	forward  net.Dialer
}

// NewProxyDialer builds a dialer for proxyURL (schemes: http, https,
// socks5, socks5h). Credentials embedded in the URL's userinfo are used
// when username is empty.
func NewProxyDialer(proxyURL, username, password string) (*ProxyDialer, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	if username == "" && u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
	}
	return &ProxyDialer{proxyURL: u, username: username, password: password}, nil
}

// DialContext connects to addr via the configured proxy.
func (d *ProxyDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	switch d.proxyURL.Scheme {
	case "http", "https":
		return d.dialHTTPConnect(ctx, addr)
	case "socks5", "socks5h":
		return d.dialSOCKS5(ctx, network, addr)
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", d.proxyURL.Scheme)
	}
}

func proxyHostPort(u *url.URL, defaultPort string) string {
	if u.Port() != "" {
		return u.Host
	}
	return net.JoinHostPort(u.Hostname(), defaultPort)
}

func (d *ProxyDialer) dialHTTPConnect(ctx context.Context, targetAddr string) (net.Conn, error) {
	defaultPort := "8080"
	if d.proxyURL.Scheme == "https" {
		defaultPort = "443"
	}
	proxyAddr := proxyHostPort(d.proxyURL, defaultPort)

	conn, err := d.forward.DialContext(ctx, "tcp", proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to proxy: %w", err)
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: targetAddr},
		Host:   targetAddr,
		Header: make(http.Header),
	}
	if d.username != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(d.username + ":" + d.password))
		req.Header.Set("Proxy-Authorization", "Basic "+creds)
	}

	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send CONNECT request: %w", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read CONNECT response: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		conn.Close()
		return nil, fmt.Errorf("proxy CONNECT failed: %s", resp.Status)
	}
	return conn, nil
}

func (d *ProxyDialer) dialSOCKS5(ctx context.Context, network, targetAddr string) (net.Conn, error) {
	proxyAddr := proxyHostPort(d.proxyURL, "1080")

	var auth *proxy.Auth
	if d.username != "" {
		auth = &proxy.Auth{User: d.username, Password: d.password}
	}

	dialer, err := proxy.SOCKS5("tcp", proxyAddr, auth, &d.forward)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	// golang.org/x/net/proxy.Dialer predates context.Context; run the
	// blocking Dial on a goroutine so ctx cancellation can still return
	// promptly even though the dial itself isn't interrupted.
	type result struct {
		conn net.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := dialer.Dial(network, targetAddr)
		done <- result{conn, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("SOCKS5 dial failed: %w", r.err)
		}
		return r.conn, nil
	}
}

// ProxyFromEnvironment resolves the proxy URL that should front a
// connection to targetAddr, following the HTTP_PROXY/HTTPS_PROXY/NO_PROXY
// conventions (case-insensitive variable names, comma-separated NO_PROXY
// host/suffix patterns). A nil, nil result means connect directly.
func ProxyFromEnvironment(targetAddr string) (*url.URL, error) {
	target, err := url.Parse(targetAddr)
	if err != nil {
		return nil, nil
	}

	if noProxyMatches(target.Hostname()) {
		return nil, nil
	}

	proxyEnv := lookupEnvAny("HTTPS_PROXY", "https_proxy")
	if isSecureScheme(target.Scheme) && proxyEnv != "" {
		return url.Parse(proxyEnv)
	}

	proxyEnv = lookupEnvAny("HTTP_PROXY", "http_proxy")
	if proxyEnv == "" {
		return nil, nil
	}
	return url.Parse(proxyEnv)
}

func isSecureScheme(scheme string) bool {
	switch scheme {
	case "https", "tls", "ssl", "mqtts", "wss":
		return true
	default:
		return false
	}
}

func lookupEnvAny(names ...string) string {
	for _, name := range names {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v
		}
	}
	return ""
}

func noProxyMatches(host string) bool {
	noProxy := lookupEnvAny("NO_PROXY", "no_proxy")
	if noProxy == "" {
		return false
	}
	for _, pattern := range strings.Split(noProxy, ",") {
		pattern = strings.TrimSpace(pattern)
		switch {
		case pattern == "":
			continue
		case pattern == "*":
			return true
		case strings.HasPrefix(pattern, "."):
			if strings.HasSuffix(host, pattern) || host == pattern[1:] {
				return true
			}
		case host == pattern || strings.HasSuffix(host, "."+pattern):
			return true
		}
	}
	return false
}
