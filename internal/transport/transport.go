// Package transport builds the RoundTrippers the gateway uses to reach the
// storefront services.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// Kind selects an upstream transport.
type Kind string

const (
	// Standard is Go's default transport with bounded dial and idle settings.
	Standard Kind = "standard"

	// Chrome presents a Chrome TLS fingerprint. Useful when the services sit
	// behind a CDN that rate-limits on JA3 fingerprints.
	Chrome Kind = "chrome"
)

// Valid reports whether k names a known transport.
func (k Kind) Valid() bool {
	return k == Standard || k == Chrome
}

// New returns the RoundTripper for kind. An empty kind means Standard.
func New(kind Kind, timeout time.Duration) (http.RoundTripper, error) {
	switch kind {
	case "", Standard:
		return NewStandardTransport(timeout), nil
	case Chrome:
		return NewChromeTransport(timeout), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", kind)
	}
}

// NewStandardTransport clones http.DefaultTransport with the dial timeout
// bounded by timeout. Plain-HTTP service URLs (the usual in-cluster setup)
// need this one: the Chrome transport only speaks TLS.
func NewStandardTransport(timeout time.Duration) http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	t.MaxIdleConnsPerHost = 32
	return t
}

// NewChromeTransport creates an http.RoundTripper that presents Chrome's TLS
// fingerprint upstream. HTTP/2 is tried first; HTTP/1.1 is the fallback
// when ALPN does not negotiate h2.
func NewChromeTransport(timeout time.Duration) http.RoundTripper {
	dialer := &net.Dialer{Timeout: timeout}

	h2Transport := &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return dialChromeTLS(ctx, dialer, network, addr)
		},
	}

	h1Transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialChromeTLS(ctx, dialer, network, addr)
		},
		ForceAttemptHTTP2: false,
	}

	return &chromeTransport{
		h2: h2Transport,
		h1: h1Transport,
	}
}

type chromeTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

// RoundTrip implements http.RoundTripper.
// Plain-HTTP requests go straight to the HTTP/1.1 transport.
func (t *chromeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}
	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	return t.h1.RoundTrip(req)
}

func dialChromeTLS(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
