// Package transport opens the single TCP (or TLS-over-TCP) connection an
// engine attempt writes a request to and reads a response from (§4.3). It
// has no notion of HTTP framing — that is internal/framer's job — and no
// connection reuse: every attempt dials fresh and the caller always closes.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/gofetch/httpc/internal/httperr"
	"github.com/gofetch/httpc/internal/resolver"
)

// Conn is a dialed, possibly TLS-wrapped connection ready for the wire
// encoder/framer to drive.
type Conn struct {
	raw  net.Conn
	addr string
}

// RemoteAddr returns the address that was actually dialed, for diagnostics.
func (c *Conn) RemoteAddr() string { return c.addr }

// Dial tries endpoints in order over a plain TCP connection; the first that
// connects wins and the rest are never attempted (§4.3). ctx must already
// carry the connect deadline (min(connect_timeout, request_deadline)) —
// Dial does not compute it.
//
// When tlsConfig is non-nil the TCP connection is then wrapped in a TLS
// client session using sniHost as the ServerName. An empty sniHost, for an
// IP-literal authority, sets ServerName to the authority's IP (unless
// tlsConfig already names one): crypto/tls never sends an IP as SNI, which
// RFC 6066 forbids, and verifies the certificate against that IP. A successful TCP connect
// followed by a failed handshake is never retried against another address
// — it is a terminal TlsError.
func Dial(ctx context.Context, endpoints []resolver.Endpoint, authority string, tlsConfig *tls.Config, sniHost string) (*Conn, error) {
	var raw net.Conn
	var addr string
	var lastErr error
	var dialer net.Dialer

	for _, ep := range endpoints {
		a := net.JoinHostPort(ep.IP.String(), strconv.Itoa(ep.Port))
		c, err := dialer.DialContext(ctx, "tcp", a)
		if err != nil {
			lastErr = err
			continue
		}
		raw, addr = c, a
		break
	}
	if raw == nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &httperr.TimeoutError{Kind: httperr.ConnectTimeout}
		}
		return nil, &httperr.ConnectError{Authority: authority, Err: lastErr}
	}

	if tlsConfig == nil {
		return &Conn{raw: raw, addr: addr}, nil
	}

	cfg := tlsConfig.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if sniHost != "" {
		cfg.ServerName = sniHost
	} else if cfg.ServerName == "" {
		// IP-literal host: crypto/tls sends no SNI extension for an IP
		// ServerName, but still verifies the certificate against it.
		if host, _, err := net.SplitHostPort(authority); err == nil {
			cfg.ServerName = host
		}
	}
	tlsConn := tls.Client(raw, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		raw.Close()
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &httperr.TimeoutError{Kind: httperr.ConnectTimeout}
		}
		return nil, &httperr.TlsError{Host: sniHost, Err: err}
	}
	return &Conn{raw: tlsConn, addr: addr}, nil
}

// WriteAll writes the entire buffer, surfacing any short write or I/O
// failure as an IoError.
func (c *Conn) WriteAll(b []byte) error {
	for len(b) > 0 {
		n, err := c.raw.Write(b)
		if err != nil {
			return &httperr.IoError{Err: err}
		}
		b = b[n:]
	}
	return nil
}

// Read reads into buf, honoring deadline as the current effective read
// deadline (§3, §4.6). A zero deadline means unlimited. n == 0 with a nil
// error means orderly EOF, matching §4.3's read contract — callers must not
// treat that as an error.
func (c *Conn) Read(buf []byte, deadline time.Time) (int, error) {
	if err := c.raw.SetReadDeadline(deadline); err != nil {
		return 0, &httperr.IoError{Err: err}
	}
	n, err := c.raw.Read(buf)
	if err != nil {
		if n > 0 {
			// deliver the bytes read before the error surfaced; the next
			// Read will see the same error again and report it.
			return n, nil
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, &httperr.TimeoutError{Kind: httperr.ReadTimeout}
		}
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, &httperr.IoError{Err: err}
	}
	return n, nil
}

// Close releases the underlying connection. The engine always calls this
// once per attempt (§4.6 step 8) — there is no keep-alive.
func (c *Conn) Close() error {
	return c.raw.Close()
}
