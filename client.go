package httpc

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"strings"
	"time"

	"github.com/gofetch/httpc/internal/engine"
	"github.com/gofetch/httpc/internal/model"
	"github.com/gofetch/httpc/internal/redirect"
	"github.com/gofetch/httpc/internal/resolver"
	"github.com/gofetch/httpc/internal/trace"
)

// defaultUserAgent is used when a ClientConfig never calls UserAgent.
const defaultUserAgent = "httpc/0.1.0"

// defaultMaxRedirects is the §3 default redirect cap.
const defaultMaxRedirects = 16

// Tracer receives classified trace.Event values as a run progresses; see
// package trace for the concrete event types and their String() renderings
// of the stable-prefix lines in §6.
type Tracer = trace.Tracer

// ClientConfig builds an immutable Client through fluent method chaining,
// the same shape as the original implementation's RequestBuilder (§10.3),
// translated to Go: every setter returns *ClientConfig, bottoming out in
// Build. A ClientConfig is not itself safe to reuse concurrently with its
// own setters, but the Client it produces is cheap to share (§4.8): it owns
// only immutable configuration.
type ClientConfig struct {
	userAgent    string
	maxRedirects int
	family       resolver.Family
	overrides    resolver.Overrides

	dnsTimeout     time.Duration
	connectTimeout time.Duration
	readTimeout    time.Duration
	requestTimeout time.Duration

	tlsConfig    *tls.Config
	tracer       Tracer
	failOnStatus bool
}

// NewClientConfig returns a config with the §3 defaults: UA "httpc/0.1.0",
// redirect cap 16, any IP family, no timeouts (unlimited).
func NewClientConfig() *ClientConfig {
	return &ClientConfig{
		userAgent:    defaultUserAgent,
		maxRedirects: defaultMaxRedirects,
		overrides:    resolver.Overrides{},
	}
}

// UserAgent overrides the default User-Agent header value.
func (c *ClientConfig) UserAgent(ua string) *ClientConfig {
	c.userAgent = ua
	return c
}

// MaxRedirects sets the redirect cap (§4.7). n == 0 disables redirects
// entirely — the first redirect response fails the run. A negative n is
// treated as unset and falls back to the §3 default of 16.
func (c *ClientConfig) MaxRedirects(n int) *ClientConfig {
	c.maxRedirects = n
	return c
}

// IPv4Only restricts host resolution to A records.
func (c *ClientConfig) IPv4Only() *ClientConfig {
	c.family = resolver.FamilyIPv4
	return c
}

// IPv6Only restricts host resolution to AAAA records.
func (c *ClientConfig) IPv6Only() *ClientConfig {
	c.family = resolver.FamilyIPv6
	return c
}

// DNSTimeout bounds the DNS resolution phase of every attempt (§4.2).
func (c *ClientConfig) DNSTimeout(d time.Duration) *ClientConfig {
	c.dnsTimeout = d
	return c
}

// ConnectTimeout bounds the TCP connect (and, for https, TLS handshake) phase (§4.3).
func (c *ClientConfig) ConnectTimeout(d time.Duration) *ClientConfig {
	c.connectTimeout = d
	return c
}

// ReadTimeout bounds reading the response (§3 Deadline): each attempt sets
// one read deadline, the attempt's start plus d (capped by the request
// deadline), and every read of that attempt is held to it.
func (c *ClientConfig) ReadTimeout(d time.Duration) *ClientConfig {
	c.readTimeout = d
	return c
}

// RequestTimeout bounds the whole logical request, including every hop of
// a redirect chain (§4.7): it is a single budget established once at Run
// entry, never reset per attempt.
func (c *ClientConfig) RequestTimeout(d time.Duration) *ClientConfig {
	c.requestTimeout = d
	return c
}

// TLSConfig overrides the default TLS client configuration used for https
// requests. A nil value (the default) uses crypto/tls's zero-value defaults.
func (c *ClientConfig) TLSConfig(cfg *tls.Config) *ClientConfig {
	c.tlsConfig = cfg
	return c
}

// Trace installs a callback invoked for every trace.Event emitted during a
// run (§10.2). Passing nil, the default, disables tracing entirely.
func (c *ClientConfig) Trace(tr Tracer) *ClientConfig {
	c.tracer = tr
	return c
}

// FailOnHTTPStatus opts into treating a terminal 4xx/5xx response as an
// error from Run (§7: off by default, curl-parity — a non-2xx response is
// otherwise delivered to sink with a nil error, same as curl's exit code 0
// unless --fail is passed). The response and its body reach the caller
// either way; only the returned error changes.
func (c *ClientConfig) FailOnHTTPStatus() *ClientConfig {
	c.failOnStatus = true
	return c
}

// AddAuthority registers static resolution overrides for host:port, so a
// run against it skips DNS entirely (§4.2). Each addr is a literal IP;
// malformed addresses are silently skipped since there is no Build-time
// validation pass in this fluent chain (mirrors the original RequestBuilder's
// deferred-error style, §10.3).
func (c *ClientConfig) AddAuthority(host string, port int, addrs ...string) *ClientConfig {
	eps := make([]resolver.Endpoint, 0, len(addrs))
	for _, raw := range addrs {
		ip := net.ParseIP(raw)
		if ip == nil {
			continue
		}
		eps = append(eps, resolver.Endpoint{IP: ip, Port: port})
	}
	auth := model.Authority{Host: host, Port: port, IsIPv6: strings.Contains(host, ":")}
	c.overrides[auth] = eps
	return c
}

// Build finishes the chain and returns an immutable, shareable Client.
func (c *ClientConfig) Build() *Client {
	overrides := make(resolver.Overrides, len(c.overrides))
	for auth, eps := range c.overrides {
		overrides[auth] = eps
	}
	e := engine.New(engine.Config{
		DNSTimeout:     c.dnsTimeout,
		ConnectTimeout: c.connectTimeout,
		ReadTimeout:    c.readTimeout,
		Family:         c.family,
		Overrides:      overrides,
		TLSConfig:      c.tlsConfig,
	})
	return &Client{
		driver:         redirect.New(e, c.userAgent, c.maxRedirects, c.failOnStatus),
		requestTimeout: c.requestTimeout,
		tracer:         c.tracer,
	}
}

// Client runs requests against an immutable configuration (§4.8). The zero
// value is not usable; construct one via NewClientConfig().Build(). A Client
// is safe to share and reuse concurrently across goroutines: each Run call
// owns its own engine attempt and redirect-chain state exclusively.
type Client struct {
	driver         *redirect.Driver
	requestTimeout time.Duration
	tracer         Tracer
}

// Run executes req, following redirects under the client's cap, and streams
// the terminal response's body into sink as it arrives (§4.8, §6). ctx's
// deadline composes with the request timeout: whichever trips first
// surfaces as a TimeoutError (§5). Cancelling ctx ends the resolve or
// connect phase (as a DnsError, ConnectError or TlsError); once the request
// is being written or the response read, cancellation is not observed and
// only deadlines apply.
func (c *Client) Run(ctx context.Context, req *Request, sink io.Writer) (*Response, error) {
	var deadline time.Time
	if c.requestTimeout > 0 {
		deadline = time.Now().Add(c.requestTimeout)
	}
	return c.driver.Run(ctx, req, deadline, sink, c.tracer)
}
