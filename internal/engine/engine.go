// Package engine implements a single request/response attempt (§4.6): it
// owns the deadline bookkeeping for one attempt and drives resolver,
// transport, wire, and framer in sequence. Following redirects is the
// redirect driver's job (internal/redirect); the engine never retries.
package engine

import (
	"context"
	"crypto/tls"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/gofetch/httpc/internal/framer"
	"github.com/gofetch/httpc/internal/model"
	"github.com/gofetch/httpc/internal/resolver"
	"github.com/gofetch/httpc/internal/trace"
	"github.com/gofetch/httpc/internal/transport"
	"github.com/gofetch/httpc/internal/wire"
)

// Config is the immutable configuration an Engine runs every attempt with.
// A zero Duration timeout field means unlimited (§3 ClientConfig).
type Config struct {
	DNSTimeout     time.Duration
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	Family    resolver.Family
	Overrides resolver.Overrides
	TLSConfig *tls.Config

	// Clock is used for every "now" the engine reads when computing
	// deadlines, so tests can control time without real sleeps without
	// touching how transport.Conn applies deadlines to the actual socket
	// (those always take the resulting time.Time at face value).
	Clock clock.Clock
}

// Engine runs single attempts against Config. The zero value is not usable;
// construct with New.
type Engine struct {
	cfg Config
	res *resolver.Resolver
}

// New builds an Engine. A nil cfg.Clock defaults to the real wall clock.
func New(cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Engine{cfg: cfg, res: resolver.New(cfg.Overrides)}
}

// Attempt runs one full resolve -> connect -> write -> parse -> stream ->
// close cycle for req (§4.6). requestDeadline is the absolute wall-clock
// deadline for the whole logical request — the same value is passed in
// unchanged across every hop of a redirect chain (§4.7 decision #3); a zero
// Time means no request-level deadline. chooseSink is consulted once the
// response's status and headers are known, before any body byte is read
// (see framer.ReadResponse) — use framer.StaticSink(w) for a plain run.
func (e *Engine) Attempt(ctx context.Context, req *model.PreparedRequest, requestDeadline time.Time, chooseSink func(*model.Response) io.Writer, tr trace.Tracer) (*model.Response, error) {
	now := e.cfg.Clock.Now()
	authority := req.URL.Authority()

	resolveCtx, cancel := boundedContext(ctx, now, e.cfg.DNSTimeout, requestDeadline)
	endpoints, err := e.res.Resolve(resolveCtx, authority, e.cfg.Family, tr)
	cancel()
	if err != nil {
		return nil, errors.Wrap(err, "resolving authority")
	}

	var tlsConfig *tls.Config
	if req.URL.Scheme == "https" {
		tlsConfig = e.cfg.TLSConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{}
		}
	}

	connectCtx, cancel := boundedContext(ctx, now, e.cfg.ConnectTimeout, requestDeadline)
	conn, err := transport.Dial(connectCtx, endpoints, authority.String(), tlsConfig, req.URL.SNIHost())
	cancel()
	if err != nil {
		return nil, errors.Wrap(err, "connecting")
	}
	defer conn.Close()

	payload, err := wire.Encode(req)
	if err != nil {
		return nil, err
	}

	trace.Emit(tr, trace.RequestLine{Line: wire.RequestLine(req)})
	for _, f := range req.Header {
		trace.Emit(tr, trace.RequestHeader{Name: f.Name, Value: f.Value})
	}
	trace.Emit(tr, trace.RequestHeadersEnd{})

	if err := conn.WriteAll(payload); err != nil {
		return nil, errors.Wrap(err, "writing request")
	}

	readDeadline := readDeadlineFor(now, e.cfg.ReadTimeout, requestDeadline, tr)
	if d, ok := ctx.Deadline(); ok && (readDeadline.IsZero() || d.Before(readDeadline)) {
		readDeadline = d
	}
	resp, err := framer.ReadResponse(conn, func() time.Time { return readDeadline }, req.Method, chooseSink, tr)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}
	return resp, nil
}

// boundedContext derives a context whose deadline is min(now+timeout,
// requestDeadline) — a zero timeout or zero requestDeadline drops out of
// the min (§4.2, §4.6 step 2/3).
func boundedContext(ctx context.Context, now time.Time, timeout time.Duration, requestDeadline time.Time) (context.Context, context.CancelFunc) {
	deadline := boundedDeadline(now, timeout, requestDeadline)
	if deadline.IsZero() {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, deadline)
}

func boundedDeadline(now time.Time, timeout time.Duration, requestDeadline time.Time) time.Time {
	var d time.Time
	if timeout > 0 {
		d = now.Add(timeout)
	}
	if requestDeadline.IsZero() {
		return d
	}
	if d.IsZero() || requestDeadline.Before(d) {
		return requestDeadline
	}
	return d
}

// readDeadlineFor computes the per-attempt read deadline (§3 Deadline:
// "min(now+read_timeout, request_deadline)"), emitting the override trace
// exactly once when the configured read timeout would have outlasted the
// request deadline.
func readDeadlineFor(now time.Time, readTimeout time.Duration, requestDeadline time.Time, tr trace.Tracer) time.Time {
	var rd time.Time
	if readTimeout > 0 {
		rd = now.Add(readTimeout)
	}
	if requestDeadline.IsZero() {
		return rd
	}
	if rd.IsZero() || requestDeadline.Before(rd) {
		if !rd.IsZero() {
			trace.Emit(tr, trace.ReadTimeoutOverridden{Ms: readTimeout.Milliseconds()})
		}
		return requestDeadline
	}
	return rd
}
