// Package redirect implements the Redirect Driver (§4.7): it repeatedly
// runs the engine, and on a 3xx response carrying a Location header builds
// the next hop's request and runs again, until a non-redirect response
// terminates the chain or the redirect cap is exceeded.
package redirect

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gofetch/httpc/internal/engine"
	"github.com/gofetch/httpc/internal/httperr"
	"github.com/gofetch/httpc/internal/model"
	"github.com/gofetch/httpc/internal/trace"
)

// hopByHop headers are never carried from one hop to the next: Host and
// Content-Length are recomputed by Prepare for the new URL/body, the rest
// are connection-specific per RFC 7230 §6.1 and meaningless on a fresh
// connection to a (possibly different) server.
var hopByHop = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailers":            true,
	"transfer-encoding":   true,
	"upgrade":             true,
	"host":                true,
	"content-length":      true,
}

// Driver runs requests through Engine, following redirects up to MaxRedirects.
type Driver struct {
	Engine       *engine.Engine
	UserAgent    string
	MaxRedirects int
	// FailOnStatus opts into treating a terminal 4xx/5xx response as an error
	// (§7: off by default, curl-parity). The response and its body are still
	// delivered to the caller; only the returned error changes.
	FailOnStatus bool
}

// New builds a Driver. maxRedirects == 0 disables redirects entirely — the
// first redirect response trips RedirectError{Attempted: 0}. A negative
// value is treated as unset and falls back to the §3 default of 16.
func New(e *engine.Engine, userAgent string, maxRedirects int, failOnStatus bool) *Driver {
	if maxRedirects < 0 {
		maxRedirects = 16
	}
	return &Driver{Engine: e, UserAgent: userAgent, MaxRedirects: maxRedirects, FailOnStatus: failOnStatus}
}

// Run drives req through the engine, following redirects until a terminal
// response is reached. requestDeadline is a single budget computed once by
// the caller and threaded unchanged through every hop (§4.7 decision #3):
// a slow chain of redirects cannot outlive it by restarting the clock.
// Only the terminal response's body reaches sink; intermediate redirect
// bodies are drained and discarded.
func (d *Driver) Run(ctx context.Context, req *model.Request, requestDeadline time.Time, sink io.Writer, tr trace.Tracer) (*model.Response, error) {
	current := req
	redirects := 0

	for {
		pr, err := current.Prepare(d.UserAgent)
		if err != nil {
			return nil, err
		}

		chooseSink := func(resp *model.Response) io.Writer {
			if isRedirectHop(resp) {
				return io.Discard
			}
			return sink
		}

		resp, err := d.Engine.Attempt(ctx, pr, requestDeadline, chooseSink, tr)
		if err != nil {
			return nil, err
		}

		if !isRedirectHop(resp) {
			if d.FailOnStatus && resp.StatusCode >= 400 && resp.StatusCode <= 599 {
				return resp, &httperr.HttpError{Status: resp.StatusCode}
			}
			return resp, nil
		}

		redirects++
		if redirects > d.MaxRedirects {
			trace.Emit(tr, trace.MaxRedirectsFollowed{Cap: d.MaxRedirects})
			return nil, &httperr.RedirectError{Attempted: d.MaxRedirects}
		}

		current, err = nextRequest(current, resp)
		if err != nil {
			return nil, err
		}
	}
}

func isRedirectHop(resp *model.Response) bool {
	return resp.IsRedirect() && resp.Header.Has("Location")
}

// nextRequest builds the request for the hop described by resp's Location
// header, applying the method/body mutation policy of decision #1
// (301/302/303 degrade to GET with no body, curl-parity; 307/308 preserve
// method and body) and stripping hop-by-hop headers.
func nextRequest(prev *model.Request, resp *model.Response) (*model.Request, error) {
	location := resp.Header.Get("Location")

	newURL, err := resolveLocation(prev.URL, location)
	if err != nil {
		return nil, err
	}

	method := prev.Method
	if method == "" {
		method = "GET"
	}
	dropBody := false
	switch resp.StatusCode {
	case 301, 302, 303:
		method = "GET"
		dropBody = true
	}

	var body []byte
	if !dropBody {
		body = prev.Body
	}

	return &model.Request{
		Method: method,
		URL:    newURL,
		Header: carryHeaders(prev.Header, dropBody),
		Body:   body,
	}, nil
}

func carryHeaders(h model.Header, dropBody bool) model.Header {
	var out model.Header
	for _, f := range h {
		if hopByHop[strings.ToLower(f.Name)] {
			continue
		}
		if dropBody && strings.EqualFold(f.Name, "Content-Type") {
			continue
		}
		out.Add(f.Name, f.Value)
	}
	return out
}

// resolveLocation resolves Location against the previous hop's URL — used
// as-is if absolute, resolved as a reference against prevURL if relative
// (§4.7: "if relative, resolve against the previous URL").
func resolveLocation(prevURL *model.Url, location string) (*model.Url, error) {
	base, err := url.Parse(prevURL.String())
	if err != nil {
		return nil, &httperr.InvalidURLError{Raw: prevURL.String(), Reason: err.Error()}
	}
	ref, err := url.Parse(location)
	if err != nil {
		return nil, &httperr.InvalidURLError{Raw: location, Reason: err.Error()}
	}
	resolved := base.ResolveReference(ref)
	return model.ParseURL(resolved.String())
}
