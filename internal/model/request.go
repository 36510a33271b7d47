package model

import (
	"strconv"

	"golang.org/x/net/http/httpguts"

	"github.com/gofetch/httpc/internal/httperr"
)

// Request is a caller-built HTTP request, not yet bound to a transport.
type Request struct {
	Method string // ASCII token; "" means GET (§3)
	URL    *Url
	Header Header
	Body   []byte
}

// PreparedRequest is a Request with its default headers (Host, User-Agent,
// Connection, Content-Length) filled in, validated, and ready to encode.
// Grounded on the teacher's model.PreparedRequest / Request.Prepare split
// (internal/model/prepared.go in frankli0324/go-http), generalized: the
// teacher computes Content-Length from an arbitrary body type, this
// implementation only ever has raw bytes (§3 Request has no streaming
// request body), so the defaulting logic is simpler but the two-stage
// Request -> PreparedRequest shape is kept.
type PreparedRequest struct {
	Method string
	URL    *Url
	Header Header
	Body   []byte
}

// Prepare validates the request and injects default headers (§3):
//   - Host: <authority> (port omitted when it's the scheme default; only if
//     the caller didn't already set one)
//   - User-Agent: <ua> (only if the caller didn't already set one)
//   - Connection: close (always, unconditionally overriding any caller value)
//   - Content-Length: <len(body)> (only if a body is present and the caller
//     didn't already set Content-Length)
func (r *Request) Prepare(ua string) (*PreparedRequest, error) {
	method := r.Method
	if method == "" {
		method = "GET"
	}

	header := r.Header.Clone()
	for _, f := range header {
		if !httpguts.ValidHeaderFieldName(f.Name) {
			return nil, &httperr.InvalidHeaderError{Name: f.Name, Reason: "not a valid header token"}
		}
		if !httpguts.ValidHeaderFieldValue(f.Value) {
			return nil, &httperr.InvalidHeaderError{Name: f.Name, Reason: "contains CR/LF or other invalid bytes"}
		}
	}

	if !header.Has("Host") {
		header.Add("Host", r.URL.HostHeaderValue())
	}
	if !header.Has("User-Agent") {
		header.Add("User-Agent", ua)
	}
	header.Set("Connection", "close")
	if len(r.Body) > 0 && !header.Has("Content-Length") {
		header.Add("Content-Length", strconv.Itoa(len(r.Body)))
	}

	return &PreparedRequest{
		Method: method,
		URL:    r.URL,
		Header: header,
		Body:   r.Body,
	}, nil
}
