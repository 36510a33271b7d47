// Package wire serializes a prepared request into the bytes that go on the
// connection (§4.4). It knows nothing about deadlines, sockets, or framing
// the response — it only turns a model.PreparedRequest into a request-line
// + header-block + body buffer.
package wire

import (
	"bytes"
	"strings"

	"github.com/gofetch/httpc/internal/httperr"
	"github.com/gofetch/httpc/internal/model"
)

// RequestLine renders the "METHOD request-target HTTP/1.1" line without its
// trailing CRLF, for both encoding and tracing (§4.6 step 4).
func RequestLine(req *model.PreparedRequest) string {
	return req.Method + " " + req.URL.Target + " HTTP/1.1"
}

// Encode serializes req into a single buffer: request line, each header as
// "Name: Value", a terminating blank line, then the body verbatim. Header
// values were already validated by Request.Prepare; Encode re-checks for
// embedded CR/LF defensively, since it is the last place that can refuse to
// put a line on the wire.
func Encode(req *model.PreparedRequest) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(RequestLine(req))
	buf.WriteString("\r\n")

	for _, f := range req.Header {
		if strings.ContainsAny(f.Name, "\r\n") || strings.ContainsAny(f.Value, "\r\n") {
			return nil, &httperr.InvalidHeaderError{Name: f.Name, Reason: "embedded CR/LF"}
		}
		buf.WriteString(f.Name)
		buf.WriteString(": ")
		buf.WriteString(f.Value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")

	if len(req.Body) > 0 {
		buf.Write(req.Body)
	}

	return buf.Bytes(), nil
}
