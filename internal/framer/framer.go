// Package framer implements the Response Parser/Framer component (§4.5):
// it pulls a status line and header block off a connection with strict
// CRLF line termination, then frames and streams the body according to
// whichever of empty/chunked/content-length/close-delimited applies,
// pushing bytes to the caller's sink as they arrive.
package framer

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofetch/httpc/internal/httperr"
	"github.com/gofetch/httpc/internal/model"
	"github.com/gofetch/httpc/internal/trace"
	"github.com/gofetch/httpc/internal/transport"
)

// streamBuf is the chunk size used to shuttle body bytes to the sink; large
// enough to avoid a syscall per byte, small enough that a slow/huge body
// never accumulates in memory (§4.5: "never buffers the whole body").
const streamBuf = 32 * 1024

// ReadResponse parses one HTTP/1.1 response off conn and streams its body to
// whatever chooseSink returns once the status line and headers are known —
// letting a caller such as the redirect driver (§4.7) decide, after seeing
// the status and Location header but before a single body byte is read,
// whether this response's body should reach the real sink or be discarded
// because it is a non-terminal hop. deadlineFn is called before every read
// and must return the current effective read deadline (§3); requestMethod
// decides whether a HEAD response's body is empty even though its headers
// look otherwise.
func ReadResponse(conn *transport.Conn, deadlineFn func() time.Time, requestMethod string, chooseSink func(*model.Response) io.Writer, tr trace.Tracer) (*model.Response, error) {
	p := newParser(&deadlineReader{conn: conn, deadlineFn: deadlineFn})

	statusLine, err := p.readStatusLine()
	if err != nil {
		return nil, err
	}
	trace.Emit(tr, trace.StatusLine{Line: statusLine.String()})

	header, err := p.readHeaders()
	if err != nil {
		return nil, err
	}
	for _, f := range header {
		trace.Emit(tr, trace.ResponseHeader{Name: f.Name, Value: f.Value})
	}

	resp := &model.Response{
		Proto:      statusLine.Proto,
		StatusCode: statusLine.StatusCode,
		Reason:     statusLine.Reason,
		Header:     header,
	}

	sink := chooseSink(resp)
	if sink == nil {
		sink = io.Discard
	}

	written, err := readBody(p, resp, requestMethod, sink)
	if err != nil {
		return nil, err
	}
	resp.BytesWritten = written
	return resp, nil
}

// StaticSink returns a chooseSink that always streams to w, for callers
// that have no reason to discard any response's body (the common case:
// a single attempt run outside a redirect chain).
func StaticSink(w io.Writer) func(*model.Response) io.Writer {
	return func(*model.Response) io.Writer { return w }
}

func readBody(p *parser, resp *model.Response, requestMethod string, sink io.Writer) (int64, error) {
	switch {
	case resp.HasEmptyBody() || requestMethod == "HEAD":
		return 0, nil

	case isChunked(resp.Header):
		cr := newChunkedReader(p.br)
		n, err := copyBody(cr, sink)
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return n, &httperr.ProtocolError{Kind: httperr.BadChunk, Detail: "truncated chunked body"}
		}
		return n, err

	case resp.Header.Has("Content-Length"):
		cl, err := contentLength(resp.Header)
		if err != nil {
			return 0, err
		}
		n, err := copyBody(io.LimitReader(p.br, cl), sink)
		if err != nil {
			return n, err
		}
		if n < cl {
			return n, &httperr.IoError{Err: io.ErrUnexpectedEOF}
		}
		return n, nil

	default:
		// connection-close framing: read until the peer hangs up.
		return copyBody(p.br, sink)
	}
}

func isChunked(h model.Header) bool {
	for _, tok := range strings.Split(h.Joined("Transfer-Encoding"), ",") {
		if strings.EqualFold(strings.TrimSpace(tok), "chunked") {
			return true
		}
	}
	return false
}

func contentLength(h model.Header) (int64, error) {
	raw := h.Get("Content-Length")
	cl, err := strconv.ParseInt(raw, 10, 63)
	if err != nil || cl < 0 {
		return 0, &httperr.ProtocolError{Kind: httperr.BadHeader, Detail: "invalid Content-Length"}
	}
	return cl, nil
}

func copyBody(r io.Reader, sink io.Writer) (int64, error) {
	buf := make([]byte, streamBuf)
	n, err := io.CopyBuffer(sink, r, buf)
	if err != nil {
		switch err.(type) {
		case *httperr.ProtocolError, *httperr.IoError, *httperr.TimeoutError:
			return n, err
		default:
			return n, &httperr.IoError{Err: err}
		}
	}
	return n, nil
}
