package framer

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gofetch/httpc/internal/httperr"
	"github.com/gofetch/httpc/internal/model"
)

const (
	// minReadBuf is the bufio.Reader's fixed buffer size; it is free to read ahead
	// further than a single line within this size without extra syscalls.
	minReadBuf = 4096

	// maxHeaderBlock caps the combined size of the status line and every
	// header line; exceeding it means a peer that never sends a blank line
	// cannot make the client buffer without limit (§4.5 phase 2).
	maxHeaderBlock = 64 * 1024
)

// parser pulls the status line, header block, and (via readBody) the body
// off br, one HTTP/1.1 message at a time.
type parser struct {
	br          *bufio.Reader
	headerBytes int
}

func newParser(r io.Reader) *parser {
	return &parser{br: bufio.NewReaderSize(r, minReadBuf)}
}

// readLine reads one CRLF-terminated line, stripping the terminator and
// counting it against maxHeaderBlock. A bare LF (no preceding CR) is
// rejected — §4.5 phase 2 is deliberately strict about this.
func (p *parser) readLine(kind httperr.ProtocolKind) ([]byte, error) {
	var line []byte
	for {
		b, err := p.br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &httperr.IoError{Err: io.ErrUnexpectedEOF}
			}
			return nil, &httperr.IoError{Err: err}
		}
		p.headerBytes++
		if p.headerBytes > maxHeaderBlock {
			return nil, &httperr.ProtocolError{Kind: httperr.HeadersTooLarge}
		}
		if b == '\n' {
			if len(line) == 0 || line[len(line)-1] != '\r' {
				return nil, &httperr.ProtocolError{Kind: kind, Detail: "bare LF without preceding CR"}
			}
			return line[:len(line)-1], nil
		}
		line = append(line, b)
	}
}

// StatusLine holds the parsed "HTTP/1.x <code> <reason>" line.
type StatusLine struct {
	Proto      string
	StatusCode int
	Reason     string
}

// String renders the line as received, for tracing (§4.6 step 6).
func (s StatusLine) String() string {
	if s.Reason == "" {
		return s.Proto + " " + strconv.Itoa(s.StatusCode)
	}
	return s.Proto + " " + strconv.Itoa(s.StatusCode) + " " + s.Reason
}

func (p *parser) readStatusLine() (StatusLine, error) {
	line, err := p.readLine(httperr.BadStatusLine)
	if err != nil {
		return StatusLine{}, err
	}

	s := string(line)
	proto, rest, ok := strings.Cut(s, " ")
	if !ok {
		return StatusLine{}, &httperr.ProtocolError{Kind: httperr.BadStatusLine, Detail: "missing status code"}
	}
	if proto != "HTTP/1.0" && proto != "HTTP/1.1" {
		return StatusLine{}, &httperr.ProtocolError{Kind: httperr.BadStatusLine, Detail: "unsupported protocol version " + proto}
	}

	codeStr, reason, _ := strings.Cut(rest, " ")
	if len(codeStr) != 3 {
		return StatusLine{}, &httperr.ProtocolError{Kind: httperr.BadStatusLine, Detail: "status code is not 3 digits"}
	}
	code, convErr := strconv.Atoi(codeStr)
	if convErr != nil || code < 100 || code > 599 {
		return StatusLine{}, &httperr.ProtocolError{Kind: httperr.BadStatusLine, Detail: "status code is not numeric"}
	}

	return StatusLine{Proto: proto, StatusCode: code, Reason: reason}, nil
}

func (p *parser) readHeaders() (model.Header, error) {
	var h model.Header
	for {
		line, err := p.readLine(httperr.BadHeader)
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			return h, nil
		}
		name, value, ok := splitHeaderLine(line)
		if !ok {
			return nil, &httperr.ProtocolError{Kind: httperr.BadHeader, Detail: "malformed header line"}
		}
		h.Add(name, value)
	}
}

func splitHeaderLine(line []byte) (name, value string, ok bool) {
	idx := -1
	for i, b := range line {
		if b == ':' {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return "", "", false
	}
	name = string(line[:idx])
	value = strings.TrimLeft(string(line[idx+1:]), " \t")
	return name, value, true
}
