package framer

import (
	"bufio"
	"errors"
	"io"

	"github.com/gofetch/httpc/internal/httperr"
)

// chunkedReader decodes an HTTP/1.1 "Transfer-Encoding: chunked" body,
// handing out one chunk's bytes at a time so the caller can forward each
// slice downstream immediately instead of buffering the whole body (§4.5
// "Chunked decoder").
type chunkedReader struct {
	br                             *bufio.Reader
	currentChunk                   io.Reader
	currentCount, currentChunkSize int64
	finished                       bool
}

func newChunkedReader(br *bufio.Reader) *chunkedReader {
	return &chunkedReader{br: br}
}

func (c *chunkedReader) readChunkSizeLine() (size int64, err error) {
	var line []byte
	for {
		b, rerr := c.br.ReadByte()
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, &httperr.IoError{Err: rerr}
		}
		if b == '\n' {
			if len(line) == 0 || line[len(line)-1] != '\r' {
				return 0, &httperr.ProtocolError{Kind: httperr.BadChunk, Detail: "bare LF in chunk size line"}
			}
			line = line[:len(line)-1]
			break
		}
		line = append(line, b)
		if len(line) > 32 {
			return 0, &httperr.ProtocolError{Kind: httperr.BadChunk, Detail: "chunk size line too long"}
		}
	}

	// chunk-size may carry a ";ext" suffix (chunk extensions), which is
	// ignored rather than interpreted.
	for i, b := range line {
		if b == ';' {
			line = line[:i]
			break
		}
	}
	if len(line) == 0 || len(line) > 16 {
		return 0, &httperr.ProtocolError{Kind: httperr.BadChunk, Detail: "invalid chunk size"}
	}

	for _, b := range line {
		v, ok := hexVal(b)
		if !ok {
			return 0, &httperr.ProtocolError{Kind: httperr.BadChunk, Detail: "invalid byte in chunk size"}
		}
		size = size<<4 | int64(v)
	}
	return size, nil
}

func hexVal(b byte) (byte, bool) {
	switch {
	case '0' <= b && b <= '9':
		return b - '0', true
	case 'a' <= b && b <= 'f':
		return b - 'a' + 10, true
	case 'A' <= b && b <= 'F':
		return b - 'A' + 10, true
	default:
		return 0, false
	}
}

// readTrailers discards any trailer header lines up to the blank line that
// ends the chunked body (§4.5: "trailing header lines ... are read and
// discarded").
func (c *chunkedReader) readTrailers() error {
	for {
		var line []byte
		for {
			b, err := c.br.ReadByte()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return io.ErrUnexpectedEOF
				}
				return &httperr.IoError{Err: err}
			}
			if b == '\n' {
				if len(line) == 0 || line[len(line)-1] != '\r' {
					return &httperr.ProtocolError{Kind: httperr.BadChunk, Detail: "bare LF in trailer"}
				}
				line = line[:len(line)-1]
				break
			}
			line = append(line, b)
		}
		if len(line) == 0 {
			return nil
		}
	}
}

func (c *chunkedReader) Read(p []byte) (n int, err error) {
	if c.finished {
		return 0, io.EOF
	}
	if c.currentChunk == nil {
		size, err := c.readChunkSizeLine()
		if err != nil {
			return 0, err
		}
		if size == 0 {
			if err := c.readTrailers(); err != nil {
				return 0, err
			}
			c.finished = true
			return 0, io.EOF
		}
		c.currentChunk = io.LimitReader(c.br, size)
		c.currentChunkSize = size
		c.currentCount = 0
	}

	n, err = c.currentChunk.Read(p)
	c.currentCount += int64(n)
	if err == io.EOF {
		if c.currentCount != c.currentChunkSize {
			return n, io.ErrUnexpectedEOF
		}
		cr, err1 := c.br.ReadByte()
		lf, err2 := c.br.ReadByte()
		if err1 != nil || err2 != nil {
			return n, io.ErrUnexpectedEOF
		}
		if cr != '\r' || lf != '\n' {
			return n, &httperr.ProtocolError{Kind: httperr.BadChunk, Detail: "missing CRLF after chunk data"}
		}
		c.currentChunk = nil
		err = nil
	}
	return n, err
}
