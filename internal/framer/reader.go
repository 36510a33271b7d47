package framer

import (
	"io"
	"time"

	"github.com/gofetch/httpc/internal/transport"
)

// deadlineReader adapts transport.Conn's read-with-explicit-deadline
// contract to the plain io.Reader bufio.Reader wants, asking deadlineFn for
// the effective deadline on every call so each read is bounded by it (§4.6
// step 7: "The request deadline is an upper bound on every read as well").
type deadlineReader struct {
	conn       *transport.Conn
	deadlineFn func() time.Time
}

func (d *deadlineReader) Read(p []byte) (int, error) {
	n, err := d.conn.Read(p, d.deadlineFn())
	if err != nil {
		return n, err
	}
	if n == 0 {
		// transport.Conn.Read's n==0/err==nil means orderly EOF; io.Reader
		// wants that expressed as io.EOF so bufio/io.Copy see a clean stop.
		return 0, io.EOF
	}
	return n, nil
}
