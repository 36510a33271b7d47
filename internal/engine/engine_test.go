package engine

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gofetch/httpc/internal/framer"
	"github.com/gofetch/httpc/internal/model"
	"github.com/gofetch/httpc/internal/resolver"
	"github.com/gofetch/httpc/internal/trace"
)

// echoServer accepts one connection, reads a request line + headers off it
// (ignoring the content) and writes back a canned response.
func echoServer(t *testing.T, response string) resolver.Overrides {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		r := bufio.NewReader(c)
		for {
			line, err := r.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		c.Write([]byte(response))
	}()

	addr := ln.Addr().(*net.TCPAddr)
	auth := model.Authority{Host: "example.test", Port: 80}
	return resolver.Overrides{
		auth: {{IP: addr.IP, Port: addr.Port}},
	}
}

func mustPreparedGET(t *testing.T, raw string) *model.PreparedRequest {
	u, err := model.ParseURL(raw)
	require.NoError(t, err)
	req := &model.Request{URL: u}
	pr, err := req.Prepare("httpc-test/1.0")
	require.NoError(t, err)
	return pr
}

func TestAttempt_HappyPath(t *testing.T) {
	overrides := echoServer(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")

	e := New(Config{Overrides: overrides})
	req := mustPreparedGET(t, "http://example.test/")

	var sink bytes.Buffer
	var events []trace.Event
	resp, err := e.Attempt(context.Background(), req, time.Time{}, framer.StaticSink(&sink), func(ev trace.Event) { events = append(events, ev) })
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "ok", sink.String())

	// the request line and headers-end marker must be among the emitted events
	var sawRequestLine, sawHeadersEnd, sawStatusLine bool
	for _, ev := range events {
		switch ev.(type) {
		case trace.RequestLine:
			sawRequestLine = true
		case trace.RequestHeadersEnd:
			sawHeadersEnd = true
		case trace.StatusLine:
			sawStatusLine = true
		}
	}
	assert.True(t, sawRequestLine)
	assert.True(t, sawHeadersEnd)
	assert.True(t, sawStatusLine)
}

func TestBoundedDeadline_RequestDeadlineWins(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	requestDeadline := now.Add(time.Second)

	got := boundedDeadline(now, 10*time.Second, requestDeadline)
	assert.Equal(t, requestDeadline, got)
}

func TestBoundedDeadline_TimeoutWinsWhenSmaller(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	requestDeadline := now.Add(time.Minute)

	got := boundedDeadline(now, time.Second, requestDeadline)
	assert.Equal(t, now.Add(time.Second), got)
}

func TestBoundedDeadline_UnlimitedWhenBothZero(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := boundedDeadline(now, 0, time.Time{})
	assert.True(t, got.IsZero())
}

func TestReadDeadlineFor_EmitsOverrideExactlyOnceWhenReadTimeoutExceedsRequest(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	requestDeadline := now.Add(500 * time.Millisecond)

	var events []trace.Event
	got := readDeadlineFor(now, 2*time.Second, requestDeadline, func(e trace.Event) { events = append(events, e) })

	assert.Equal(t, requestDeadline, got)
	require.Len(t, events, 1)
	assert.Equal(t, "* Read timeout is greater than request timeout, overridden (2000ms)", events[0].String())
}

func TestReadDeadlineFor_NoOverrideWhenReadTimeoutSmaller(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	requestDeadline := now.Add(time.Minute)

	var events []trace.Event
	got := readDeadlineFor(now, time.Second, requestDeadline, func(e trace.Event) { events = append(events, e) })

	assert.Equal(t, now.Add(time.Second), got)
	assert.Empty(t, events)
}

func TestNew_DefaultsClockWhenNil(t *testing.T) {
	e := New(Config{})
	assert.NotNil(t, e.cfg.Clock)
}

func TestNew_KeepsSuppliedMockClock(t *testing.T) {
	mock := clock.NewMock()
	e := New(Config{Clock: mock})
	assert.Same(t, mock, e.cfg.Clock)
}
