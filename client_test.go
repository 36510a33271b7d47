package httpc

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serve accepts one connection per entry in responses and writes back the
// corresponding canned response, draining the request first.
func serve(t *testing.T, responses ...string) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for i := 0; i < len(responses); i++ {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn, resp string) {
				defer c.Close()
				r := bufio.NewReader(c)
				for {
					line, err := r.ReadString('\n')
					if err != nil || line == "\r\n" {
						break
					}
				}
				c.Write([]byte(resp))
			}(c, responses[i])
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func TestClient_RunHappyPath(t *testing.T) {
	host, port := serve(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")

	client := NewClientConfig().
		AddAuthority("svc.test", port, host).
		Build()

	req, err := NewRequest(fmt.Sprintf("http://svc.test:%d/", port)).Build()
	require.NoError(t, err)

	var sink bytes.Buffer
	resp, err := client.Run(context.Background(), req, &sink)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "hello", sink.String())
}

func TestClient_FollowsRedirectAndDeliversOnlyTerminalBody(t *testing.T) {
	host, port := serve(t,
		"HTTP/1.1 302 Found\r\nLocation: /landing\r\nContent-Length: 4\r\n\r\nskip",
		"HTTP/1.1 200 OK\r\nContent-Length: 6\r\n\r\nlanded",
	)

	client := NewClientConfig().
		AddAuthority("svc.test", port, host).
		Build()

	req, err := NewRequest(fmt.Sprintf("http://svc.test:%d/start", port)).Build()
	require.NoError(t, err)

	var sink bytes.Buffer
	resp, err := client.Run(context.Background(), req, &sink)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "landed", sink.String())
}

func TestClient_RedirectCapExceededReturnsRedirectError(t *testing.T) {
	responses := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		responses = append(responses, "HTTP/1.1 302 Found\r\nLocation: /next\r\nContent-Length: 0\r\n\r\n")
	}
	host, port := serve(t, responses...)

	client := NewClientConfig().
		AddAuthority("svc.test", port, host).
		MaxRedirects(1).
		Build()

	req, err := NewRequest(fmt.Sprintf("http://svc.test:%d/start", port)).Build()
	require.NoError(t, err)

	var sink bytes.Buffer
	_, err = client.Run(context.Background(), req, &sink)
	require.Error(t, err)
	var redirErr *RedirectError
	require.ErrorAs(t, err, &redirErr)
	assert.Equal(t, 1, redirErr.Attempted)
}

func TestClient_MaxRedirectsZeroDisablesRedirectsEntirely(t *testing.T) {
	host, port := serve(t, "HTTP/1.1 302 Found\r\nLocation: /next\r\nContent-Length: 0\r\n\r\n")

	client := NewClientConfig().
		AddAuthority("svc.test", port, host).
		MaxRedirects(0).
		Build()

	req, err := NewRequest(fmt.Sprintf("http://svc.test:%d/start", port)).Build()
	require.NoError(t, err)

	var sink bytes.Buffer
	_, err = client.Run(context.Background(), req, &sink)
	require.Error(t, err)
	var redirErr *RedirectError
	require.ErrorAs(t, err, &redirErr)
	assert.Equal(t, 0, redirErr.Attempted)
}

func TestClient_RequestTimeoutSpansWholeRun(t *testing.T) {
	host, port := serve(t) // no response ever written: the client must time out

	client := NewClientConfig().
		AddAuthority("svc.test", port, host).
		RequestTimeout(20 * time.Millisecond).
		Build()

	req, err := NewRequest(fmt.Sprintf("http://svc.test:%d/", port)).Build()
	require.NoError(t, err)

	var sink bytes.Buffer
	_, err = client.Run(context.Background(), req, &sink)
	require.Error(t, err)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestClient_FailOnHTTPStatusOptInSurfacesHttpError(t *testing.T) {
	host, port := serve(t, "HTTP/1.1 404 Not Found\r\nContent-Length: 3\r\n\r\nnah")

	client := NewClientConfig().
		AddAuthority("svc.test", port, host).
		FailOnHTTPStatus().
		Build()

	req, err := NewRequest(fmt.Sprintf("http://svc.test:%d/missing", port)).Build()
	require.NoError(t, err)

	var sink bytes.Buffer
	resp, err := client.Run(context.Background(), req, &sink)
	require.Error(t, err)
	var httpErr *HttpError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 404, httpErr.Status)
	require.NotNil(t, resp)
	assert.Equal(t, "nah", sink.String())
}

func TestClient_DefaultConfigDoesNotFailOnHTTPStatus(t *testing.T) {
	host, port := serve(t, "HTTP/1.1 404 Not Found\r\nContent-Length: 3\r\n\r\nnah")

	client := NewClientConfig().
		AddAuthority("svc.test", port, host).
		Build()

	req, err := NewRequest(fmt.Sprintf("http://svc.test:%d/missing", port)).Build()
	require.NoError(t, err)

	var sink bytes.Buffer
	resp, err := client.Run(context.Background(), req, &sink)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "nah", sink.String())
}

func TestClient_TraceCallbackSeesRequestAndResponseEvents(t *testing.T) {
	host, port := serve(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")

	var events []TraceEvent
	client := NewClientConfig().
		AddAuthority("svc.test", port, host).
		Trace(func(e TraceEvent) { events = append(events, e) }).
		Build()

	req, err := NewRequest(fmt.Sprintf("http://svc.test:%d/", port)).Build()
	require.NoError(t, err)

	var sink bytes.Buffer
	_, err = client.Run(context.Background(), req, &sink)
	require.NoError(t, err)

	var sawRequestLine, sawStatusLine bool
	for _, e := range events {
		switch e.(type) {
		case RequestLineEvent:
			sawRequestLine = true
		case StatusLineEvent:
			sawStatusLine = true
		}
	}
	assert.True(t, sawRequestLine)
	assert.True(t, sawStatusLine)
}
