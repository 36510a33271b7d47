package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *Url {
	u, err := ParseURL(raw)
	require.NoError(t, err)
	return u
}

func TestPrepare_DefaultHeaders(t *testing.T) {
	req := &Request{URL: mustURL(t, "http://example.com/path")}
	pr, err := req.Prepare("httpc/1.0")
	require.NoError(t, err)

	assert.Equal(t, "GET", pr.Method)
	assert.Equal(t, "example.com", pr.Header.Get("Host"))
	assert.Equal(t, "httpc/1.0", pr.Header.Get("User-Agent"))
	assert.Equal(t, "close", pr.Header.Get("Connection"))
	assert.False(t, pr.Header.Has("Content-Length"))
}

func TestPrepare_HostHeaderIncludesNonDefaultPort(t *testing.T) {
	req := &Request{URL: mustURL(t, "http://example.com:8080/path")}
	pr, err := req.Prepare("httpc/1.0")
	require.NoError(t, err)
	assert.Equal(t, "example.com:8080", pr.Header.Get("Host"))
}

func TestPrepare_BodyGetsContentLength(t *testing.T) {
	req := &Request{
		Method: "POST",
		URL:    mustURL(t, "http://example.com/"),
		Header: Header{{Name: "Content-Type", Value: "application/json"}},
		Body:   []byte(`{"a": "b"}`),
	}
	pr, err := req.Prepare("httpc/1.0")
	require.NoError(t, err)
	assert.Equal(t, "10", pr.Header.Get("Content-Length"))
	assert.Equal(t, "POST", pr.Method)
}

func TestPrepare_CallerSuppliedHeadersWin(t *testing.T) {
	req := &Request{
		URL:    mustURL(t, "http://example.com/"),
		Header: Header{{Name: "Host", Value: "override.example"}, {Name: "User-Agent", Value: "custom"}},
	}
	pr, err := req.Prepare("httpc/1.0")
	require.NoError(t, err)
	assert.Equal(t, "override.example", pr.Header.Get("Host"))
	assert.Equal(t, "custom", pr.Header.Get("User-Agent"))
}

func TestPrepare_HeaderAggregationPreservesSubmissionOrder(t *testing.T) {
	req := &Request{
		URL: mustURL(t, "http://example.com/"),
		Header: Header{
			{Name: "Header-Name", Value: "A"},
			{Name: "Header-Name", Value: "B"},
		},
	}
	pr, err := req.Prepare("httpc/1.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, pr.Header.Values("Header-Name"))
}

func TestPrepare_RejectsEmbeddedCRLF(t *testing.T) {
	req := &Request{
		URL:    mustURL(t, "http://example.com/"),
		Header: Header{{Name: "X-Evil", Value: "a\r\nInjected: true"}},
	}
	_, err := req.Prepare("httpc/1.0")
	require.Error(t, err)
}
