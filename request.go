package httpc

import "github.com/gofetch/httpc/internal/model"

// Request, Response, Header, and Field are the public names for the core
// data model (§3); kept as aliases rather than wrapper types so a caller
// never pays a conversion at the API boundary.
type (
	Request  = model.Request
	Response = model.Response
	Header   = model.Header
	Field    = model.Field
	Url      = model.Url
)

// ParseURL parses an absolute http(s) URL (§4.1).
func ParseURL(raw string) (*Url, error) {
	return model.ParseURL(raw)
}

// RequestBuilder builds a Request through fluent method chaining, modeled
// on the original implementation's RequestBuilder (set_http_method,
// add_header, set_body, build), translated to Go method chaining that
// returns the builder itself for further calls and bottoms out in Build.
type RequestBuilder struct {
	url    *Url
	urlErr error
	method string
	header model.Header
	body   []byte
}

// NewRequest starts a RequestBuilder for rawURL. A parse failure is
// deferred until Build so the chain can still be constructed fluently.
func NewRequest(rawURL string) *RequestBuilder {
	u, err := model.ParseURL(rawURL)
	return &RequestBuilder{url: u, urlErr: err}
}

// Method sets the HTTP method. If it is never called the Request's Method
// stays empty, which is sent as GET.
func (b *RequestBuilder) Method(method string) *RequestBuilder {
	b.method = method
	return b
}

// AddHeader appends a header field, preserving insertion order for repeated names.
func (b *RequestBuilder) AddHeader(name, value string) *RequestBuilder {
	b.header.Add(name, value)
	return b
}

// Body sets the request body. Content-Length is added automatically when
// the request is run, unless the caller already set one via AddHeader.
func (b *RequestBuilder) Body(body []byte) *RequestBuilder {
	b.body = body
	return b
}

// Build returns the deferred URL parse error, if any, or the finished
// Request. Headers are validated when the request is run, not here.
func (b *RequestBuilder) Build() (*Request, error) {
	if b.urlErr != nil {
		return nil, b.urlErr
	}
	return &Request{
		Method: b.method,
		URL:    b.url,
		Header: b.header.Clone(),
		Body:   b.body,
	}, nil
}
