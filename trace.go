package httpc

import "github.com/gofetch/httpc/internal/trace"

// TraceEvent and the concrete event types below are the public names for
// the structured diagnostics a Tracer receives (§10.2); aliased from the
// internal package so a caller's type switch on an event can name the types
// without reaching into internal/trace directly.
type (
	TraceEvent                 = trace.Event
	ResolvedEvent              = trace.Resolved
	RequestLineEvent           = trace.RequestLine
	RequestHeaderEvent         = trace.RequestHeader
	RequestHeadersEndEvent     = trace.RequestHeadersEnd
	StatusLineEvent            = trace.StatusLine
	ResponseHeaderEvent        = trace.ResponseHeader
	ReadTimeoutOverriddenEvent = trace.ReadTimeoutOverridden
	MaxRedirectsFollowedEvent  = trace.MaxRedirectsFollowed
)
