package httpc

import "github.com/gofetch/httpc/internal/httperr"

// The error taxonomy (§7) is a closed set of concrete types so a caller can
// recover the kind with errors.As. They live in an internal package; these
// aliases are the only way to name the types from outside the module.
type (
	InvalidURLError    = httperr.InvalidURLError
	InvalidHeaderError = httperr.InvalidHeaderError
	DnsError           = httperr.DnsError
	ConnectError       = httperr.ConnectError
	TlsError           = httperr.TlsError
	TimeoutError       = httperr.TimeoutError
	TimeoutKind        = httperr.TimeoutKind
	IoError            = httperr.IoError
	ProtocolError      = httperr.ProtocolError
	ProtocolKind       = httperr.ProtocolKind
	RedirectError      = httperr.RedirectError
	HttpError          = httperr.HttpError
)

const (
	DnsTimeout     = httperr.DnsTimeout
	ConnectTimeout = httperr.ConnectTimeout
	ReadTimeout    = httperr.ReadTimeout
	RequestTimeout = httperr.RequestTimeout
)

const (
	BadStatusLine   = httperr.BadStatusLine
	BadHeader       = httperr.BadHeader
	BadChunk        = httperr.BadChunk
	HeadersTooLarge = httperr.HeadersTooLarge
)
