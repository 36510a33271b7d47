package model

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/idna"

	"github.com/gofetch/httpc/internal/httperr"
)

// Url is an absolute HTTP(S) URL, normalized per §4.1: scheme lowercased, port
// always explicit, path-and-query preserved verbatim.
type Url struct {
	Scheme string
	// Host is the ASCII-compatible (punycode, for non-ASCII names) form used on
	// the wire, as a resolver key and as TLS SNI. Never bracketed, even for IPv6.
	Host string
	// Display is the original, possibly-Unicode host as written by the caller.
	// Equal to Host unless the host required IDNA conversion.
	Display string
	Port    int
	// IsIPLiteral is true when Host is an IPv4 or IPv6 address rather than a name.
	IsIPLiteral bool
	isIPv6      bool
	// Target is the request-target: path, optionally followed by "?query".
	// Defaults to "/" and is never percent-decoded/re-encoded.
	Target string
}

// hostToASCII converts non-ASCII hosts to punycode and rejects names whose
// labels or total length exceed the DNS limits (63 and 253 octets).
var hostToASCII = idna.New(idna.VerifyDNSLength(true))

func defaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

// ParseURL parses an absolute http(s) URL per §4.1.
func ParseURL(raw string) (*Url, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &httperr.InvalidURLError{Raw: raw, Reason: err.Error()}
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, &httperr.InvalidURLError{Raw: raw, Reason: "unsupported scheme " + strconv.Quote(u.Scheme)}
	}

	host := u.Hostname()
	if host == "" {
		return nil, &httperr.InvalidURLError{Raw: raw, Reason: "empty host"}
	}

	port := defaultPort(scheme)
	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil || p < 1 || p > 65535 {
			return nil, &httperr.InvalidURLError{Raw: raw, Reason: "invalid port " + strconv.Quote(portStr)}
		}
		port = p
	}

	ip := net.ParseIP(host)
	isIPLiteral := ip != nil
	isIPv6 := isIPLiteral && strings.Contains(host, ":")

	wireHost := host
	if !isIPLiteral {
		ascii, err := hostToASCII.ToASCII(host)
		if err != nil {
			return nil, &httperr.InvalidURLError{Raw: raw, Reason: errors.Wrap(err, "converting host to ASCII").Error()}
		}
		wireHost = ascii
	}

	target := u.RequestURI()
	if target == "" {
		target = "/"
	}

	return &Url{
		Scheme:      scheme,
		Host:        wireHost,
		Display:     host,
		Port:        port,
		IsIPLiteral: isIPLiteral,
		isIPv6:      isIPv6,
		Target:      target,
	}, nil
}

// IsDefaultPort reports whether Port equals the scheme's default (80/443).
func (u *Url) IsDefaultPort() bool {
	return u.Port == defaultPort(u.Scheme)
}

// bracketedHost returns Host wrapped in [] when it is an IPv6 literal, as
// required for the authority form (never for SNI).
func (u *Url) bracketedHost() string {
	if u.isIPv6 {
		return "[" + u.Host + "]"
	}
	return u.Host
}

// Authority returns "host:port", with the host bracketed for IPv6 literals.
func (u *Url) Authority() Authority {
	return Authority{Host: u.Host, Port: u.Port, IsIPv6: u.isIPv6}
}

// HostHeaderValue is the value to use for a default Host header: the
// authority form, but without ":port" when the port is the scheme default.
func (u *Url) HostHeaderValue() string {
	if u.IsDefaultPort() {
		return u.bracketedHost()
	}
	return u.bracketedHost() + ":" + strconv.Itoa(u.Port)
}

// SNIHost returns the value to use as TLS ServerName, or "" when the host is
// an IP literal (RFC 6066 forbids IP-literal SNI; see DESIGN.md).
func (u *Url) SNIHost() string {
	if u.IsIPLiteral {
		return ""
	}
	return u.Host
}

// String renders the canonical form of the URL: always an explicit port.
// parse(s).String() is idempotent even when s itself omitted a default port.
func (u *Url) String() string {
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.bracketedHost())
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(u.Port))
	b.WriteString(u.Target)
	return b.String()
}

// Authority is the (host, port) pair used as a resolver cache/override key
// and as the default Host header. Host is never bracketed here; IsIPv6
// records whether bracketing is needed when rendering an authority string.
type Authority struct {
	Host   string
	Port   int
	IsIPv6 bool
}

// String renders "host:port" (bracketed for IPv6) for logging and map keys.
func (a Authority) String() string {
	if a.IsIPv6 {
		return "[" + a.Host + "]:" + strconv.Itoa(a.Port)
	}
	return a.Host + ":" + strconv.Itoa(a.Port)
}
