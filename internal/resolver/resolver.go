// Package resolver implements the Host Resolver component (§4.2): it turns
// an Authority into one or more dial-able endpoints, consulting a static
// override table before ever issuing DNS traffic.
package resolver

import (
	"context"
	"net"
	"strconv"

	"github.com/gofetch/httpc/internal/httperr"
	"github.com/gofetch/httpc/internal/model"
	"github.com/gofetch/httpc/internal/trace"
)

// Family constrains which address families Resolve is willing to return.
type Family int

const (
	FamilyAny Family = iota
	FamilyIPv4
	FamilyIPv6
)

// Endpoint is a single resolved connection target.
type Endpoint struct {
	IP   net.IP
	Port int
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.IP.String(), strconv.Itoa(e.Port))
}

// Overrides is a static Authority -> Endpoint-list table, consulted before
// any name resolution is attempted (§4.2: "no DNS traffic").
type Overrides map[model.Authority][]Endpoint

// Resolver resolves Authorities to Endpoints. The zero value is usable and
// falls back to the system resolver with no overrides.
type Resolver struct {
	Overrides Overrides

	// lookup is swappable in tests; production code leaves it nil and gets
	// net.DefaultResolver.LookupIP.
	lookup func(ctx context.Context, network, host string) ([]net.IP, error)
}

// New returns a Resolver consulting the given override table first.
func New(overrides Overrides) *Resolver {
	return &Resolver{Overrides: overrides}
}

func (r *Resolver) lookupFunc() func(ctx context.Context, network, host string) ([]net.IP, error) {
	if r.lookup != nil {
		return r.lookup
	}
	return net.DefaultResolver.LookupIP
}

// Resolve returns the endpoints to dial for authority. ctx carries the
// bound described in §4.2 (min(dns_deadline, request_deadline)) — callers
// derive it with context.WithDeadline before calling in.
func (r *Resolver) Resolve(ctx context.Context, authority model.Authority, family Family, tr trace.Tracer) ([]Endpoint, error) {
	if eps, ok := r.Overrides[authority]; ok {
		trace.Emit(tr, trace.Resolved{Authority: authority.String(), Addrs: endpointStrings(eps)})
		return eps, nil
	}

	network := "ip"
	switch family {
	case FamilyIPv4:
		network = "ip4"
	case FamilyIPv6:
		network = "ip6"
	}

	ips, err := r.lookupFunc()(ctx, network, authority.Host)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &httperr.TimeoutError{Kind: httperr.DnsTimeout}
		}
		return nil, &httperr.DnsError{Authority: authority.String(), Reason: err.Error()}
	}
	if len(ips) == 0 {
		return nil, &httperr.DnsError{Authority: authority.String(), Reason: "host does not exist"}
	}

	eps := make([]Endpoint, len(ips))
	for i, ip := range ips {
		eps[i] = Endpoint{IP: ip, Port: authority.Port}
	}
	trace.Emit(tr, trace.Resolved{Authority: authority.String(), Addrs: endpointStrings(eps)})
	return eps, nil
}

func endpointStrings(eps []Endpoint) []string {
	out := make([]string, len(eps))
	for i, e := range eps {
		out[i] = e.String()
	}
	return out
}
