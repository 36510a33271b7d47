package model

import "strings"

// Field is a single header line: a name as supplied by the caller (casing
// preserved) and an opaque value. Grounded on the pack's from-scratch HTTP
// stack representation (oneee-playground-network-stack's application/http
// Field type), which keeps header lines as an ordered slice instead of a
// canonicalizing map so the wire form can reproduce exactly what was set.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered, case-insensitive multimap of header fields. Unlike
// net/http.Header it never canonicalizes a name: Get/Del/Values compare
// case-insensitively, but the name stored is whatever was supplied, which is
// what ends up on the wire (§3 Header invariant, §8 property 2).
type Header []Field

// Add appends a new field, preserving insertion order for repeated names.
func (h *Header) Add(name, value string) {
	*h = append(*h, Field{Name: name, Value: value})
}

// Set replaces all fields with the given name (case-insensitive) with a
// single field carrying the supplied name's casing.
func (h *Header) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Del removes all fields matching name, case-insensitively.
func (h *Header) Del(name string) {
	out := (*h)[:0]
	for _, f := range *h {
		if !strings.EqualFold(f.Name, name) {
			out = append(out, f)
		}
	}
	*h = out
}

// Get returns the first value for name, or "" if absent.
func (h Header) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Has reports whether any field matches name, case-insensitively.
func (h Header) Has(name string) bool {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Values returns every value for name, in insertion order.
func (h Header) Values(name string) []string {
	var out []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Joined returns every value for name, comma-concatenated, for presentation
// to a caller that expects a single string per header name (§3).
func (h Header) Joined(name string) string {
	return strings.Join(h.Values(name), ", ")
}

// Clone returns an independent copy.
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	out := make(Header, len(h))
	copy(out, h)
	return out
}
