// Package weburl decides which URLs the spec fetcher may contact.
//
// Only public HTTPS hosts are allowed by default. Hostnames are checked
// here; resolved addresses are checked again at dial time by the fetcher
// so a DNS answer cannot point a request back into the private network.
package weburl

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

var (
	// ErrScheme is returned for URLs that are not HTTPS.
	ErrScheme = errors.New("only HTTPS URLs are allowed")
	// ErrBlockedHost is returned for local hostnames and private addresses.
	ErrBlockedHost = errors.New("host is not allowed")
)

// reserved lists ranges not covered by the netip predicates.
var reserved = []netip.Prefix{
	netip.MustParsePrefix("100.64.0.0/10"), // carrier-grade NAT
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// Policy controls how strict URL checks are.
type Policy struct {
	// AllowHTTP permits plain http URLs.
	AllowHTTP bool
	// AllowPrivate permits localhost, local domains and private addresses.
	AllowPrivate bool
}

// Strict is the policy used for user-supplied spec URLs.
var Strict = Policy{}

// Parse trims raw, drops any fragment and checks it against the policy.
func (p Policy) Parse(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	u.Fragment = ""
	if err := p.Check(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Check validates an already parsed URL.
func (p Policy) Check(u *url.URL) error {
	switch {
	case u.Scheme == "https":
	case u.Scheme == "http" && p.AllowHTTP:
	default:
		return ErrScheme
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}
	if p.AllowPrivate {
		return nil
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") ||
		strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("%w: %s", ErrBlockedHost, host)
	}
	if addr, err := netip.ParseAddr(host); err == nil && IsPrivateAddr(addr) {
		return fmt.Errorf("%w: %s", ErrBlockedHost, host)
	}
	return nil
}

// CheckAddr validates a resolved address. It is a no-op when private
// addresses are allowed.
func (p Policy) CheckAddr(addr netip.Addr) error {
	if !p.AllowPrivate && IsPrivateAddr(addr) {
		return fmt.Errorf("%w: resolved to private address %s", ErrBlockedHost, addr)
	}
	return nil
}

// ValidateURL checks raw against the strict policy.
func ValidateURL(raw string) error {
	_, err := Strict.Parse(raw)
	return err
}

// IsPrivateAddr reports whether addr is loopback, private, link-local,
// unspecified or otherwise reserved. IPv4-mapped IPv6 addresses are
// judged by their IPv4 form.
func IsPrivateAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
		return true
	}
	for _, p := range reserved {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// IsPrivateIP is IsPrivateAddr for net.IP values. Unparseable input counts
// as private.
func IsPrivateIP(ip net.IP) bool {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return true
	}
	return IsPrivateAddr(addr)
}

// Domain returns the lowercase hostname of raw, or "" if it cannot be parsed.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
