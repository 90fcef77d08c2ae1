package agentic

import (
	"net"
	"net/netip"
	"net/url"
)

// ssrfCheck is the SSRF validator from §4.3c's web_fetch contract: reject
// non-http(s) schemes, literal loopback/link-local/private IP ranges, and
// credential-embedded URLs. Built on net/netip rather than an ecosystem
// SSRF library: the pack carries none, and stdlib's address-range
// predicates are exactly what this check needs.
func ssrfCheck(rawURL string) (blocked bool, reason string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true, "unparsable URL"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return true, "scheme must be http or https"
	}
	if u.User != nil {
		return true, "credential-embedded URLs are not allowed"
	}
	host := u.Hostname()
	if host == "" {
		return true, "missing host"
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		// Literal IP hosts skip resolution; non-literal unresolvable hosts
		// are treated as blocked rather than silently passed through.
		if addr, perr := netip.ParseAddr(host); perr == nil {
			ips = []net.IP{net.IP(addr.AsSlice())}
		} else {
			return true, "could not resolve host"
		}
	}

	for _, ip := range ips {
		addr, ok := netip.AddrFromSlice(ip)
		if !ok {
			continue
		}
		addr = addr.Unmap()
		if addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsPrivate() || addr.IsUnspecified() {
			return true, "target resolves to a loopback, link-local, or private address"
		}
	}

	return false, ""
}
