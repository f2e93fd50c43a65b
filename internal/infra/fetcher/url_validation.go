package fetcher

import (
	"fmt"
	"net"
	"net/url"
)

// validateURL prevents SSRF by checking the URL scheme and, when
// denyPrivateIPs is set, resolving the hostname and rejecting any
// loopback, private, or link-local address among the results.
func validateURL(urlStr string, denyPrivateIPs bool) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("%w: parse error: %v", ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme '%s' not allowed (only http/https)", ErrInvalidURL, u.Scheme)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return fmt.Errorf("%w: empty hostname", ErrInvalidURL)
	}

	if !denyPrivateIPs {
		return nil
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return fmt.Errorf("%w: DNS lookup failed for %s: %v", ErrInvalidURL, hostname, err)
	}

	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("%w: hostname '%s' resolves to private IP %s", ErrPrivateIP, hostname, ip.String())
		}
	}

	return nil
}

// isPrivateIP reports whether ip falls in a loopback, RFC1918/RFC4193
// private, or link-local range (IPv4 and IPv6).
func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
