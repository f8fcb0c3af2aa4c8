package utils

import (
	"net"
	"net/url"
	"strings"
)

var privateNetworks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16", // link-local IPv4
	"::1/128",        // loopback IPv6
	"fe80::/10",      // link-local IPv6
	"fc00::/7",       // unique local IPv6
)

// IsAllowedOrigin checks whether an Origin header value should be trusted.
// Exact matches from the configured allowlist win first; beyond that it
// allows localhost, private/RFC1918 IPs, link-local IPs, .local hostnames,
// and single-label hostnames (no dots). Other public origins are blocked.
func IsAllowedOrigin(origin string, allowlist []string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range allowlist {
		if strings.EqualFold(strings.TrimRight(allowed, "/"), strings.TrimRight(origin, "/")) {
			return true
		}
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	hostname := parsed.Hostname()

	// Allow localhost
	if hostname == "localhost" {
		return true
	}

	// Allow .local mDNS hostnames (e.g., mybox.local)
	if strings.HasSuffix(hostname, ".local") {
		return true
	}

	// Allow single-label hostnames (no dots = LAN names)
	if !strings.Contains(hostname, ".") {
		return true
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return isPrivateIP(ip)
	}

	return false
}

// isPrivateIP returns true for RFC1918, loopback, and link-local addresses.
func isPrivateIP(ip net.IP) bool {
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func mustParseCIDRs(specs ...string) []*net.IPNet {
	networks := make([]*net.IPNet, 0, len(specs))
	for _, s := range specs {
		_, network, err := net.ParseCIDR(s)
		if err != nil {
			panic(err)
		}
		networks = append(networks, network)
	}
	return networks
}
