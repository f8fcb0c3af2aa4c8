package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateBaseURL checks a configured base URL (proxy prefix, relay base,
// upstream host, gateway base) before anything dials it. Only http and
// https are accepted. Empty is fine so optional settings can stay unset.
func ValidateBaseURL(raw string) error {
	if raw == "" {
		return nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("unsupported scheme %q in %q", parsed.Scheme, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
