package douban

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Douban rejects or degrades responses for clients that do not look like a
// browser, so every upstream request carries a fixed desktop profile.
const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	browserReferer   = "https://movie.douban.com/"
	browserAccept    = "application/json, text/plain, */*"
)

// ProxyResolver supplies the optional client-side proxy base. Implementations
// return "" when no proxy is configured; the target URL is percent-encoded
// and appended to a non-empty base.
type ProxyResolver interface {
	ProxyBase() string
}

// ProxyResolverFunc adapts a plain function to a ProxyResolver.
type ProxyResolverFunc func() string

func (f ProxyResolverFunc) ProxyBase() string { return f() }

// StaticProxy returns a resolver that always yields base ("" means none).
func StaticProxy(base string) ProxyResolver {
	return ProxyResolverFunc(func() string { return base })
}

func (c *Client) proxyBase() string {
	if c.resolver == nil {
		return ""
	}
	return c.resolver.ProxyBase()
}

// requestURL applies the two-axis routing policy to a target URL. With
// relay set, the fixed public CORS relay is prefixed and the target is left
// unescaped. Otherwise a resolver-supplied proxy base, when present, gets
// the percent-encoded target appended; with no proxy the target is hit
// directly.
func (c *Client) requestURL(target string, relay bool) string {
	if relay {
		return c.relayBase + target
	}
	if base := c.proxyBase(); base != "" {
		return base + url.QueryEscape(target)
	}
	return target
}

// fetchJSON performs one upstream GET bounded by the client timeout and
// decodes the body into v. The deadline covers the body read as well, and
// the timer is released on every path.
func (c *Client) fetchJSON(ctx context.Context, target string, relay bool, v any) error {
	reqURL := c.requestURL(target, relay)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &TransportError{URL: reqURL, Err: err}
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Referer", browserReferer)
	req.Header.Set("Accept", browserAccept)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &TransportError{URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &TransportError{URL: reqURL, Status: resp.StatusCode}
	}

	// A body that does not decode is an upstream shape problem, not a
	// transport failure, so it stays a plain wrapped error.
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("douban: decode %s: %w", reqURL, err)
	}
	return nil
}
