package webpage

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/fairyhunter13/skills-warrior/internal/domain"
)

// IsURL reports whether text, once trimmed, is a single absolute http(s) URL with a host.
func IsURL(text string) bool {
	_, err := NormalizeURL(text)
	return err == nil
}

// NormalizeURL validates rawURL and returns it with a lowercased scheme and host
// and without the fragment. The result doubles as the page cache key.
func NormalizeURL(rawURL string) (*url.URL, error) {
	s := strings.TrimSpace(rawURL)
	if s == "" || strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return nil, fmt.Errorf("%w: not a single URL", domain.ErrInvalidArgument)
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidArgument, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", domain.ErrInvalidArgument)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

// IsURL reports whether f would treat text as a link rather than pasted text.
func (f *Fetcher) IsURL(text string) bool { return IsURL(text) }
