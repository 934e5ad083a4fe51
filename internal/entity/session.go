package entity

import (
	"strings"
	"time"
)

// Cookie mirrors the cookie objects returned by the browser and stored in session files.
// Expires is seconds since the epoch; zero or negative marks a session cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	Session  bool    `json:"session,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// IsSession reports whether the cookie has no expiry.
func (c Cookie) IsSession() bool {
	return c.Expires <= 0
}

// SessionState is the persisted browser state for one domain.
type SessionState struct {
	Cookies      []Cookie
	LocalStorage map[string]string
}

// IsEmpty reports whether there is nothing to restore.
func (s SessionState) IsEmpty() bool {
	return len(s.Cookies) == 0 && len(s.LocalStorage) == 0
}

// CookieFilter drops cookies that must not be replayed: incomplete entries, expired entries,
// and volatile anti-bot or telemetry cookies.
type CookieFilter struct {
	DenyPrefixes []string
	DenyNames    []string
}

// DefaultCookieFilter returns the denylist of bot-detection and telemetry cookies.
func DefaultCookieFilter() CookieFilter {
	return CookieFilter{
		DenyPrefixes: []string{"ak"},
		DenyNames:    []string{"_abck", "bm_sv", "_uetsid", "_uetvid"},
	}
}

// Apply returns the cookies that survive the filter, in their original order.
// It never rewrites values, so applying it twice yields the same set.
func (f CookieFilter) Apply(cookies []Cookie, now time.Time) []Cookie {
	nowSecs := float64(now.Unix())
	out := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == "" || c.Value == "" {
			continue
		}
		if !c.IsSession() && c.Expires <= nowSecs {
			continue
		}
		if f.denied(c.Name) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (f CookieFilter) denied(name string) bool {
	for _, p := range f.DenyPrefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, n := range f.DenyNames {
		if name == n {
			return true
		}
	}
	return false
}
