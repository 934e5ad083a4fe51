package entity

import (
	"fmt"
	"net/url"
)

// SiteMatrixEntry maps one (page type, domain) pair to the absolute URL audited for it.
type SiteMatrixEntry struct {
	PageType string
	Domain   string
	URL      string
}

// SiteMatrix is the static configuration of audited pages. The order of page types and the
// first-appearance order of domains define the run order.
type SiteMatrix struct {
	pageTypes []string
	domains   []string
	urls      map[string]map[string]string
}

// NewSiteMatrix validates entries and builds a matrix. Entries keep their relative order.
func NewSiteMatrix(entries []SiteMatrixEntry) (*SiteMatrix, error) {
	m := &SiteMatrix{urls: make(map[string]map[string]string)}
	seenDomain := make(map[string]bool)

	for _, e := range entries {
		if e.PageType == "" || e.Domain == "" {
			return nil, fmt.Errorf("site matrix entry %q/%q: page type and domain are required", e.PageType, e.Domain)
		}
		u, err := url.Parse(e.URL)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("site matrix entry %s/%s: url %q is not absolute", e.PageType, e.Domain, e.URL)
		}

		byDomain, ok := m.urls[e.PageType]
		if !ok {
			byDomain = make(map[string]string)
			m.urls[e.PageType] = byDomain
			m.pageTypes = append(m.pageTypes, e.PageType)
		}
		if _, dup := byDomain[e.Domain]; dup {
			return nil, fmt.Errorf("site matrix entry %s/%s: duplicate", e.PageType, e.Domain)
		}
		byDomain[e.Domain] = e.URL

		if !seenDomain[e.Domain] {
			seenDomain[e.Domain] = true
			m.domains = append(m.domains, e.Domain)
		}
	}
	return m, nil
}

// PageTypes returns page types in configuration order.
func (m *SiteMatrix) PageTypes() []string {
	return append([]string(nil), m.pageTypes...)
}

// Domains returns domains in first-appearance order.
func (m *SiteMatrix) Domains() []string {
	return append([]string(nil), m.domains...)
}

// URL returns the configured URL for a (page type, domain) pair.
func (m *SiteMatrix) URL(pageType, domain string) (string, bool) {
	u, ok := m.urls[pageType][domain]
	return u, ok
}

// Len is the number of (page type, domain) pairs.
func (m *SiteMatrix) Len() int {
	n := 0
	for _, byDomain := range m.urls {
		n += len(byDomain)
	}
	return n
}

// ViewportProfile is a named device profile. Profiles are shared by reference and never mutated.
type ViewportProfile struct {
	Name              string  `json:"name" yaml:"name"`
	Width             int64   `json:"width" yaml:"width"`
	Height            int64   `json:"height" yaml:"height"`
	DeviceScaleFactor float64 `json:"deviceScaleFactor" yaml:"device_scale_factor"`
	IsMobile          bool    `json:"isMobile" yaml:"is_mobile"`
	HasTouch          bool    `json:"hasTouch" yaml:"has_touch"`
	IsLandscape       bool    `json:"isLandscape" yaml:"is_landscape"`
}

// Validate checks the profile dimensions.
func (v ViewportProfile) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("viewport: name is required")
	}
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("viewport %s: width and height must be positive", v.Name)
	}
	if v.DeviceScaleFactor < 0 {
		return fmt.Errorf("viewport %s: negative device scale factor", v.Name)
	}
	return nil
}

// Scale returns the device scale factor, defaulting to 1.
func (v ViewportProfile) Scale() float64 {
	if v.DeviceScaleFactor <= 0 {
		return 1
	}
	return v.DeviceScaleFactor
}
