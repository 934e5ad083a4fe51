package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/user/a11y-auditor/internal/entity"
)

// SitesFile is the on-disk shape of the site matrix. Lists keep the run order stable.
type SitesFile struct {
	Viewports []entity.ViewportProfile `yaml:"viewports"`
	Pages     []PageGroup              `yaml:"pages"`
}

// PageGroup lists the audited URL of every domain for one page type.
type PageGroup struct {
	Type  string     `yaml:"type"`
	Sites []SiteLink `yaml:"sites"`
}

// SiteLink is one domain and its URL.
type SiteLink struct {
	Domain string `yaml:"domain"`
	URL    string `yaml:"url"`
}

// Sites is the loaded matrix plus viewport profiles.
type Sites struct {
	Matrix    *entity.SiteMatrix
	Viewports []*entity.ViewportProfile
}

// Viewport looks a profile up by name.
func (s *Sites) Viewport(name string) (*entity.ViewportProfile, bool) {
	for _, v := range s.Viewports {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// LoadSites reads and validates a sites file.
func LoadSites(path string) (*Sites, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sites: read %s: %w", path, err)
	}
	return ParseSites(data)
}

// ParseSites decodes and validates a sites document. Unknown keys are rejected.
func ParseSites(data []byte) (*Sites, error) {
	var f SitesFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("sites: decode: %w", err)
	}

	if len(f.Viewports) == 0 {
		return nil, fmt.Errorf("sites: at least one viewport is required")
	}
	seen := make(map[string]bool, len(f.Viewports))
	viewports := make([]*entity.ViewportProfile, 0, len(f.Viewports))
	for i := range f.Viewports {
		vp := f.Viewports[i]
		if err := vp.Validate(); err != nil {
			return nil, fmt.Errorf("sites: %w", err)
		}
		if seen[vp.Name] {
			return nil, fmt.Errorf("sites: duplicate viewport %s", vp.Name)
		}
		seen[vp.Name] = true
		viewports = append(viewports, &vp)
	}

	var entries []entity.SiteMatrixEntry
	for _, g := range f.Pages {
		for _, s := range g.Sites {
			entries = append(entries, entity.SiteMatrixEntry{PageType: g.Type, Domain: s.Domain, URL: s.URL})
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("sites: no pages configured")
	}
	matrix, err := entity.NewSiteMatrix(entries)
	if err != nil {
		return nil, fmt.Errorf("sites: %w", err)
	}

	return &Sites{Matrix: matrix, Viewports: viewports}, nil
}
