package consent

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// StrategyKind selects the matcher built for a catalog strategy.
type StrategyKind string

const (
	KindID        StrategyKind = "id"
	KindAttribute StrategyKind = "attribute"
	KindText      StrategyKind = "text"
)

// AttributeSelector matches an element attribute. An empty Value matches presence alone.
type AttributeSelector struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Strategy is one entry of the ordered matcher chain.
type Strategy struct {
	Name       string              `json:"name"`
	Kind       StrategyKind        `json:"kind"`
	IDs        []string            `json:"ids,omitempty"`
	Attributes []AttributeSelector `json:"attributes,omitempty"`
	Keywords   []string            `json:"keywords,omitempty"`
}

// CountryRules describes region/country interstitial buttons.
type CountryRules struct {
	Tags     []string `json:"tags"`
	Keywords []string `json:"keywords"`
}

// Catalog is the versioned list of consent heuristics.
type Catalog struct {
	Version         int          `json:"version"`
	WholeWordMaxLen int          `json:"whole_word_max_len"`
	Strategies      []Strategy   `json:"strategies"`
	Country         CountryRules `json:"country"`
}

//go:embed catalog.json5
var defaultCatalog []byte

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	var cat Catalog
	if err := json5.Unmarshal(defaultCatalog, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse embedded consent catalog: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// LoadCatalog reads a catalog file and fills every section it leaves out from the embedded
// default. An empty path returns the default.
func LoadCatalog(path string) (*Catalog, error) {
	def, err := DefaultCatalog()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return def, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read consent catalog %s: %w", path, err)
	}
	var cat Catalog
	if err := json5.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse consent catalog %s: %w", path, err)
	}
	if err := mergo.Merge(&cat, *def); err != nil {
		return nil, fmt.Errorf("failed to merge consent catalog %s: %w", path, err)
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("consent catalog %s: %w", path, err)
	}
	return &cat, nil
}

// Validate checks that every strategy can be turned into a matcher.
func (c *Catalog) Validate() error {
	if c.Version <= 0 {
		return errors.New("catalog version must be positive")
	}
	if len(c.Strategies) == 0 {
		return errors.New("catalog has no strategies")
	}
	for i, s := range c.Strategies {
		var n int
		switch s.Kind {
		case KindID:
			n = len(s.IDs)
		case KindAttribute:
			n = len(s.Attributes)
		case KindText:
			n = len(s.Keywords)
		default:
			return fmt.Errorf("strategy %d (%s): unknown kind %q", i, s.Name, s.Kind)
		}
		if n == 0 {
			return fmt.Errorf("strategy %d (%s): no entries", i, s.Name)
		}
	}
	if len(c.Country.Keywords) == 0 {
		return errors.New("catalog has no country keywords")
	}
	return nil
}

// attributeNames lists the distinct attribute names the catalog needs from a snapshot.
func (c *Catalog) attributeNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range c.Strategies {
		for _, a := range s.Attributes {
			if !seen[a.Name] {
				seen[a.Name] = true
				names = append(names, a.Name)
			}
		}
	}
	return names
}
