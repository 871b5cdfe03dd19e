package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var ErrUnknownSpecies = errors.New("unknown species")

// Species identifies which style and breed lists apply.
type Species string

const (
	Dog Species = "dog"
	Cat Species = "cat"
)

// ParseSpecies normalises s and checks it is supported.
func ParseSpecies(s string) (Species, error) {
	switch sp := Species(strings.ToLower(strings.TrimSpace(s))); sp {
	case Dog, Cat:
		return sp, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSpecies, s)
	}
}

// Style is one portrait style offered for a species.
type Style struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description" json:"description"`
}

// Catalog is read-only reference data: styles, previews and breeds per species.
type Catalog struct {
	StylesBySpecies map[Species][]Style  `yaml:"styles"`
	Previews        map[string]string    `yaml:"previews"`
	BreedsBySpecies map[Species][]string `yaml:"breeds"`
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog override from r.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML catalog data and checks that style IDs are unique
// within each species.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	for species, styles := range c.StylesBySpecies {
		if _, err := ParseSpecies(string(species)); err != nil {
			return nil, err
		}
		seen := make(map[string]bool, len(styles))
		for _, s := range styles {
			if s.ID == "" || s.Name == "" {
				return nil, fmt.Errorf("style without id or name for %s", species)
			}
			if seen[s.ID] {
				return nil, fmt.Errorf("duplicate style id %q for %s", s.ID, species)
			}
			seen[s.ID] = true
		}
	}
	return &c, nil
}

// Styles returns the ordered styles for species.
func (c *Catalog) Styles(species Species) ([]Style, error) {
	styles, ok := c.StylesBySpecies[species]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSpecies, species)
	}
	return append([]Style(nil), styles...), nil
}

// Style looks up a single style by ID.
func (c *Catalog) Style(species Species, id string) (Style, bool) {
	for _, s := range c.StylesBySpecies[species] {
		if s.ID == id {
			return s, true
		}
	}
	return Style{}, false
}

// PreviewURL returns the preview image for a style name.
func (c *Catalog) PreviewURL(name string) (string, bool) {
	u, ok := c.Previews[name]
	return u, ok
}

// Breeds returns the ordered breed names for species.
func (c *Catalog) Breeds(species Species) ([]string, error) {
	breeds, ok := c.BreedsBySpecies[species]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSpecies, species)
	}
	return append([]string(nil), breeds...), nil
}

// SearchBreeds filters breeds by case-insensitive substring, keeping order.
// An empty query returns every breed.
func (c *Catalog) SearchBreeds(species Species, query string) ([]string, error) {
	breeds, err := c.Breeds(species)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return breeds, nil
	}
	matches := make([]string, 0, len(breeds))
	for _, b := range breeds {
		if strings.Contains(strings.ToLower(b), q) {
			matches = append(matches, b)
		}
	}
	return matches, nil
}
