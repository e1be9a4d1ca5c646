package source

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"

	"github.com/lysyi3m/market-comb/app/market"
	"gopkg.in/yaml.v3"
)

// Source is a community polled for candidate listings.
type Source struct {
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Strict      bool   `yaml:"strict"`
	RequiredTag string `yaml:"required_tag"`
}

// Policy returns the eligibility rules specific to this source.
func (s Source) Policy() market.Policy {
	return market.Policy{Strict: s.Strict, RequiredTag: s.RequiredTag}
}

type registryFile struct {
	Sources []Source `yaml:"sources"`
}

// Registry is the ordered, immutable list of sources.
type Registry struct {
	sources []Source
	byName  map[string]Source
}

// loose sources accept any title format; the rest enforce "[H] ... [W] ...".
var (
	looseSources  = []string{"BitMarket", "redditbay", "barter", "forsale", "Sell", "marketplace"}
	strictSources = []string{"REDDITEXCHANGE", "giftcardexchange", "appleswap", "GameSale", "SteamGameSwap"}

	defaultCategories = map[string]string{
		"giftcardexchange": "Vouchers & Gift Cards",
		"SteamGameSwap":    "Games & Virtual Items",
		"appleswap":        "Electronics",
		"GameSale":         "Games & Virtual Items",
	}

	defaultTags = map[string]string{
		"BitMarket": "[WTS]",
	}
)

// Default returns the built-in registry.
func Default() *Registry {
	sources := make([]Source, 0, len(looseSources)+len(strictSources))
	for _, name := range looseSources {
		sources = append(sources, Source{Name: name, Category: defaultCategories[name], RequiredTag: defaultTags[name]})
	}
	for _, name := range strictSources {
		sources = append(sources, Source{Name: name, Category: defaultCategories[name], Strict: true, RequiredTag: defaultTags[name]})
	}

	registry, err := New(sources)
	if err != nil {
		panic(err)
	}
	return registry
}

// New validates sources and builds a registry preserving their order.
func New(sources []Source) (*Registry, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}

	byName := make(map[string]Source, len(sources))
	for i, src := range sources {
		if src.Name == "" {
			return nil, fmt.Errorf("source at index %d has no name", i)
		}
		if _, dup := byName[src.Name]; dup {
			return nil, fmt.Errorf("duplicate source %q", src.Name)
		}
		byName[src.Name] = src
	}

	return &Registry{
		sources: append([]Source(nil), sources...),
		byName:  byName,
	}, nil
}

// Load reads a registry from a YAML file, or returns the built-in registry
// when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	registry, err := New(file.Sources)
	if err != nil {
		return nil, fmt.Errorf("invalid sources file %s: %w", path, err)
	}

	slog.Debug("Source registry loaded", "path", path, "sources", len(file.Sources))

	return registry, nil
}

// Sources returns a copy of the ordered source list.
func (r *Registry) Sources() []Source {
	return append([]Source(nil), r.sources...)
}

func (r *Registry) Lookup(name string) (Source, bool) {
	src, ok := r.byName[name]
	return src, ok
}

// Category returns the label used for listings from the named source.
func (r *Registry) Category(name string) string {
	src, ok := r.byName[name]
	if !ok {
		return market.UnmappedCategory
	}
	return cmp.Or(src.Category, market.UnmappedCategory)
}

func (r *Registry) Count() int {
	return len(r.sources)
}
