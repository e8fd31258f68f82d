// Package catalog defines the static set of sound assets known to soundcheck.
// A Catalog is built once at startup and never mutated afterwards.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/soundcheck/internal/log"
)

//go:embed catalog.yaml
var defaultManifest []byte

// Validation errors returned by New and Parse.
var (
	// ErrEmptyKey indicates an asset without a key.
	ErrEmptyKey = errors.New("asset key is required")

	// ErrEmptyResource indicates an asset without a resource name.
	ErrEmptyResource = errors.New("asset resource name is required")

	// ErrDuplicateKey indicates two assets share the same key.
	ErrDuplicateKey = errors.New("duplicate asset key")

	// ErrUnknownCategory indicates a category other than effect or music.
	ErrUnknownCategory = errors.New("unknown asset category")
)

// Category groups assets by playback behavior.
type Category int

const (
	// Effect assets are short one-shot sounds. Effects may overlap freely.
	Effect Category = iota
	// Music assets loop forever and are mutually exclusive with other music.
	Music
)

// String returns the manifest spelling of the category.
func (c Category) String() string {
	switch c {
	case Effect:
		return "effect"
	case Music:
		return "music"
	default:
		return "unknown"
	}
}

// ParseCategory parses "effect" or "music" (case-insensitive).
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "effect":
		return Effect, nil
	case "music":
		return Music, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Category) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c Category) MarshalYAML() (any, error) {
	return c.String(), nil
}

// AssetDescriptor describes one bundled sound.
type AssetDescriptor struct {
	Key          string   `yaml:"key"`  // Unique identifier
	ResourceName string   `yaml:"file"` // Name the audio backend resolves
	DisplayName  string   `yaml:"name"` // Human-readable label
	Category     Category `yaml:"type"`
}

// Catalog is an ordered, immutable list of asset descriptors.
type Catalog struct {
	assets []AssetDescriptor
	index  map[string]int
}

// New builds a catalog, preserving the given order.
func New(assets ...AssetDescriptor) (*Catalog, error) {
	c := &Catalog{
		assets: make([]AssetDescriptor, 0, len(assets)),
		index:  make(map[string]int, len(assets)),
	}

	for i, a := range assets {
		if a.Key == "" {
			return nil, fmt.Errorf("asset %d: %w", i, ErrEmptyKey)
		}
		if a.ResourceName == "" {
			return nil, fmt.Errorf("asset %d (%s): %w", i, a.Key, ErrEmptyResource)
		}
		if a.Category != Effect && a.Category != Music {
			return nil, fmt.Errorf("asset %d (%s): %w", i, a.Key, ErrUnknownCategory)
		}
		if _, dup := c.index[a.Key]; dup {
			return nil, fmt.Errorf("asset %d: %w: %s", i, ErrDuplicateKey, a.Key)
		}
		if a.DisplayName == "" {
			a.DisplayName = a.Key
		}
		c.index[a.Key] = len(c.assets)
		c.assets = append(c.assets, a)
	}

	return c, nil
}

type manifest struct {
	Assets []AssetDescriptor `yaml:"assets"`
}

// Parse builds a catalog from a YAML manifest.
func Parse(data []byte) (*Catalog, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse catalog manifest: %w", err)
	}
	return New(m.Assets...)
}

// Load reads and parses a manifest file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("read catalog manifest: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	log.Debug(log.CatCatalog, "Loaded catalog manifest", "path", path, "assets", c.Len())
	return c, nil
}

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	c, err := Parse(defaultManifest)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// ListAll returns every descriptor in insertion order.
func (c *Catalog) ListAll() []AssetDescriptor {
	out := make([]AssetDescriptor, len(c.assets))
	copy(out, c.assets)
	return out
}

// FilterByCategory returns the descriptors of one category in insertion order.
func (c *Catalog) FilterByCategory(category Category) []AssetDescriptor {
	var out []AssetDescriptor
	for _, a := range c.assets {
		if a.Category == category {
			out = append(out, a)
		}
	}
	return out
}

// Lookup returns the descriptor for key.
func (c *Catalog) Lookup(key string) (AssetDescriptor, bool) {
	i, ok := c.index[key]
	if !ok {
		return AssetDescriptor{}, false
	}
	return c.assets[i], true
}

// Keys returns every asset key in insertion order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.assets))
	for i, a := range c.assets {
		keys[i] = a.Key
	}
	return keys
}

// Len returns the number of assets.
func (c *Catalog) Len() int {
	return len(c.assets)
}
