package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Package providers contains pluggable news source configs (YAML/JSON) and fetchers.

const (
	ProviderTypeGoogleNewsRSS = "google_news_rss"
	ProviderTypeNewsAPI       = "newsapi"
)

// Provider describes one news source endpoint.
type Provider struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Type           string         `json:"type" yaml:"type"`
	SourceURL      string         `json:"source_url" yaml:"source_url"`
	MaxPageSize    int            `json:"max_page_size" yaml:"max_page_size"`
	RequestDelayMs int            `json:"request_delay_ms" yaml:"request_delay_ms"`
	Config         map[string]any `json:"config" yaml:"config"`
}

type registryFile struct {
	Providers []Provider `json:"providers" yaml:"providers"`
}

// Registry is an immutable, ordered set of providers.
type Registry struct {
	providers []Provider
	idx       map[string]Provider
}

const defaultRequestDelayMs = 250

// DefaultProviders returns the built-in Google News RSS and NewsAPI definitions.
func DefaultProviders() []Provider {
	return []Provider{
		{
			ID:        "google_news",
			Name:      "Google News RSS",
			Type:      ProviderTypeGoogleNewsRSS,
			SourceURL: "https://news.google.com/rss/search",
			Config: map[string]any{
				ConfigLanguageKey: "en-US",
				ConfigCountryKey:  "US",
				ConfigEditionKey:  "US:en",
			},
		},
		{
			ID:          "newsapi",
			Name:        "NewsAPI",
			Type:        ProviderTypeNewsAPI,
			SourceURL:   "https://newsapi.org/v2/everything",
			MaxPageSize: 100,
			Config: map[string]any{
				ConfigLanguageKey: "en",
				ConfigSortByKey:   "publishedAt",
			},
		},
	}
}

// NewRegistry validates providers and indexes them by id.
func NewRegistry(list []Provider) (*Registry, error) {
	if len(list) == 0 {
		return nil, errors.New("providers list is empty")
	}

	reg := &Registry{
		providers: make([]Provider, 0, len(list)),
		idx:       make(map[string]Provider, len(list)),
	}
	for i := range list {
		p := sanitizeProvider(list[i])
		if err := validateProvider(p); err != nil {
			return nil, fmt.Errorf("provider[%d]: %w", i, err)
		}
		if _, exists := reg.idx[p.ID]; exists {
			return nil, fmt.Errorf("duplicate provider id %q", p.ID)
		}
		reg.providers = append(reg.providers, p)
		reg.idx[p.ID] = p
	}
	return reg, nil
}

// DefaultRegistry wraps DefaultProviders.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(DefaultProviders())
	if err != nil {
		panic(fmt.Sprintf("built-in providers invalid: %v", err))
	}
	return reg
}

// LoadRegistry loads the provider registry from a YAML or JSON file.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("providers file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open providers file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}

	parsed, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(parsed.Providers) == 0 {
		return nil, errors.New("providers file contains no providers entries")
	}
	return NewRegistry(parsed.Providers)
}

// LoadRegistryOrDefault is LoadRegistry falling back to the built-ins when the file does not exist.
func LoadRegistryOrDefault(path string) (*Registry, error) {
	reg, err := LoadRegistry(path)
	if err == nil {
		return reg, nil
	}
	if strings.TrimSpace(path) == "" || errors.Is(err, fs.ErrNotExist) {
		return DefaultRegistry(), nil
	}
	return nil, err
}

// All returns a copy of the providers in file order.
func (r *Registry) All() []Provider {
	if r == nil {
		return nil
	}
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// ByID returns the provider entry for the given id.
func (r *Registry) ByID(id string) (Provider, bool) {
	if r == nil {
		return Provider{}, false
	}
	p, ok := r.idx[strings.TrimSpace(id)]
	return p, ok
}

// FirstOfType returns the first provider whose type matches typ.
func (r *Registry) FirstOfType(typ string) (Provider, bool) {
	if r == nil {
		return Provider{}, false
	}
	for _, p := range r.providers {
		if strings.EqualFold(p.Type, typ) {
			return p, true
		}
	}
	return Provider{}, false
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("providers file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registryFile, error) {
	var reg registryFile
	if err := fn(data, &reg); err != nil {
		return registryFile{}, fmt.Errorf("decode %s providers: %w", name, err)
	}
	return reg, nil
}

func sanitizeProvider(p Provider) Provider {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.Type = strings.ToLower(strings.TrimSpace(p.Type))
	p.SourceURL = strings.TrimSpace(p.SourceURL)

	if p.Config == nil {
		p.Config = map[string]any{}
	}
	if p.MaxPageSize < 0 {
		p.MaxPageSize = 0
	}
	if p.RequestDelayMs <= 0 {
		p.RequestDelayMs = defaultRequestDelayMs
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	return p
}

func validateProvider(p Provider) error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if p.Type == "" {
		return fmt.Errorf("type is required for provider %q", p.ID)
	}
	if p.Type != ProviderTypeGoogleNewsRSS && p.Type != ProviderTypeNewsAPI {
		return fmt.Errorf("unsupported type %q for provider %q", p.Type, p.ID)
	}
	if p.SourceURL == "" {
		return fmt.Errorf("source_url is required for provider %q", p.ID)
	}
	return nil
}

// RequestDelay returns the per-request throttle used when enriching article pages.
func (p Provider) RequestDelay() time.Duration {
	if p.RequestDelayMs <= 0 {
		return time.Duration(defaultRequestDelayMs) * time.Millisecond
	}
	return time.Duration(p.RequestDelayMs) * time.Millisecond
}

// ClampCount bounds a requested article count by the provider's page size.
func (p Provider) ClampCount(count int) int {
	if p.MaxPageSize > 0 && count > p.MaxPageSize {
		return p.MaxPageSize
	}
	return count
}
