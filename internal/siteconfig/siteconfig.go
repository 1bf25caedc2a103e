// Package siteconfig loads the operator-editable storefront content.
package siteconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/EgoistMa/tokomo-app/internal/model"
)

// ErrEmpty is returned when the backend has no site config.
var ErrEmpty = errors.New("site config is empty")

// Fetcher retrieves the raw site config document.
type Fetcher interface {
	SiteConfig(ctx context.Context) (json.RawMessage, error)
}

// Load fetches and decodes the site config. The document may arrive as an
// object or as a JSON string holding the object.
func Load(ctx context.Context, fetcher Fetcher) (*model.SiteConfig, error) {
	raw, err := fetcher.SiteConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch site config: %w", err)
	}
	return Decode(raw)
}

// Decode parses raw into a SiteConfig. Sections missing from raw keep their
// default values.
func Decode(raw json.RawMessage) (*model.SiteConfig, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrEmpty
	}

	var inner string
	if err := json.Unmarshal(raw, &inner); err == nil {
		if inner == "" {
			return nil, ErrEmpty
		}
		raw = json.RawMessage(inner)
	}

	cfg := model.DefaultSiteConfig()
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode site config: %w", err)
	}
	if cfg.PurchaseGuide.Steps == nil {
		cfg.PurchaseGuide.Steps = map[string][]model.GuideStep{}
	}
	return cfg, nil
}

// Provider holds the loaded site config. Get is safe before Init and after
// a failed load; it then returns the built-in default.
type Provider struct {
	fetcher Fetcher

	mu    sync.RWMutex
	cfg   *model.SiteConfig
	ready bool
}

// NewProvider creates a Provider that loads from fetcher.
func NewProvider(fetcher Fetcher) *Provider {
	return &Provider{fetcher: fetcher}
}

// Init loads the config. It may be called again to reload; a failed reload
// keeps the previous value.
func (p *Provider) Init(ctx context.Context) error {
	cfg, err := Load(ctx, p.fetcher)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.cfg = cfg
	p.ready = true
	p.mu.Unlock()

	log.Info().
		Int("platforms", len(cfg.PurchaseGuide.Platforms)).
		Int("carousel_items", len(cfg.Carousel.Items)).
		Msg("Site config loaded")
	return nil
}

// Ready reports whether a config has been loaded.
func (p *Provider) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready
}

// Get returns the loaded config or the default.
func (p *Provider) Get() *model.SiteConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cfg == nil {
		return model.DefaultSiteConfig()
	}
	return p.cfg
}
