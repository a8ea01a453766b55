// Package app wires together configuration, the API client, and other
// dependencies into a single Deps struct that commands receive at runtime.
package app

import (
	"fmt"
	"log/slog"

	"github.com/derickschaefer/timefilter/internal/chartmenu"
	"github.com/derickschaefer/timefilter/internal/config"
	"github.com/derickschaefer/timefilter/internal/store"
	"github.com/derickschaefer/timefilter/internal/superset"
	"github.com/derickschaefer/timefilter/internal/timerange"
)

// Deps holds all runtime dependencies injected into command Run functions.
// Store is nil until RequireStore or OpenCache is called.
type Deps struct {
	Config *config.Config
	Client *superset.Client
	Store  *store.Store
}

// New builds a Deps from resolved config.
func New(cfg *config.Config) *Deps {
	client := superset.NewClient(
		cfg.BaseURL,
		cfg.AccessToken,
		cfg.Timeout,
		cfg.Rate,
		cfg.Debug,
	)
	return &Deps{
		Config: cfg,
		Client: client,
	}
}

// RequireStore opens the local store at Config.DBPath if it is not open yet.
func (d *Deps) RequireStore() error {
	if d.Store != nil {
		return nil
	}
	if d.Config.DBPath == "" {
		return fmt.Errorf("no database path configured (set db_path or %s)", config.EnvDBPath)
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return err
	}
	d.Store = s
	return nil
}

// OpenCache opens the store for use as the resolution cache. A zero
// cache_ttl disables caching. Failure is not fatal: resolution continues
// uncached.
func (d *Deps) OpenCache() {
	if d.Config.CacheTTL <= 0 {
		return
	}
	if err := d.RequireStore(); err != nil {
		slog.Debug("resolution cache unavailable", "path", d.Config.DBPath, "error", err)
	}
}

// Close releases the store, if open.
func (d *Deps) Close() error {
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}

// Endpoints parses the configured bound inclusivity.
func (d *Deps) Endpoints() (timerange.Endpoints, error) {
	return timerange.ParseEndpoints(d.Config.Endpoints)
}

// NewResolver builds a Resolver over the Superset client. The store backs
// the cache when it is open; --no-cache and --refresh skip cache reads.
func (d *Deps) NewResolver() (*timerange.Resolver, error) {
	endpoints, err := d.Endpoints()
	if err != nil {
		return nil, err
	}
	opts := []timerange.ResolverOption{
		timerange.WithEndpoints(endpoints),
		timerange.WithErrorMessager(superset.ErrorMessage),
		timerange.WithRefresh(d.Config.NoCache || d.Config.Refresh),
		timerange.WithCacheScope(d.Client.BaseURL()),
	}
	if d.Store != nil {
		opts = append(opts, timerange.WithCache(d.Store, d.Config.CacheTTL))
	}
	return timerange.NewResolver(d.Client, opts...), nil
}

// Registry loads the chart registry from Config.RegistryPath, or returns
// the built-in one.
func (d *Deps) Registry() (*chartmenu.StaticRegistry, error) {
	if d.Config.RegistryPath == "" {
		return chartmenu.DefaultRegistry(), nil
	}
	return chartmenu.LoadRegistry(d.Config.RegistryPath)
}
