package cli

import (
	"strings"
	"time"

	"github.com/pfrederiksen/local-events/internal/cache"
	"github.com/pfrederiksen/local-events/internal/config"
	"github.com/pfrederiksen/local-events/internal/expand"
	"github.com/pfrederiksen/local-events/internal/logger"
	"github.com/pfrederiksen/local-events/internal/metrics"
	"github.com/pfrederiksen/local-events/internal/pipeline"
	"github.com/pfrederiksen/local-events/internal/provider"
	"github.com/pfrederiksen/local-events/internal/provider/exa"
	"github.com/pfrederiksen/local-events/internal/provider/perplexity"
	"github.com/pfrederiksen/local-events/internal/provider/predicthq"
	"github.com/pfrederiksen/local-events/internal/provider/serpapi"
	"github.com/pfrederiksen/local-events/internal/provider/ticketmaster"
	"github.com/pfrederiksen/local-events/internal/provider/venues"
)

// expandTimeout bounds one aggregator listing fetch. Expansion is a bonus;
// it never gets the full provider timeout budget.
const expandTimeout = 10 * time.Second

// App is the wired application: adapters, snapshot manager and pipeline.
type App struct {
	Pipeline  *pipeline.Pipeline
	Snapshots *cache.SnapshotManager
	Refresher cache.Refresher

	sqlStore *cache.SQLStore
}

// buildApp assembles the pipeline from configuration. m may be nil when the
// invocation does not record metrics (health, venues subcommands).
func buildApp(cfg *config.Config, m *metrics.Metrics) (*App, error) {
	app := &App{}
	store := cache.NewMemoryStore(cfg.ResponseTTL, nil)

	var adapters []provider.Adapter
	if cfg.SerpAPI.Enabled {
		client := serpapi.New(cfg.SerpAPI, store)
		client.OnCache(cacheHook(m, client.Name()))
		adapters = append(adapters, client)
	}
	if cfg.Exa.Enabled {
		client := exa.New(cfg.Exa, store)
		client.OnCache(cacheHook(m, client.Name()))
		adapters = append(adapters, client)
	}
	if cfg.Perplexity.Enabled {
		client := perplexity.New(cfg.Perplexity, store)
		client.OnCache(cacheHook(m, client.Name()))
		adapters = append(adapters, client)
	}
	if cfg.PredictHQ.Enabled {
		adapters = append(adapters, predicthq.New(cfg.PredictHQ))
	}
	if cfg.Ticketmaster.Enabled {
		adapters = append(adapters, ticketmaster.New(cfg.Ticketmaster))
	}

	if cfg.Venues.Enabled {
		manager, err := app.buildSnapshots(cfg.Venues, m)
		if err != nil {
			return nil, err
		}
		app.Snapshots = manager
		adapters = append(adapters, venues.New(manager))
	}

	logger.Debug("pipeline assembled", logger.Fields{
		"adapters": len(adapters),
	})

	app.Pipeline = pipeline.New(adapters, expand.New(expandTimeout), m, cfg.DefaultLimit)
	return app, nil
}

// buildSnapshots wires the snapshot manager over its backing stores: the
// JSON file always, the SQLite copy when configured.
func (a *App) buildSnapshots(cfg config.VenuesConfig, m *metrics.Metrics) (*cache.SnapshotManager, error) {
	fileStore, err := cache.NewFileStore(cfg.SnapshotPath)
	if err != nil {
		return nil, err
	}
	stores := []cache.SnapshotStore{fileStore}

	if cfg.DBPath != "" {
		sqlStore, err := cache.NewSQLStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		a.sqlStore = sqlStore
		stores = append(stores, sqlStore)
	}

	if len(cfg.RefreshCommand) > 0 {
		refresher, err := cache.NewCommandRefresher(cfg.RefreshCommand)
		if err != nil {
			return nil, err
		}
		a.Refresher = refresher
	}

	manager := cache.NewSnapshotManager(stores, a.Refresher, nil, cfg.StaleAfter, cfg.RefreshCooldown)
	if m != nil {
		manager.OnSpawn(m.RefreshSpawns.Inc)
	}
	return manager, nil
}

// cacheHook adapts the hit/miss collectors into an adapter cache hook.
// Returns nil when the invocation records no metrics; adapters treat a nil
// hook as disabled.
func cacheHook(m *metrics.Metrics, provider string) func(hit bool) {
	if m == nil {
		return nil
	}
	return func(hit bool) {
		if hit {
			m.CacheHits.WithLabelValues(provider).Inc()
		} else {
			m.CacheMisses.WithLabelValues(provider).Inc()
		}
	}
}

// restrictProviders disables every provider not named. An empty list leaves
// the config untouched.
func restrictProviders(cfg *config.Config, names []string) {
	if len(names) == 0 {
		return
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = true
	}
	cfg.SerpAPI.Enabled = cfg.SerpAPI.Enabled && want["serpapi"]
	cfg.Exa.Enabled = cfg.Exa.Enabled && want["exa"]
	cfg.Perplexity.Enabled = cfg.Perplexity.Enabled && want["perplexity"]
	cfg.PredictHQ.Enabled = cfg.PredictHQ.Enabled && want["predicthq"]
	cfg.Ticketmaster.Enabled = cfg.Ticketmaster.Enabled && want["ticketmaster"]
	cfg.Venues.Enabled = cfg.Venues.Enabled && want["venues"]
}

// Close releases resources held by the app.
func (a *App) Close() {
	if a.sqlStore != nil {
		a.sqlStore.Close()
	}
}
