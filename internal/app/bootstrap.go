package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"commander_go/internal/carddb"
	"commander_go/internal/engine"
	"commander_go/internal/infra"
	"commander_go/internal/infra/cache"
	"commander_go/internal/infra/edhrec"
	"commander_go/internal/infra/ligamagic"
	"commander_go/internal/infra/scryfall"
	"commander_go/internal/infra/settings"
	"commander_go/internal/infra/storage"
	"commander_go/internal/service"
)

// Bootstrap orchestrates the application startup sequence and owns the one
// service graph of the process
type Bootstrap struct {
	ConfigPath string

	Config   *infra.Config
	Storage  *storage.Storage
	Settings *settings.Manager
	Cache    *cache.Store
	Limiter  *infra.RateLimiter
	Metrics  *infra.Metrics

	LigaMagic *ligamagic.Adapter
	Scryfall  *scryfall.Adapter
	Rates     *infra.ExchangeRateClient
	Resolver  *service.Resolver
	Batches   *engine.Coordinator

	Cards           *carddb.Database
	Recommendations *edhrec.Client
	Images          *infra.CardImageDownloader

	renderer *ligamagic.ChromeRenderer
}

// NewBootstrap creates a new Bootstrap instance. An empty configPath is
// resolved with infra.ResolveConfigPath.
func NewBootstrap(configPath string) *Bootstrap {
	if configPath == "" {
		configPath = infra.ResolveConfigPath()
	}
	return &Bootstrap{ConfigPath: configPath}
}

// Initialize performs core system initialization. The card database is not
// loaded here; see LoadCardDB.
func (b *Bootstrap) Initialize() error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(b.ConfigPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("Bootstrapping", slog.String("app", cfg.App.Name), slog.String("data_dir", cfg.App.DataDir))

	// 3. Initialize Storage (DB) and the operator settings on top of it
	store, err := storage.NewStorage(cfg.DBPath())
	if err != nil {
		return err
	}
	b.Storage = store
	b.Settings = settings.NewManager(store)
	slog.Info("Database initialized", slog.String("path", cfg.DBPath()))

	// 4. Price caches, rate limiting, metrics
	priceCache, err := cache.NewStore(cfg.CacheDir())
	if err != nil {
		return err
	}
	b.Cache = priceCache
	b.Metrics = infra.NewMetrics()

	b.Limiter = infra.NewRateLimiter(infra.DefaultMinInterval)
	b.Limiter.SetInterval(ligamagic.SourceName, cfg.Sources.LigaMagic.MinInterval())
	b.Limiter.SetInterval(scryfall.SourceName, cfg.Sources.Scryfall.MinInterval())
	b.Limiter.SetInterval(infra.ExchangeRateSource, cfg.Sources.ExchangeRate.MinInterval())

	// 5. Source adapters
	b.initSources(cfg)

	// 6. Collaborators
	b.Cards = carddb.New(cfg.CardDB.Path)
	b.Recommendations = edhrec.NewClient(cfg.Sources.EDHREC.URL, infra.NewHTTPClient(cfg.Sources.EDHREC.Timeout()))

	images, err := infra.NewCardImageDownloader(cfg.ImageDir(),
		infra.WithImageEndpoint(cfg.Sources.Scryfall.URL+"/cards/named", nil))
	if err != nil {
		return err
	}
	b.Images = images

	slog.Info("Service graph ready",
		slog.Bool("render_escalation", b.LigaMagic.CanEscalate()),
		slog.String("currency", b.Resolver.TargetCurrency()))
	return nil
}

func (b *Bootstrap) initSources(cfg *infra.Config) {
	lm := cfg.Sources.LigaMagic
	opts := []ligamagic.Option{
		ligamagic.WithBaseURL(lm.URL),
		ligamagic.WithHTTPClient(infra.NewHTTPClient(lm.Timeout())),
		ligamagic.WithMetrics(b.Metrics),
	}
	if lm.Render.Enabled {
		b.renderer = ligamagic.NewChromeRenderer(lm.URL, time.Duration(lm.Render.TimeoutSec)*time.Second, lm.Render.ChromePath)
		opts = append(opts, ligamagic.WithRenderer(b.renderer))
	}
	b.LigaMagic = ligamagic.New(b.Cache, b.Settings, b.Limiter, opts...)

	sf := cfg.Sources.Scryfall
	b.Scryfall = scryfall.New(b.Cache, b.Settings, b.Limiter,
		scryfall.WithBaseURL(sf.URL),
		scryfall.WithHTTPClient(infra.NewHTTPClient(sf.Timeout())),
		scryfall.WithMetrics(b.Metrics),
	)

	xr := cfg.Sources.ExchangeRate
	b.Rates = infra.NewExchangeRateClient(b.Cache, b.Settings,
		infra.WithRateURL(xr.URL),
		infra.WithRateCurrencies(xr.Base, xr.Target),
		infra.WithRateHTTPClient(infra.NewHTTPClient(xr.Timeout())),
		infra.WithRateLimiter(b.Limiter),
		infra.WithRateMetrics(b.Metrics),
	)

	b.Resolver = service.NewResolver(b.LigaMagic, b.Scryfall, b.Rates)
	b.Batches = engine.NewCoordinator(b.Resolver, b.Resolver.TargetCurrency())
}

// LoadCardDB loads the card database. Its failure is fatal for every
// command that needs card lookups.
func (b *Bootstrap) LoadCardDB() error {
	if err := b.Cards.Load(); err != nil {
		slog.Error("Card database failed to load", slog.String("path", b.Config.CardDB.Path), slog.Any("error", err))
		return err
	}
	slog.Info("Card database loaded", slog.Int("cards", b.Cards.Len()))
	return nil
}

// PrefetchThumbnails downloads the thumbnails of cards in the background
// with bounded concurrency
func (b *Bootstrap) PrefetchThumbnails(ctx context.Context, cards []string) {
	slog.Info("Starting thumbnail prefetch", slog.Int("cards", len(cards)))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent downloads

	for _, card := range cards {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			if _, err := b.Images.Thumbnail(ctx, name); err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("Failed to download thumbnail", slog.String("card", name), slog.Any("error", err))
			}
		}(card)
	}

	wg.Wait()
	slog.Info("Thumbnail prefetch completed")
}

// Close releases the browser and the database
func (b *Bootstrap) Close() {
	if b.Batches != nil {
		b.Batches.Stop()
	}
	if b.renderer != nil {
		b.renderer.Close()
	}
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("Failed to close database", slog.Any("error", err))
		}
	}
}
