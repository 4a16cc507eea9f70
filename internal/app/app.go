// README: Service wiring shared by the API and kiosk binaries; picks stores from config.
package app

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"farebox/internal/clock"
	"farebox/internal/config"
	"farebox/internal/infra"
	"farebox/internal/metrics"
	"farebox/internal/modules/admin"
	"farebox/internal/modules/journey"
	"farebox/internal/modules/ledger"
	"farebox/internal/modules/location"
	"farebox/internal/modules/pricing"
	"farebox/internal/publisher"
)

type App struct {
	Config  config.Config
	Metrics *metrics.Collector
	Ledger  *ledger.Service
	Pricing *pricing.Service
	Journey *journey.Service
	Admin   *admin.Service
	// History is nil unless Postgres is configured.
	History *journey.PGHistory

	closers []func()
}

type Options struct {
	// GPS overrides the receiver opened from cfg.GPS.Device.
	GPS location.Source
	// Riders overrides the store chosen by cfg.Store.
	Riders ledger.Store
	Clock  clock.Clock
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg, Metrics: metrics.NewCollector()}
	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}

	var pool *pgxpool.Pool
	if cfg.DB.DSN != "" {
		p, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, err
		}
		pool = p
		a.closers = append(a.closers, p.Close)
		a.History = journey.NewPGHistory(pool)
	}

	riders := opts.Riders
	if riders == nil {
		var err error
		riders, err = a.riderStore(ctx, cfg, pool)
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	a.Ledger = ledger.NewService(riders, clk)

	if pool != nil {
		a.Pricing = pricing.NewService(pricing.NewStore(pool))
		if err := a.Pricing.Reload(ctx); err != nil {
			a.Close()
			return nil, err
		}
	} else {
		a.Pricing = pricing.NewService(nil)
	}

	gps := opts.GPS
	if gps == nil {
		f, err := os.Open(cfg.GPS.Device)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open gps device: %w", err)
		}
		a.closers = append(a.closers, func() { _ = f.Close() })
		gps = location.NewLatestSource(f, location.HasGGA)
	}
	acquirer := location.NewAcquirer(gps, location.RetryPolicy{
		MaxAttempts: cfg.GPS.MaxAttempts,
		Delay:       cfg.GPS.RetryDelay,
	}, a.Metrics)

	var guard journey.TapGuard = journey.NewMemoryTapGuard(cfg.Journey.TapDebounce, clk)
	if cfg.Redis.Addr != "" {
		client, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		guard = journey.NewRedisTapGuard(client, cfg.Journey.TapDebounce)
	}

	deps := journey.Deps{
		Ledger:  a.Ledger,
		Fixes:   acquirer,
		Fares:   a.Pricing,
		Guard:   guard,
		Metrics: a.Metrics,
		Clock:   clk,
	}
	if a.History != nil {
		deps.History = a.History
	}
	if cfg.NATS.URL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject, a.Metrics)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("nats connect: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		deps.Events = pub
	}
	a.Journey = journey.NewService(deps, journey.Config{MinCharge: cfg.Journey.MinCharge})

	admins := admin.NewAllowList(cfg.AdminIDs)
	if admins.Len() == 0 {
		log.Printf("no admin ids configured; admin operations are disabled")
	}
	a.Admin = admin.NewService(admins, a.Ledger, a.Metrics)

	log.Printf("farebox wired store=%s history=%t nats=%t redis=%t", cfg.Store, a.History != nil, cfg.NATS.URL != "", cfg.Redis.Addr != "")
	return a, nil
}

func (a *App) riderStore(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (ledger.Store, error) {
	switch cfg.Store {
	case config.StoreFirebase:
		client, err := infra.NewFirebaseDB(ctx, cfg.Firebase.CredentialsFile, cfg.Firebase.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return ledger.NewFirebaseStore(client, cfg.Firebase.RootPath), nil
	case config.StorePostgres:
		if pool == nil {
			return nil, fmt.Errorf("store %q needs FAREBOX_DB_DSN", cfg.Store)
		}
		return ledger.NewPGStore(pool), nil
	case config.StoreMemory:
		log.Printf("using in-memory rider store; balances are lost on restart")
		return ledger.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
