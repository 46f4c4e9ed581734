package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geolocate/internal/locate"
	"github.com/sells-group/geolocate/internal/model"
	"github.com/sells-group/geolocate/internal/resilience"
	"github.com/sells-group/geolocate/internal/store"
	"github.com/sells-group/geolocate/pkg/geocode"
	"github.com/sells-group/geolocate/pkg/geoip"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "geolocate.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL,
			&store.PoolConfig{MaxConns: cfg.Store.MaxConns, MinConns: cfg.Store.MinConns},
			store.WithRetry(resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs)),
			store.WithCircuitBreaker(resilience.FromCircuitConfig(cfg.Circuit.FailureThreshold, cfg.Circuit.ResetTimeoutSecs)),
		)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// locator owns the collaborators of the position and region searchers.
type locator struct {
	store    store.Store
	geoip    geoip.DB
	position *locate.Searcher
	region   *locate.Searcher
}

func initLocator(ctx context.Context) (*locator, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	geocoder, err := geocode.New()
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "init geocoder")
	}
	return newLocator(st, geocoder, geoip.OpenOrNull(cfg.GeoIP.Path, geocoder), model.DecayScore(cfg.Score)), nil
}

func newLocator(st store.Store, geocoder *geocode.Geocoder, ipdb geoip.DB, score model.ScoreFunc) *locator {
	sources := locate.Sources{
		Store:    st,
		Geocoder: geocoder,
		GeoIP:    ipdb,
		Score:    score,
		OCID:     cfg.Locate.OCIDEnabled,
	}
	if age := ipdb.Age(); age > 30 {
		zap.L().Warn("geoip: database is outdated", zap.Int("age_days", age))
	}
	return &locator{
		store:    st,
		geoip:    ipdb,
		position: locate.NewDefaultPositionSearcher(sources),
		region:   locate.NewDefaultRegionSearcher(sources),
	}
}

func (l *locator) searcher(kind locate.Kind) *locate.Searcher {
	if kind == locate.RegionKind {
		return l.region
	}
	return l.position
}

// locate runs one query. Fallbacks disabled in config stay disabled
// regardless of the request.
func (l *locator) locate(ctx context.Context, p locate.QueryParams) (locate.Result, error) {
	if !cfg.Locate.IPFallback {
		p.NoIPFallback = true
	}
	if !cfg.Locate.AreaFallback {
		p.NoAreaFallback = true
	}
	return l.searcher(p.Kind).Search(ctx, locate.NewQuery(p))
}

func (l *locator) Close() error {
	if err := l.geoip.Close(); err != nil {
		zap.L().Warn("geoip: close failed", zap.Error(err))
	}
	return l.store.Close()
}
