package skillmatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goredis "github.com/redis/go-redis/v9"

	"github.com/poiesic/skillmatch/config"
	"github.com/poiesic/skillmatch/storage"
	"github.com/poiesic/skillmatch/storage/badger"
	"github.com/poiesic/skillmatch/storage/fs"
	"github.com/poiesic/skillmatch/storage/redis"
	"github.com/poiesic/skillmatch/storage/sqlite"
)

// openedStores holds one store per tier and the shared handles behind them.
type openedStores struct {
	byTier  map[storage.Tier]storage.Store
	closers []io.Closer
}

// Close closes the stores, then the shared backends, and returns the first error.
func (s *openedStores) Close() error {
	var first error
	for _, st := range s.byTier {
		if err := st.Close(); err != nil && first == nil {
			first = err
		}
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openStores opens the backend of every tier. Tiers on the same backend
// share one badger database, sqlite file or redis client.
func openStores(ctx context.Context, cfg config.CacheConfig) (*openedStores, error) {
	opened := &openedStores{byTier: make(map[storage.Tier]storage.Store, len(storage.Tiers))}

	var (
		badgerBackend *badger.Backend
		sqliteDB      *sqlite.DB
		redisClient   *goredis.Client
	)

	for _, tier := range storage.Tiers {
		var (
			store storage.Store
			err   error
		)
		switch name := cfg.BackendFor(tier); name {
		case config.BackendFS:
			store, err = fs.NewStore(cfg.Dir, tier)

		case config.BackendBadger:
			if badgerBackend == nil {
				if badgerBackend, err = badger.OpenBackend(filepath.Join(cfg.Dir, "badger"), false); err != nil {
					break
				}
				opened.closers = append(opened.closers, badgerBackend)
			}
			store, err = badger.NewStore(badgerBackend, tier)

		case config.BackendSQLite:
			if sqliteDB == nil {
				if err = ensureParent(cfg.SQLite.Path); err != nil {
					break
				}
				if sqliteDB, err = sqlite.Open(ctx, cfg.SQLite.Path); err != nil {
					break
				}
				opened.closers = append(opened.closers, sqliteDB)
			}
			store, err = sqlite.NewStore(sqliteDB, tier)

		case config.BackendRedis:
			if redisClient == nil {
				redisClient = redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
				opened.closers = append(opened.closers, redisClient)
			}
			store, err = redis.NewStore(redisClient, cfg.Redis.Prefix, tier)

		default:
			err = fmt.Errorf("%w: unknown cache backend %q", config.ErrInvalidConfig, name)
		}

		if err != nil {
			opened.Close()
			return nil, fmt.Errorf("open %s cache: %w", tier, err)
		}
		opened.byTier[tier] = store
	}
	return opened, nil
}

func ensureParent(path string) error {
	if path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
