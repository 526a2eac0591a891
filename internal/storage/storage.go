// Package storage opens the configured persistence backend and exposes it
// through the repository interfaces.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ad-tracker/youtube-announcer-go/internal/config"
	"github.com/ad-tracker/youtube-announcer-go/internal/db"
	"github.com/ad-tracker/youtube-announcer-go/internal/db/repository"
	"github.com/ad-tracker/youtube-announcer-go/internal/db/sqlite"
)

// Stores bundles the repositories of one backend.
type Stores struct {
	Channels repository.ChannelRepository
	Ledger   repository.LedgerRepository
	Quota    repository.QuotaRepository

	ping  func(context.Context) error
	close func()
}

// Ping verifies the backend is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the backend.
func (s *Stores) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// Open connects to the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Stores, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Channels: store,
			Ledger:   store,
			Quota:    store,
			ping:     store.Ping,
			close:    func() { _ = store.Close() },
		}, nil

	case config.DriverPostgres, "":
		pool, err := db.NewPool(ctx, PostgresConfig(cfg))
		if err != nil {
			return nil, err
		}
		return &Stores{
			Channels: repository.NewChannelRepository(pool),
			Ledger:   repository.NewLedgerRepository(pool),
			Quota:    repository.NewQuotaRepository(pool),
			ping:     pool.Ping,
			close:    pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// PostgresConfig converts the application database settings into pool settings.
func PostgresConfig(cfg config.DatabaseConfig) *db.Config {
	pc := db.DefaultConfig()
	pc.Host = cfg.Host
	pc.Port = cfg.Port
	pc.User = cfg.User
	pc.Password = cfg.Password
	pc.Database = cfg.Name
	if cfg.SSLMode != "" {
		pc.SSLMode = cfg.SSLMode
	}
	if cfg.MaxConnections > 0 {
		pc.MaxConns = int32(cfg.MaxConnections)
	}
	if cfg.MinConnections > 0 {
		pc.MinConns = int32(cfg.MinConnections)
	}
	if cfg.MaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxLifetime
	}
	if cfg.MaxIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxIdleTime
	}
	return pc
}

// PingWithTimeout pings the backend with a bounded deadline.
func (s *Stores) PingWithTimeout(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.Ping(ctx)
}
