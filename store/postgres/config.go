package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds PostgreSQL connection settings with environment variable mapping.
type Config struct {
	ConnectionString string        `env:"POSTGRES_URL,required"`
	MaxOpenConns     int32         `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"10"`
	MinIdleConns     int32         `env:"POSTGRES_MIN_IDLE_CONNS" envDefault:"2"`
	MaxConnIdleTime  time.Duration `env:"POSTGRES_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime  time.Duration `env:"POSTGRES_MAX_CONN_LIFETIME" envDefault:"30m"`
	RetryAttempts    int           `env:"POSTGRES_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval    time.Duration `env:"POSTGRES_RETRY_INTERVAL" envDefault:"5s"`
}

// ErrFailedToConnect is returned when the pool cannot be established after
// all retry attempts are exhausted.
var ErrFailedToConnect = errors.New("postgres: failed to connect")

// Connect creates a pgx connection pool from cfg and verifies connectivity
// with a ping. Transient failures are retried with a fixed interval to ride
// out database restarts during deployment.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToConnect, err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = cfg.MaxOpenConns
	}
	if cfg.MinIdleConns > 0 {
		poolCfg.MinConns = cfg.MinIdleConns
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	attempts := max(cfg.RetryAttempts, 1)

	var lastErr error
	for attempt := range attempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Join(ErrFailedToConnect, ctx.Err())
			case <-time.After(cfg.RetryInterval):
			}
		}

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			lastErr = err
			continue
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			lastErr = err
			continue
		}
		return pool, nil
	}

	return nil, errors.Join(ErrFailedToConnect, fmt.Errorf("after %d attempts: %w", attempts, lastErr))
}
