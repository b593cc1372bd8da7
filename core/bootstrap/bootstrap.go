// Package bootstrap brings up process infrastructure before the app is
// wired: the logger first, then whichever stores the config asks for.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	coreconfig "github.com/m3rciful/combogate/core/config"
	coredatabase "github.com/m3rciful/combogate/core/database"
	"github.com/m3rciful/combogate/core/logger"
)

const redisPingTimeout = 5 * time.Second

// Options selects what Run opens. A nil Database or Redis is not opened.
type Options struct {
	Config   *coreconfig.Config
	Database *coredatabase.Config
	Redis    *redis.Options

	// The hooks below replace the real initializers in tests.
	LoggerInit   func(*coreconfig.Config) error
	Connect      func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	ConnectRedis func(context.Context, *redis.Options) (*redis.Client, error)
}

// Result holds the opened connections; unopened ones are nil.
type Result struct {
	DB    *sqlx.DB
	Redis *redis.Client
}

// Close closes every open connection.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	return errors.Join(errs...)
}

// Run initializes the logger and opens the requested stores. On failure
// anything already opened is closed again.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config")
	}
	initLogger, connect, connectRedis := opts.LoggerInit, opts.Connect, opts.ConnectRedis
	if initLogger == nil {
		initLogger = logger.Init
	}
	if connect == nil {
		connect = coredatabase.Connect
	}
	if connectRedis == nil {
		connectRedis = ConnectRedis
	}
	if err := initLogger(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger: %w", err)
	}

	res := &Result{}
	if opts.Database != nil {
		db, err := connect(ctx, *opts.Database)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: postgres: %w", err)
		}
		res.DB = db
	}
	if opts.Redis != nil {
		client, err := connectRedis(ctx, opts.Redis)
		if err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: redis: %w", err)
		}
		res.Redis = client
	}
	return res, nil
}

// ConnectRedis returns a client that answered PING.
func ConnectRedis(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
	client := redis.NewClient(opts)
	started := time.Now()

	pctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	err := client.Ping(pctx).Err()

	attrs := []any{
		slog.String("event", "redis.connect"),
		slog.String("addr", opts.Addr),
		slog.Int("db", opts.DB),
		slog.Duration("duration", logger.RoundMS(time.Since(started))),
	}
	if err != nil {
		_ = client.Close()
		logger.DB.Error("redis unreachable", append(attrs, slog.String("err", err.Error()))...)
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.DB.Info("redis connected", attrs...)
	return client, nil
}
