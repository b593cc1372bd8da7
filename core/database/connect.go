package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/combogate/core/logger"
	"github.com/m3rciful/combogate/core/netutil"
)

const (
	pingTimeout  = 5 * time.Second
	pingInterval = 2 * time.Second
)

// Connect opens the pool and pings it. With WaitSeconds set, failed pings
// are repeated every two seconds until the database answers or the wait is
// over.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(cfg.poolSize())
	db.SetMaxIdleConns(cfg.poolSize())

	started := time.Now()
	if err := ping(ctx, db, cfg); err != nil {
		_ = db.Close()
		logger.DB.Error("db unreachable",
			slog.String("event", "db.connect"),
			slog.String("target", cfg.target()),
			slog.Duration("duration", logger.RoundMS(time.Since(started))),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}
	logger.DB.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("target", cfg.target()),
		slog.Int("pool", cfg.poolSize()),
		slog.Duration("duration", logger.RoundMS(time.Since(started))),
	)
	return db, nil
}

func ping(ctx context.Context, db *sqlx.DB, cfg Config) error {
	once := func(ctx context.Context, _ int) error {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return db.PingContext(pctx)
	}
	wait := cfg.wait()
	if wait <= 0 {
		return once(ctx, 1)
	}

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	return netutil.Policy{
		Attempts: int(wait/pingInterval) + 1,
		After:    func(error) time.Duration { return pingInterval },
		OnRetry: func(attempt int, _ time.Duration, err error) {
			logger.DB.Debug("db not ready",
				slog.String("event", "db.wait"),
				slog.Int("attempt", attempt),
				slog.String("err", err.Error()),
			)
		},
	}.Do(ctx, once)
}
