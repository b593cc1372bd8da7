package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/combogate/core/config"
	coredatabase "github.com/m3rciful/combogate/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunWithoutConnections(t *testing.T) {
	res, err := Run(context.Background(), Options{Config: &coreconfig.Config{}, LoggerInit: noLogger})
	require.NoError(t, err)
	require.Nil(t, res.DB)
	require.Nil(t, res.Redis)
	require.NoError(t, res.Close())
}

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	require.Error(t, err)
}

func TestRunLoggerFailure(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return boom },
	})
	require.ErrorIs(t, err, boom)
}

func TestRunDatabaseFailure(t *testing.T) {
	boom := errors.New("refused")
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   &coredatabase.Config{Host: "db"},
		LoggerInit: noLogger,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			return nil, boom
		},
	})
	require.ErrorIs(t, err, boom)
}

func TestRunConnectsRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Redis:      &redis.Options{Addr: mr.Addr()},
		LoggerInit: noLogger,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Redis)
	require.NoError(t, res.Close())
}

func TestConnectRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := ConnectRedis(context.Background(), &redis.Options{Addr: addr, MaxRetries: -1})
	require.Error(t, err)
}
