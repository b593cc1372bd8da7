package telegram

import (
	"testing"

	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/combogate/core/config"
)

func chainNames(t *testing.T, chain []Middleware) []string {
	t.Helper()
	names := make([]string, 0, len(chain))
	for _, mw := range chain {
		require.NotNil(t, mw.Use, mw.Name)
		names = append(names, mw.Name)
	}
	return names
}

func TestDefaultMiddlewares(t *testing.T) {
	cfg := &coreconfig.Config{}
	require.Equal(t, []string{"recover", "trace", "replies"}, chainNames(t, DefaultMiddlewares(cfg, nil)))

	cfg.RateLimit.IntervalMS = 500
	require.Equal(t, []string{"recover", "trace", "throttle", "replies"}, chainNames(t, DefaultMiddlewares(cfg, nil)))
}
