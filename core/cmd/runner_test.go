package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/combogate/core/config"
	coretelegram "github.com/m3rciful/combogate/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct{ opts coretelegram.RunOptions }

func (a fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) { return a.opts, nil }

func TestConfigPathPrecedence(t *testing.T) {
	t.Setenv("COMBOGATE_TEST_CONFIG", "/from/env.yaml")

	p, err := ConfigPath(Options{ConfigPath: "/flag.yaml", ConfigEnvVar: "COMBOGATE_TEST_CONFIG", DefaultConfigPath: "/default.yaml"})
	require.NoError(t, err)
	require.Equal(t, "/flag.yaml", p)

	p, err = ConfigPath(Options{ConfigEnvVar: "COMBOGATE_TEST_CONFIG", DefaultConfigPath: "/default.yaml"})
	require.NoError(t, err)
	require.Equal(t, "/from/env.yaml", p)

	p, err = ConfigPath(Options{ConfigEnvVar: "COMBOGATE_TEST_UNSET", DefaultConfigPath: "/default.yaml"})
	require.NoError(t, err)
	require.Equal(t, "/default.yaml", p)

	_, err = ConfigPath(Options{ConfigEnvVar: "COMBOGATE_TEST_UNSET"})
	require.Error(t, err)
}

func TestLoadEnvFilesSkipsMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("COMBOGATE_TEST_DOTENV=loaded\n"), 0o600))
	t.Setenv("COMBOGATE_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("COMBOGATE_TEST_DOTENV"))

	require.NoError(t, LoadEnvFiles(filepath.Join(dir, "missing.env"), path))
	require.Equal(t, "loaded", os.Getenv("COMBOGATE_TEST_DOTENV"))
}

func TestRunWiresLifecycleHooks(t *testing.T) {
	var started, stopped bool
	err := Run(Options{
		ConfigPath: "config.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return fakeApp{opts: coretelegram.RunOptions{
				OnStart: func(context.Context, coretelegram.Runtime) error { started = true; return nil },
				OnStop:  func(context.Context, coretelegram.Runtime) error { stopped = true; return nil },
			}}, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	require.NoError(t, err)
	require.True(t, started)
	require.True(t, stopped)
}

func TestLoadConfigRejectsMissingCore(t *testing.T) {
	_, err := LoadConfig(Options{
		ConfigPath: "x.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) { return carrier{}, nil },
	})
	require.ErrorContains(t, err, "no core section")

	_, err = LoadConfig(Options{ConfigPath: "x.yaml"})
	require.Error(t, err)
}

func TestRunStopsOnStartFailure(t *testing.T) {
	boom := errors.New("boom")
	var stopped bool
	err := Run(Options{
		ConfigPath: "config.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return fakeApp{opts: coretelegram.RunOptions{
				OnStart: func(context.Context, coretelegram.Runtime) error { return boom },
				OnStop:  func(context.Context, coretelegram.Runtime) error { stopped = true; return nil },
			}}, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			return opts.OnStart(ctx, coretelegram.Runtime{})
		},
	})
	require.ErrorIs(t, err, boom)
	require.False(t, stopped)
}
