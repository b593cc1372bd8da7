package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/m3rciful/combogate/core/buildinfo"
	corecmd "github.com/m3rciful/combogate/core/cmd"
	"github.com/m3rciful/combogate/core/logger"
	"github.com/m3rciful/combogate/internal/app"
)

const (
	configEnvVar      = "COMBOGATE_CONFIG"
	defaultConfigPath = "config.yaml"
)

type rootFlags struct {
	config  string
	envFile string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "combogate",
		Short:         "Telegram bot that sells access to the daily combo",
		Version:       buildinfo.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(flags)
		},
	}
	root.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "config file (default $"+configEnvVar+" or "+defaultConfigPath+")")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(runCmd(flags))
	root.AddCommand(refreshCmd(flags))
	root.AddCommand(stateCmd(flags))
	return root
}

func (f *rootFlags) runnerOptions() corecmd.Options {
	return corecmd.Options{
		ConfigPath:        f.config,
		ConfigEnvVar:      configEnvVar,
		DefaultConfigPath: defaultConfigPath,
		EnvFiles:          []string{f.envFile},
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.Load(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.New(ctx, cfg.(*app.Config), app.Deps{})
		},
	}
}

// openApp loads the config and wires the app for one-shot commands.
func (f *rootFlags) openApp(ctx context.Context) (*app.App, error) {
	carrier, err := corecmd.LoadConfig(f.runnerOptions())
	if err != nil {
		return nil, err
	}
	return app.New(ctx, carrier.(*app.Config), app.Deps{})
}

func runBot(flags *rootFlags) error {
	return corecmd.Run(flags.runnerOptions())
}

func runCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(flags)
		},
	}
}

func withSignals() (context.Context, context.CancelFunc) {
	return corecmd.SignalContext()
}

func shutdownLogger() {
	if err := logger.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown error: %v\n", err)
	}
}
