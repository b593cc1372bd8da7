package main

import (
	"fmt"

	"github.com/spf13/cobra"
	tele "gopkg.in/telebot.v4"
)

func refreshCmd(flags *rootFlags) *cobra.Command {
	var notify bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one content refresh cycle and exit",
		Long: `Fetches the configured source URL once and stores the content if it changed.
With --notify the administrator receives the usual refresh messages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withSignals()
			defer cancel()
			defer shutdownLogger()

			a, err := flags.openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(ctx) }()

			if notify {
				b, err := tele.NewBot(tele.Settings{Token: a.Config().Telegram.Token, Offline: true})
				if err != nil {
					return fmt.Errorf("telegram client: %w", err)
				}
				a.Notifier().Bind(b)
			}

			rep := a.Scheduler().RunOnce(ctx)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "outcome:  %s\n", rep.Outcome)
			fmt.Fprintf(out, "source:   %s\n", valueOr(rep.Source, "(not configured)"))
			fmt.Fprintf(out, "notified: %t\n", rep.Notified)
			fmt.Fprintf(out, "took:     %s\n", rep.Took)
			if rep.Err != nil {
				return fmt.Errorf("refresh: %w", rep.Err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", false, "send admin notifications through the bot")
	return cmd
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
