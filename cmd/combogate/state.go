package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/m3rciful/combogate/internal/state"
)

func stateCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or edit the stored state document",
	}
	cmd.AddCommand(stateShowCmd(flags), stateExportCmd(flags), stateGrantCmd(flags))
	return cmd
}

func stateShowCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print a summary of the stored state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withSignals()
			defer cancel()
			defer shutdownLogger()

			a, err := flags.openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Store().Backend().Close() }()

			doc := a.Store().Document()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend:     %s\n", a.Store().Backend().Name())
			fmt.Fprintf(out, "active:      %t\n", doc.Active)
			fmt.Fprintf(out, "source_url:  %s\n", valueOr(doc.SourceURL, "(not configured)"))
			fmt.Fprintf(out, "subscribers: %d\n", a.Store().Subscribers())
			if !doc.UpdatedAt.IsZero() {
				fmt.Fprintf(out, "updated_at:  %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
			}
			fmt.Fprintf(out, "content:\n%s\n", doc.Content)
			return nil
		},
	}
}

func stateExportCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the state document as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withSignals()
			defer cancel()
			defer shutdownLogger()

			a, err := flags.openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Store().Backend().Close() }()

			data, err := state.Encode(a.Store().Document())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

func stateGrantCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "grant <user_id>",
		Short: "Entitle a user without a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || userID <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			ctx, cancel := withSignals()
			defer cancel()
			defer shutdownLogger()

			a, err := flags.openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Store().Backend().Close() }()

			granted, err := a.Store().Grant(ctx, userID)
			if err != nil {
				return fmt.Errorf("grant saved in memory only: %w", err)
			}
			if granted {
				fmt.Fprintf(cmd.OutOrStdout(), "user %d entitled\n", userID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "user %d already entitled\n", userID)
			}
			return nil
		},
	}
}
