package main

import (
	"context"
	"fmt"
	"time"

	"hivelog/internal/app"
	"hivelog/internal/utils"

	"github.com/spf13/cobra"
)

func parseIDArg(s string) (uint, error) {
	id, ok := utils.ParseID(s)
	if !ok {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Migrate()
			})
		},
	}
}

func sweepCmd() *cobra.Command {
	var at string
	command := &cobra.Command{
		Use:   "sweep",
		Short: "Transition every eligible sandbox post now",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				now = t
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, err := a.Transitions.RunSweep(ctx, now)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "transitioned %d posts\n", n)
				return nil
			})
		},
	}
	command.Flags().StringVar(&at, "at", "", "evaluate eligibility as of this RFC3339 time")
	return command
}

func transitionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transition <post-id>",
		Short: "Synthesize the wiki for one post regardless of eligibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				wiki, err := a.Transitions.ManualTransition(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "post %d is now a wiki (version %d)\n", id, wiki.Version)
				return nil
			})
		},
	}
}

func rollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <post-id>",
		Short: "Return a post stuck in processing to the sandbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Transitions.ForceRollback(ctx, id)
			})
		},
	}
}

func userCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "user",
		Short: "user commands",
	}
	command.AddCommand(userStatusCmd("ban", false), userStatusCmd("unban", true))
	return command
}

func userStatusCmd(name string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <user-id>",
		Short: name + " a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Store.SetUserActive(ctx, id, active)
			})
		},
	}
}
