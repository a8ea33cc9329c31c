package main

import (
	"context"
	"os"

	"hivelog/internal/app"
	"hivelog/internal/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hivectl",
	Short: "hivelog maintenance tool",
	Example: `hivectl migrate
hivectl sweep
hivectl transition <post-id>
hivectl rollback <post-id>
hivectl user ban <user-id>`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd(), sweepCmd(), transitionCmd(), rollbackCmd(), userCmd())
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false
}

// withApp 加载配置并构建服务，结束后释放连接
func withApp(cmd *cobra.Command, f func(ctx context.Context, a *app.App) error) error {
	cfg := config.Load()
	config.ConfigureLogging(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return f(ctx, a)
}
