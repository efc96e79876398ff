// Command admin provisions accounts and roles out of band and inspects the
// public catalog through the caching client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dog-catalog/internal/core/config"
	"dog-catalog/internal/core/logger"
)

type env struct {
	cfgPath string
	cfg     *config.Config
	log     *zap.Logger
	cleanup func()
}

func main() {
	_ = godotenv.Load()
	e := &env{cleanup: func() {}}
	root := &cobra.Command{
		Use:           "admin",
		Short:         "dog catalog administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(e.cfgPath)
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log, e.cleanup = logger.New(cfg.Log.Level, false)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&e.cfgPath, "config", os.Getenv("CONFIG_PATH"), "config file (yaml)")

	root.AddCommand(
		e.migrateCmd(),
		e.createAccountCmd(),
		e.setPasswordCmd(),
		e.roleCmd("grant"),
		e.roleCmd("revoke"),
		e.rolesCmd(),
		e.catalogCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	e.cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
