package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"github.com/upeosms/upeo/internal/billing"
	"github.com/upeosms/upeo/internal/clock"
	"github.com/upeosms/upeo/internal/config"
	"github.com/upeosms/upeo/internal/ledger"
	"github.com/upeosms/upeo/internal/migration"
	"github.com/upeosms/upeo/internal/observability"
	"github.com/upeosms/upeo/internal/pricing"
	"github.com/upeosms/upeo/internal/quota"
	"github.com/upeosms/upeo/internal/rating"
	"github.com/upeosms/upeo/internal/redis"
	"github.com/upeosms/upeo/internal/seed"
	"github.com/upeosms/upeo/internal/server"
	"github.com/upeosms/upeo/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "upeo",
		Short:   "Upeo SMS billing CLI",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newSeedCmd(), newServeCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newSeedCmd() *cobra.Command {
	var withDemo bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the global pricing rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(withDemo)
		},
	}
	cmd.Flags().BoolVar(&withDemo, "demo", false, "also seed a funded demo account")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations and seed, then start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			if err := runSeed(false); err != nil {
				return err
			}
			runServe()
			return nil
		},
	}
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runSeed(withDemo bool) error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			if err := seed.EnsureGlobalRule(conn, cfg.Billing.Currency); err != nil {
				return err
			}
			if withDemo {
				return seed.EnsureDemoAccount(conn, cfg.Billing.Currency)
			}
			return nil
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,

		pricing.Module,
		rating.Module,
		ledger.Module,
		quota.Module,
		billing.Module,

		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
