package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/upeosms/upeo/internal/billing"
	"github.com/upeosms/upeo/internal/clock"
	"github.com/upeosms/upeo/internal/config"
	"github.com/upeosms/upeo/internal/ledger"
	"github.com/upeosms/upeo/internal/observability"
	"github.com/upeosms/upeo/internal/pricing"
	"github.com/upeosms/upeo/internal/quota"
	"github.com/upeosms/upeo/internal/rating"
	"github.com/upeosms/upeo/internal/redis"
	"github.com/upeosms/upeo/internal/server"
	"github.com/upeosms/upeo/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		redis.Module,

		pricing.Module,
		rating.Module,
		ledger.Module,
		quota.Module,
		billing.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterAPIRoutes()
		}),
		fx.Invoke(server.RunHTTP),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
