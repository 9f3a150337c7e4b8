package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/trovio/settled/internal/clock"
	"github.com/trovio/settled/internal/config"
	"github.com/trovio/settled/internal/earnings"
	"github.com/trovio/settled/internal/logger"
	"github.com/trovio/settled/internal/metrics"
	"github.com/trovio/settled/internal/migration"
	"github.com/trovio/settled/internal/order"
	"github.com/trovio/settled/internal/payout"
	"github.com/trovio/settled/internal/sellerlock"
	"github.com/trovio/settled/internal/server"
	"github.com/trovio/settled/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		metrics.Module,
		sellerlock.Module,

		// Functional domains
		order.Module,
		payout.Module,
		earnings.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
