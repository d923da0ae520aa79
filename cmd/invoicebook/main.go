package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicebook/internal/clock"
	"github.com/smallbiznis/invoicebook/internal/config"
	"github.com/smallbiznis/invoicebook/internal/migration"
	"github.com/smallbiznis/invoicebook/internal/observability"
	"github.com/smallbiznis/invoicebook/internal/ratelimit"
	"github.com/smallbiznis/invoicebook/internal/server"
	"github.com/smallbiznis/invoicebook/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		ratelimit.Module,

		// HTTP surface and the domains behind it
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
