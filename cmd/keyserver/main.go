package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smartkeys/keyserver/internal/config"
	"github.com/smartkeys/keyserver/internal/migration"
	"github.com/smartkeys/keyserver/internal/observability"
	"github.com/smartkeys/keyserver/internal/server"
	"github.com/smartkeys/keyserver/pkg/db"
	"github.com/smartkeys/keyserver/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		// HTTP surface plus the domain modules it serves
		server.Module,
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
