package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/constructtrack/internal/clock"
	"github.com/smallbiznis/constructtrack/internal/config"
	"github.com/smallbiznis/constructtrack/internal/kvstore"
	"github.com/smallbiznis/constructtrack/internal/lock"
	"github.com/smallbiznis/constructtrack/internal/migration"
	"github.com/smallbiznis/constructtrack/internal/observability"
	"github.com/smallbiznis/constructtrack/internal/photo"
	"github.com/smallbiznis/constructtrack/internal/redisclient"
	"github.com/smallbiznis/constructtrack/internal/server"
	"github.com/smallbiznis/constructtrack/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		redisclient.Module,
		lock.Module,
		kvstore.Module,
		photo.Module,
		clock.Module,
		migration.Module,

		// Domains and HTTP
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}
