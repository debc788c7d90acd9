package main

import (
	"github.com/smallbiznis/planora/internal/logger"
	"github.com/smallbiznis/planora/internal/migration"
	"github.com/smallbiznis/planora/internal/scheduler"
	"github.com/smallbiznis/planora/internal/server"
	"github.com/smallbiznis/planora/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		logger.Module,
		db.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}
