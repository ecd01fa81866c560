package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/magfest/ubersystem/internal/config"
	"github.com/magfest/ubersystem/pkg/core/services"
	"github.com/magfest/ubersystem/pkg/core/volunteers"
	"github.com/magfest/ubersystem/pkg/postgres"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg       *config.Config
	DB        *postgres.DB
	Numbering *services.Numbering
	Engine    *volunteers.Engine
	Logger    *zap.Logger
	Ctx       context.Context
}
