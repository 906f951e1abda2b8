package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/youruser/certapp/internal/api"
	"github.com/youruser/certapp/internal/batch"
	"github.com/youruser/certapp/internal/config"
	imagepkg "github.com/youruser/certapp/internal/image"
	"github.com/youruser/certapp/internal/logger"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		imagepkg.Module,
		batch.Module,
		api.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
	app.Run()
}
