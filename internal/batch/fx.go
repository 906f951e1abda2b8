package batch

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/youruser/certapp/internal/config"
	imagepkg "github.com/youruser/certapp/internal/image"
)

var Module = fx.Module("batch",
	fx.Provide(func(r *imagepkg.Renderer, cfg config.Config, log *zap.Logger) *Orchestrator {
		return New(r, Config{MaxNames: cfg.Upload.MaxNames}, log.Named("batch"))
	}),
)
