package imagepkg

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/youruser/certapp/internal/config"
)

var Module = fx.Module("image",
	fx.Provide(
		fontsFromConfig,
		func(fonts *FontRegistry, cfg config.Config, log *zap.Logger) *Renderer {
			return NewRenderer(fonts, Config{
				DefaultMultiplier: cfg.Render.DefaultMultiplier,
				MaxMultiplier:     cfg.Render.MaxMultiplier,
			}, log.Named("render"))
		},
	),
)

func fontsFromConfig(cfg config.Config, log *zap.Logger) (*FontRegistry, error) {
	fonts, err := NewFontRegistry()
	if err != nil {
		return nil, err
	}
	if cfg.Render.FontPath == "" {
		return fonts, nil
	}
	family := cfg.Render.FontFamily
	if family == "" {
		family = "Custom"
	}
	if err := fonts.RegisterFile(family, cfg.Render.FontPath); err != nil {
		return nil, err
	}
	log.Info("font registered", zap.String("family", family), zap.String("path", cfg.Render.FontPath))
	return fonts, nil
}
